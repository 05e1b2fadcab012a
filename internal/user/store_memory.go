package user

import (
	"context"
	"sync"
)

// InMemoryDirectory stores users in memory for tests and single-node runs
// without a database.
type InMemoryDirectory struct {
	mu    sync.RWMutex
	users map[int64]*User
}

// NewInMemoryDirectory constructs an empty in-memory directory.
func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{users: make(map[int64]*User)}
}

// Save inserts or replaces an account. Exposed so tests and the seeder can
// populate the directory; the voiceprint core never calls it.
func (d *InMemoryDirectory) Save(_ context.Context, u *User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *u
	d.users[u.ID] = &cp
	return nil
}

func (d *InMemoryDirectory) FindByID(_ context.Context, id int64) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if u, ok := d.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, ErrNotFound
}
