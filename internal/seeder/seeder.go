// Package seeder populates the in-memory directory with demo accounts for
// database-less runs.
package seeder

import (
	"context"
	"fmt"
	"log/slog"

	"voicegate/internal/user"
)

// UserStore defines methods for seeding users.
type UserStore interface {
	Save(ctx context.Context, u *user.User) error
}

// Seeder populates in-memory stores with demo data.
type Seeder struct {
	users  UserStore
	logger *slog.Logger
}

// New creates a new seeder.
func New(users UserStore, logger *slog.Logger) *Seeder {
	return &Seeder{users: users, logger: logger}
}

// SeedAll writes the demo accounts. IDs are fixed so enrollment walkthroughs
// and curl examples stay stable across restarts.
func (s *Seeder) SeedAll(ctx context.Context) error {
	demo := []*user.User{
		{ID: 1, Username: "alice", Email: "alice@example.com", FullName: "Alice Zhang", Phone: "13800000001", Active: true},
		{ID: 2, Username: "bob", Email: "bob@example.com", FullName: "Bob Li", Phone: "13800000002", Active: true},
		{ID: 3, Username: "carol", Email: "carol@example.com", FullName: "Carol Wang", Phone: "13800000003", Active: true},
		{ID: 4, Username: "dave", Email: "dave@example.com", FullName: "Dave Chen", Active: false},
	}
	for _, u := range demo {
		if err := s.users.Save(ctx, u); err != nil {
			return fmt.Errorf("failed to seed user %q: %w", u.Username, err)
		}
	}
	s.logger.Info("seeded demo users", "count", len(demo))
	return nil
}
