// Package user is the read-only user directory this core consults before
// enrollment. Accounts are owned by the surrounding service; voiceprint logic
// only ever reads them.
package user

import (
	"context"
	"time"

	pkgerrors "voicegate/pkg/domain-errors"
)

// User is a directory account.
type User struct {
	ID        int64
	Username  string
	Email     string
	Phone     string
	FullName  string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ErrNotFound keeps missing-account signaling consistent across
// implementations.
var ErrNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "user not found")

// Directory provides fetch-by-id access to accounts.
type Directory interface {
	FindByID(ctx context.Context, id int64) (*User, error)
}
