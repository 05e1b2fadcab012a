// Package store is the durability boundary for voiceprint templates and the
// identification audit log.
package store

import (
	"context"
	"time"

	"voicegate/internal/voiceprint/models"
	pkgerrors "voicegate/pkg/domain-errors"
)

// Error contract shared by all implementations:
// - ErrNotFound when the requested record does not exist
// - ErrDuplicateActive when an insert would produce a second active template
//   for the same user
// - wrapped infrastructure errors otherwise
var (
	ErrNotFound        = pkgerrors.New(pkgerrors.CodeNotFound, "record not found")
	ErrDuplicateActive = pkgerrors.New(pkgerrors.CodeAlreadyEnrolled, "user already has an active template")
)

// TemplateStore persists voiceprint templates.
type TemplateStore interface {
	// Create inserts a template and fills in its ID. The store enforces the
	// one-active-template-per-user invariant and reports violations as
	// ErrDuplicateActive.
	Create(ctx context.Context, t *models.Template) error
	FindByFeatureID(ctx context.Context, featureID string) (*models.Template, error)
	FindActiveByUserID(ctx context.Context, userID int64) ([]*models.Template, error)
	ExistsActiveByUserID(ctx context.Context, userID int64) (bool, error)
	// RecordMatch increments the template's match counter and stamps
	// lastMatchedAt.
	RecordMatch(ctx context.Context, featureID string, at time.Time) error
	// Deactivate soft-deletes by feature ID.
	Deactivate(ctx context.Context, featureID string) error
	CountActive(ctx context.Context) (int64, error)
}

// AttemptStore appends and reads identification audit rows.
type AttemptStore interface {
	Append(ctx context.Context, a *models.Attempt) error
	FindByRequestID(ctx context.Context, requestID string) ([]*models.Attempt, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Attempt, error)
	ListRecent(ctx context.Context, limit int) ([]*models.Attempt, error)
	CountByTimeRange(ctx context.Context, from, to time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
}
