package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"voicegate/internal/voiceprint/models"
)

// InMemoryTemplateStore holds templates behind a mutex for tests and
// database-less runs. The one-active-per-user check happens under the same
// lock as the insert, mirroring the partial unique index the Postgres store
// relies on.
type InMemoryTemplateStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*models.Template
}

// NewInMemoryTemplateStore constructs an empty template store.
func NewInMemoryTemplateStore() *InMemoryTemplateStore {
	return &InMemoryTemplateStore{nextID: 1, byID: make(map[int64]*models.Template)}
}

func (s *InMemoryTemplateStore) Create(_ context.Context, t *models.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Active {
		for _, existing := range s.byID {
			if existing.UserID == t.UserID && existing.Active {
				return ErrDuplicateActive
			}
		}
	}
	t.ID = s.nextID
	s.nextID++
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	cp := *t
	s.byID[t.ID] = &cp
	return nil
}

func (s *InMemoryTemplateStore) FindByFeatureID(_ context.Context, featureID string) (*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.byID {
		if t.VaultFeatureID == featureID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryTemplateStore) FindActiveByUserID(_ context.Context, userID int64) ([]*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Template
	for _, t := range s.byID {
		if t.UserID == userID && t.Active {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryTemplateStore) ExistsActiveByUserID(_ context.Context, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.byID {
		if t.UserID == userID && t.Active {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryTemplateStore) RecordMatch(_ context.Context, featureID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.byID {
		if t.VaultFeatureID == featureID {
			t.MatchCount++
			matched := at
			t.LastMatchedAt = &matched
			t.UpdatedAt = at
			return nil
		}
	}
	return ErrNotFound
}

func (s *InMemoryTemplateStore) Deactivate(_ context.Context, featureID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.byID {
		if t.VaultFeatureID == featureID {
			t.Active = false
			t.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrNotFound
}

func (s *InMemoryTemplateStore) CountActive(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, t := range s.byID {
		if t.Active {
			n++
		}
	}
	return n, nil
}

// InMemoryAttemptStore is the append-only audit log counterpart.
type InMemoryAttemptStore struct {
	mu     sync.RWMutex
	nextID int64
	rows   []*models.Attempt
}

// NewInMemoryAttemptStore constructs an empty attempt store.
func NewInMemoryAttemptStore() *InMemoryAttemptStore {
	return &InMemoryAttemptStore{nextID: 1}
}

func (s *InMemoryAttemptStore) Append(_ context.Context, a *models.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.nextID
	s.nextID++
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	cp := *a
	s.rows = append(s.rows, &cp)
	return nil
}

func (s *InMemoryAttemptStore) FindByRequestID(_ context.Context, requestID string) ([]*models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Attempt
	for _, r := range s.rows {
		if r.RequestID == requestID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ConfidenceScore != out[j].ConfidenceScore {
			return out[i].ConfidenceScore > out[j].ConfidenceScore
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *InMemoryAttemptStore) ListByUser(_ context.Context, userID int64) ([]*models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Attempt
	for i := len(s.rows) - 1; i >= 0; i-- {
		r := s.rows[i]
		if r.IdentifiedUserID != nil && *r.IdentifiedUserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemoryAttemptStore) ListRecent(_ context.Context, limit int) ([]*models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Attempt
	for i := len(s.rows) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *s.rows[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *InMemoryAttemptStore) CountByTimeRange(_ context.Context, from, to time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, r := range s.rows {
		if !r.CreatedAt.Before(from) && r.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryAttemptStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.rows)), nil
}
