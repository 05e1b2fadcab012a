package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"voicegate/internal/voiceprint/models"
)

type TemplateStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemoryTemplateStore
}

func TestTemplateStoreSuite(t *testing.T) {
	suite.Run(t, new(TemplateStoreSuite))
}

func (s *TemplateStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryTemplateStore()
}

func (s *TemplateStoreSuite) template(userID int64, featureID string) *models.Template {
	return &models.Template{
		UserID:         userID,
		VaultGroupID:   "voicegate",
		VaultFeatureID: featureID,
		RegisteredAt:   time.Now(),
		Active:         true,
	}
}

func (s *TemplateStoreSuite) TestCreateAssignsID() {
	t := s.template(1, "user_1_aaa")
	s.Require().NoError(s.store.Create(s.ctx, t))
	s.NotZero(t.ID)
	s.False(t.CreatedAt.IsZero())

	got, err := s.store.FindByFeatureID(s.ctx, "user_1_aaa")
	s.Require().NoError(err)
	s.Equal(t.ID, got.ID)
	s.Equal(int64(1), got.UserID)
}

// A second active template for the same user must be rejected, however the
// first one got there.
func (s *TemplateStoreSuite) TestCreateRejectsSecondActive() {
	s.Require().NoError(s.store.Create(s.ctx, s.template(1, "user_1_aaa")))

	err := s.store.Create(s.ctx, s.template(1, "user_1_bbb"))
	s.Require().ErrorIs(err, ErrDuplicateActive)

	// A different user is unaffected.
	s.NoError(s.store.Create(s.ctx, s.template(2, "user_2_aaa")))
}

func (s *TemplateStoreSuite) TestCreateAllowedAfterDeactivate() {
	s.Require().NoError(s.store.Create(s.ctx, s.template(1, "user_1_aaa")))
	s.Require().NoError(s.store.Deactivate(s.ctx, "user_1_aaa"))

	s.NoError(s.store.Create(s.ctx, s.template(1, "user_1_bbb")))

	active, err := s.store.FindActiveByUserID(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Equal("user_1_bbb", active[0].VaultFeatureID)
}

func (s *TemplateStoreSuite) TestRecordMatch() {
	s.Require().NoError(s.store.Create(s.ctx, s.template(1, "user_1_aaa")))

	at := time.Now().Truncate(time.Second)
	s.Require().NoError(s.store.RecordMatch(s.ctx, "user_1_aaa", at))
	s.Require().NoError(s.store.RecordMatch(s.ctx, "user_1_aaa", at.Add(time.Minute)))

	got, err := s.store.FindByFeatureID(s.ctx, "user_1_aaa")
	s.Require().NoError(err)
	s.Equal(2, got.MatchCount)
	s.Require().NotNil(got.LastMatchedAt)
	s.True(got.LastMatchedAt.Equal(at.Add(time.Minute)))
}

func (s *TemplateStoreSuite) TestNotFound() {
	_, err := s.store.FindByFeatureID(s.ctx, "user_9_missing")
	s.ErrorIs(err, ErrNotFound)

	s.ErrorIs(s.store.RecordMatch(s.ctx, "user_9_missing", time.Now()), ErrNotFound)
	s.ErrorIs(s.store.Deactivate(s.ctx, "user_9_missing"), ErrNotFound)
}

func (s *TemplateStoreSuite) TestExistsAndCount() {
	exists, err := s.store.ExistsActiveByUserID(s.ctx, 1)
	s.Require().NoError(err)
	s.False(exists)

	s.Require().NoError(s.store.Create(s.ctx, s.template(1, "user_1_aaa")))
	s.Require().NoError(s.store.Create(s.ctx, s.template(2, "user_2_aaa")))
	s.Require().NoError(s.store.Deactivate(s.ctx, "user_2_aaa"))

	exists, err = s.store.ExistsActiveByUserID(s.ctx, 1)
	s.Require().NoError(err)
	s.True(exists)

	n, err := s.store.CountActive(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), n)
}

type AttemptStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemoryAttemptStore
}

func TestAttemptStoreSuite(t *testing.T) {
	suite.Run(t, new(AttemptStoreSuite))
}

func (s *AttemptStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryAttemptStore()
}

func (s *AttemptStoreSuite) append(requestID string, userID *int64, score float64) *models.Attempt {
	a := &models.Attempt{
		RequestID:        requestID,
		IdentifiedUserID: userID,
		ConfidenceScore:  score,
	}
	s.Require().NoError(s.store.Append(s.ctx, a))
	return a
}

func (s *AttemptStoreSuite) TestAppendAndListByUser() {
	uid := int64(7)
	other := int64(8)
	s.append("req_1", &uid, 0.91)
	s.append("req_2", &other, 0.50)
	s.append("req_3", &uid, 0.73)
	s.append("req_4", nil, 0)

	rows, err := s.store.ListByUser(s.ctx, uid)
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	// Newest first.
	s.Equal("req_3", rows[0].RequestID)
	s.Equal("req_1", rows[1].RequestID)
}

func (s *AttemptStoreSuite) TestListRecentHonorsLimit() {
	for i := 0; i < 5; i++ {
		s.append("req", nil, 0)
	}
	rows, err := s.store.ListRecent(s.ctx, 3)
	s.Require().NoError(err)
	s.Len(rows, 3)

	rows, err = s.store.ListRecent(s.ctx, 50)
	s.Require().NoError(err)
	s.Len(rows, 5)
}

func (s *AttemptStoreSuite) TestFindByRequestID() {
	uid := int64(7)
	other := int64(8)
	s.append("req_a", &uid, 0.61)
	s.append("req_a", &other, 0.88)
	s.append("req_b", &uid, 0.99)

	rows, err := s.store.FindByRequestID(s.ctx, "req_a")
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	// Highest confidence first.
	s.Equal(0.88, rows[0].ConfidenceScore)
	s.Equal(0.61, rows[1].ConfidenceScore)

	rows, err = s.store.FindByRequestID(s.ctx, "req_missing")
	s.Require().NoError(err)
	s.Empty(rows)
}

func (s *AttemptStoreSuite) TestCounts() {
	s.append("req_1", nil, 0)
	s.append("req_2", nil, 0)

	total, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), total)

	now := time.Now()
	n, err := s.store.CountByTimeRange(s.ctx, now.Add(-time.Hour), now.Add(time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(2), n)

	n, err = s.store.CountByTimeRange(s.ctx, now.Add(time.Hour), now.Add(2*time.Hour))
	s.Require().NoError(err)
	s.Zero(n)
}
