package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"voicegate/internal/user"
	"voicegate/internal/vault"
	"voicegate/internal/voiceprint/models"
	"voicegate/internal/voiceprint/service/mocks"
	"voicegate/internal/voiceprint/store"
	pkgerrors "voicegate/pkg/domain-errors"
)

const (
	testGroup = "voicegate"
	testAudio = "bm9ybWFsaXplZA=="
)

var featureIDPattern = regexp.MustCompile(`^user_42_[0-9a-f]{32}$`)

type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	ctrl      *gomock.Controller
	mockVault *mocks.MockBiometricClient
	mockAudio *mocks.MockNormalizer
	users     *user.InMemoryDirectory
	templates *store.InMemoryTemplateStore
	attempts  *store.InMemoryAttemptStore
	svc       *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.mockVault = mocks.NewMockBiometricClient(s.ctrl)
	s.mockAudio = mocks.NewMockNormalizer(s.ctrl)
	s.users = user.NewInMemoryDirectory()
	s.templates = store.NewInMemoryTemplateStore()
	s.attempts = store.NewInMemoryAttemptStore()

	s.Require().NoError(s.users.Save(s.ctx, &user.User{
		ID: 42, Username: "ada", FullName: "Ada Lovelace", Active: true,
	}))
	s.Require().NoError(s.users.Save(s.ctx, &user.User{
		ID: 43, Username: "charles", FullName: "Charles Babbage", Active: true,
	}))
	s.Require().NoError(s.users.Save(s.ctx, &user.User{
		ID: 99, Username: "ghost", Active: false,
	}))

	s.svc = NewService(s.users, s.templates, s.attempts, s.mockVault, s.mockAudio,
		testGroup, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) enroll(userID int64, featureID string) {
	s.Require().NoError(s.templates.Create(s.ctx, &models.Template{
		UserID:         userID,
		VaultGroupID:   testGroup,
		VaultFeatureID: featureID,
		RegisteredAt:   time.Now(),
		Active:         true,
	}))
}

func (s *ServiceSuite) TestEnrollSuccess() {
	s.mockAudio.EXPECT().Normalize([]byte("audio"), "voice.wav").Return(testAudio, nil)
	s.mockVault.EXPECT().
		CreateFeature(gomock.Any(), testGroup, gomock.Any(), testAudio, "ada").
		DoAndReturn(func(_ context.Context, _, featureID, _, _ string) (*vault.CreateFeatureResult, error) {
			return &vault.CreateFeatureResult{FeatureID: featureID}, nil
		})

	res, err := s.svc.Enroll(s.ctx, 42, []byte("audio"), "voice.wav", "")
	s.Require().NoError(err)
	s.Regexp(featureIDPattern, res.FeatureID)
	s.Equal("ada", res.Username)

	tmpl, err := s.templates.FindByFeatureID(s.ctx, res.FeatureID)
	s.Require().NoError(err)
	s.True(tmpl.Active)
	s.Equal(int64(42), tmpl.UserID)
}

func (s *ServiceSuite) TestEnrollCustomFeatureInfo() {
	s.mockAudio.EXPECT().Normalize(gomock.Any(), gomock.Any()).Return(testAudio, nil)
	s.mockVault.EXPECT().
		CreateFeature(gomock.Any(), testGroup, gomock.Any(), testAudio, "desk mic").
		DoAndReturn(func(_ context.Context, _, featureID, _, _ string) (*vault.CreateFeatureResult, error) {
			return &vault.CreateFeatureResult{FeatureID: featureID}, nil
		})

	res, err := s.svc.Enroll(s.ctx, 42, []byte("audio"), "voice.wav", "desk mic")
	s.Require().NoError(err)

	tmpl, err := s.templates.FindByFeatureID(s.ctx, res.FeatureID)
	s.Require().NoError(err)
	s.Equal("desk mic", tmpl.FeatureInfo)
}

// An already-enrolled user must be rejected before any vault traffic.
func (s *ServiceSuite) TestEnrollAlreadyEnrolledSkipsVault() {
	s.enroll(42, "user_42_existing")

	_, err := s.svc.Enroll(s.ctx, 42, []byte("audio"), "voice.wav", "")
	s.True(pkgerrors.HasCode(err, pkgerrors.CodeAlreadyEnrolled))
}

func (s *ServiceSuite) TestEnrollUnknownUser() {
	_, err := s.svc.Enroll(s.ctx, 777, []byte("audio"), "voice.wav", "")
	s.True(pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func (s *ServiceSuite) TestEnrollInactiveUser() {
	_, err := s.svc.Enroll(s.ctx, 99, []byte("audio"), "voice.wav", "")
	s.True(pkgerrors.HasCode(err, pkgerrors.CodeUserInactive))
}

func (s *ServiceSuite) TestEnrollVaultFailure() {
	s.mockAudio.EXPECT().Normalize(gomock.Any(), gomock.Any()).Return(testAudio, nil)
	s.mockVault.EXPECT().
		CreateFeature(gomock.Any(), testGroup, gomock.Any(), testAudio, "ada").
		Return(nil, &vault.APIError{Code: 10313, Message: "invalid appid"})

	_, err := s.svc.Enroll(s.ctx, 42, []byte("audio"), "voice.wav", "")
	s.True(pkgerrors.HasCode(err, pkgerrors.CodeVaultAuth))

	exists, storeErr := s.templates.ExistsActiveByUserID(s.ctx, 42)
	s.Require().NoError(storeErr)
	s.False(exists)
}

// If the vault echoes a different feature ID than requested, the stored
// feature is compensated away and nothing is persisted locally.
func (s *ServiceSuite) TestEnrollIntegrityMismatchCompensates() {
	s.mockAudio.EXPECT().Normalize(gomock.Any(), gomock.Any()).Return(testAudio, nil)
	s.mockVault.EXPECT().
		CreateFeature(gomock.Any(), testGroup, gomock.Any(), testAudio, "ada").
		Return(&vault.CreateFeatureResult{FeatureID: "somebody_else"}, nil)
	s.mockVault.EXPECT().
		DeleteFeature(gomock.Any(), testGroup, "somebody_else").
		Return(&vault.DeleteFeatureResult{Msg: "success"}, nil)

	_, err := s.svc.Enroll(s.ctx, 42, []byte("audio"), "voice.wav", "")
	s.True(pkgerrors.HasCode(err, pkgerrors.CodeIntegrityMismatch))

	exists, storeErr := s.templates.ExistsActiveByUserID(s.ctx, 42)
	s.Require().NoError(storeErr)
	s.False(exists)
}

// A local persistence failure after the vault accepted the feature triggers a
// compensating delete, and the enrollment can succeed on retry.
func (s *ServiceSuite) TestEnrollCompensatesThenRetrySucceeds() {
	// First attempt: another writer won the race between the existence check
	// and the insert.
	s.mockAudio.EXPECT().Normalize(gomock.Any(), gomock.Any()).Return(testAudio, nil).Times(2)
	first := s.mockVault.EXPECT().
		CreateFeature(gomock.Any(), testGroup, gomock.Any(), testAudio, "charles").
		DoAndReturn(func(_ context.Context, _, featureID, _, _ string) (*vault.CreateFeatureResult, error) {
			s.enroll(43, "user_43_racer")
			return &vault.CreateFeatureResult{FeatureID: featureID}, nil
		})
	s.mockVault.EXPECT().
		DeleteFeature(gomock.Any(), testGroup, gomock.Any()).
		Return(&vault.DeleteFeatureResult{Msg: "success"}, nil).
		After(first)

	_, err := s.svc.Enroll(s.ctx, 43, []byte("audio"), "voice.wav", "")
	s.True(pkgerrors.HasCode(err, pkgerrors.CodeAlreadyEnrolled))

	// Retry after the stale template is deactivated.
	s.Require().NoError(s.templates.Deactivate(s.ctx, "user_43_racer"))
	s.mockVault.EXPECT().
		CreateFeature(gomock.Any(), testGroup, gomock.Any(), testAudio, "charles").
		DoAndReturn(func(_ context.Context, _, featureID, _, _ string) (*vault.CreateFeatureResult, error) {
			return &vault.CreateFeatureResult{FeatureID: featureID}, nil
		})

	res, err := s.svc.Enroll(s.ctx, 43, []byte("audio"), "voice.wav", "")
	s.Require().NoError(err)
	s.NotEmpty(res.FeatureID)
}

func (s *ServiceSuite) TestIdentifySortsMatchesByScore() {
	s.enroll(42, "user_42_a")
	s.enroll(43, "user_43_b")
	third := int64(44)
	s.Require().NoError(s.users.Save(s.ctx, &user.User{ID: third, Username: "grace", Active: true}))
	s.enroll(third, "user_44_c")

	s.mockAudio.EXPECT().Normalize(gomock.Any(), gomock.Any()).Return(testAudio, nil)
	s.mockVault.EXPECT().
		SearchFeature(gomock.Any(), testGroup, testAudio, 5).
		Return(&vault.SearchResult{ScoreList: []vault.Candidate{
			{FeatureID: "user_42_a", Score: 0.62},
			{FeatureID: "user_43_b", Score: 0.95},
			{FeatureID: "user_44_c", Score: 0.80},
		}}, nil)

	res, err := s.svc.Identify(s.ctx, []byte("probe"), "probe.wav", models.ClientContext{})
	s.Require().NoError(err)
	s.Require().Len(res.Matches, 3)
	s.Equal([]float64{0.95, 0.80, 0.62}, []float64{
		res.Matches[0].ConfidenceScore,
		res.Matches[1].ConfidenceScore,
		res.Matches[2].ConfidenceScore,
	})
	s.Equal("charles", res.Matches[0].Username)
	s.Regexp(`^req_\d+_[0-9a-f]{8}$`, res.RequestID)
}

// One audit row per resolved candidate; candidates the vault knows but this
// deployment does not are skipped without a row.
func (s *ServiceSuite) TestIdentifyAuditCardinality() {
	s.enroll(42, "user_42_a")
	s.enroll(43, "user_43_b")

	s.mockAudio.EXPECT().Normalize(gomock.Any(), gomock.Any()).Return(testAudio, nil)
	s.mockVault.EXPECT().
		SearchFeature(gomock.Any(), testGroup, testAudio, 5).
		Return(&vault.SearchResult{ScoreList: []vault.Candidate{
			{FeatureID: "user_42_a", Score: 0.9},
			{FeatureID: "user_7_foreign", Score: 0.8},
			{FeatureID: "user_43_b", Score: 0.7},
		}}, nil)

	res, err := s.svc.Identify(s.ctx, []byte("probe"), "probe.wav", models.ClientContext{IP: "10.1.2.3"})
	s.Require().NoError(err)
	s.Len(res.Matches, 2)

	rows, err := s.attempts.ListRecent(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	for _, row := range rows {
		s.Equal(res.RequestID, row.RequestID)
		s.Equal("10.1.2.3", row.ClientIP)
	}

	// Matched templates get their counters bumped.
	tmpl, err := s.templates.FindByFeatureID(s.ctx, "user_42_a")
	s.Require().NoError(err)
	s.Equal(1, tmpl.MatchCount)
	s.NotNil(tmpl.LastMatchedAt)
}

// A vault-level search failure leaves exactly one error row carrying the
// vault's code, message and session ID.
func (s *ServiceSuite) TestIdentifyVaultFailureWritesErrorRow() {
	s.mockAudio.EXPECT().Normalize(gomock.Any(), gomock.Any()).Return(testAudio, nil)
	s.mockVault.EXPECT().
		SearchFeature(gomock.Any(), testGroup, testAudio, 5).
		Return(nil, &vault.APIError{Code: 11201, Message: "licc limit", Sid: "ase000f1234"})

	_, err := s.svc.Identify(s.ctx, []byte("probe"), "probe.wav", models.ClientContext{})
	s.True(pkgerrors.HasCode(err, pkgerrors.CodeVaultParameter))

	rows, listErr := s.attempts.ListRecent(s.ctx, 10)
	s.Require().NoError(listErr)
	s.Require().Len(rows, 1)
	s.Nil(rows[0].IdentifiedUserID)
	s.Zero(rows[0].ConfidenceScore)
	s.Equal(11201, rows[0].VaultResponseCode)
	s.Equal("licc limit", rows[0].VaultResponseMessage)
	s.Equal("ase000f1234", rows[0].VaultSessionID)
}

func (s *ServiceSuite) TestIdentifyEmptyScoreList() {
	s.mockAudio.EXPECT().Normalize(gomock.Any(), gomock.Any()).Return(testAudio, nil)
	s.mockVault.EXPECT().
		SearchFeature(gomock.Any(), testGroup, testAudio, 5).
		Return(&vault.SearchResult{}, nil)

	res, err := s.svc.Identify(s.ctx, []byte("probe"), "probe.wav", models.ClientContext{})
	s.Require().NoError(err)
	s.NotNil(res.Matches)
	s.Empty(res.Matches)

	total, err := s.attempts.Count(s.ctx)
	s.Require().NoError(err)
	s.Zero(total)
}

func (s *ServiceSuite) TestIdentifyRecordsDeviceSummary() {
	s.enroll(42, "user_42_a")
	s.mockAudio.EXPECT().Normalize(gomock.Any(), gomock.Any()).Return(testAudio, nil)
	s.mockVault.EXPECT().
		SearchFeature(gomock.Any(), testGroup, testAudio, 5).
		Return(&vault.SearchResult{ScoreList: []vault.Candidate{
			{FeatureID: "user_42_a", Score: 0.9},
		}}, nil)

	chromeUA := "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	_, err := s.svc.Identify(s.ctx, []byte("probe"), "probe.wav", models.ClientContext{
		IP: "10.0.0.1", UserAgent: chromeUA,
	})
	s.Require().NoError(err)

	rows, err := s.attempts.ListRecent(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Contains(rows[0].UserAgent, "Chrome")
	s.Contains(rows[0].UserAgent, "Linux")
	s.NotContains(rows[0].UserAgent, "Mozilla/5.0")
}

// Deleting a user with no enrollment is a clean no-op, reported as false,
// with no vault traffic.
func (s *ServiceSuite) TestDeleteNothingEnrolled() {
	deleted, err := s.svc.Delete(s.ctx, 42)
	s.Require().NoError(err)
	s.False(deleted)
}

func (s *ServiceSuite) TestDeleteRemovesAllTemplates() {
	s.enroll(42, "user_42_a")

	s.mockVault.EXPECT().
		DeleteFeature(gomock.Any(), testGroup, "user_42_a").
		Return(&vault.DeleteFeatureResult{Msg: "success"}, nil)

	deleted, err := s.svc.Delete(s.ctx, 42)
	s.Require().NoError(err)
	s.True(deleted)

	exists, err := s.templates.ExistsActiveByUserID(s.ctx, 42)
	s.Require().NoError(err)
	s.False(exists)
}

// A vault failure on delete keeps the local template active so the delete
// can be retried.
func (s *ServiceSuite) TestDeleteVaultFailureKeepsTemplate() {
	s.enroll(42, "user_42_a")

	s.mockVault.EXPECT().
		DeleteFeature(gomock.Any(), testGroup, "user_42_a").
		Return(nil, errors.New("connection refused"))

	_, err := s.svc.Delete(s.ctx, 42)
	s.True(pkgerrors.HasCode(err, pkgerrors.CodeVaultSystem))

	exists, storeErr := s.templates.ExistsActiveByUserID(s.ctx, 42)
	s.Require().NoError(storeErr)
	s.True(exists)
}

func (s *ServiceSuite) TestTemplatesForUnknownUser() {
	_, err := s.svc.Templates(s.ctx, 777)
	s.True(pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func (s *ServiceSuite) TestStatistics() {
	s.enroll(42, "user_42_a")
	uid := int64(42)
	s.Require().NoError(s.attempts.Append(s.ctx, &models.Attempt{
		RequestID: "req_old", IdentifiedUserID: &uid,
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}))
	s.Require().NoError(s.attempts.Append(s.ctx, &models.Attempt{
		RequestID: "req_today", IdentifiedUserID: &uid,
	}))

	stats, err := s.svc.Statistics(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), stats.TotalEnrolledUsers)
	s.Equal(int64(2), stats.TotalIdentifications)
	s.Equal(int64(1), stats.TodayIdentifications)
}

func (s *ServiceSuite) TestAttemptLogFilters() {
	uid := int64(42)
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.attempts.Append(s.ctx, &models.Attempt{RequestID: "req_mine", IdentifiedUserID: &uid}))
	}
	s.Require().NoError(s.attempts.Append(s.ctx, &models.Attempt{RequestID: "req_other"}))

	rows, err := s.svc.AttemptLog(s.ctx, &uid, 2)
	s.Require().NoError(err)
	s.Len(rows, 2)

	rows, err = s.svc.AttemptLog(s.ctx, nil, 50)
	s.Require().NoError(err)
	s.Len(rows, 4)
}
