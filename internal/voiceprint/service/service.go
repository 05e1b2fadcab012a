// Package service orchestrates the voiceprint lifecycle: enrollment,
// 1:N identification and deletion, coordinating the audio normalizer, the
// remote vault and local persistence.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"voicegate/internal/user"
	"voicegate/internal/vault"
	"voicegate/internal/voiceprint/metrics"
	"voicegate/internal/voiceprint/models"
	"voicegate/internal/voiceprint/store"
	pkgerrors "voicegate/pkg/domain-errors"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// BiometricClient is the signed vault transport the orchestrator drives.
// Error contract: failures the vault itself reported come back as
// *vault.APIError; anything else is a transport failure.
type BiometricClient interface {
	CreateFeature(ctx context.Context, groupID, featureID, audioBase64, featureInfo string) (*vault.CreateFeatureResult, error)
	SearchFeature(ctx context.Context, groupID, audioBase64 string, topK int) (*vault.SearchResult, error)
	DeleteFeature(ctx context.Context, groupID, featureID string) (*vault.DeleteFeatureResult, error)
}

// Normalizer converts uploaded audio into the vault's canonical encoding.
type Normalizer interface {
	Normalize(data []byte, fileName string) (string, error)
}

// Directory resolves user accounts.
// Error contract: FindByID returns user.ErrNotFound when no account exists.
type Directory interface {
	FindByID(ctx context.Context, id int64) (*user.User, error)
}

const defaultTopK = 5

type Option func(*Service)

// Service implements the enrollment, identification and deletion flows. All
// writes to the vault happen before local persistence; when the local write
// fails afterwards, the vault write is compensated best-effort.
type Service struct {
	users     Directory
	templates store.TemplateStore
	attempts  store.AttemptStore
	vault     BiometricClient
	audio     Normalizer
	groupID   string
	topK      int
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(users Directory, templates store.TemplateStore, attempts store.AttemptStore, client BiometricClient, audio Normalizer, groupID string, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		users:     users,
		templates: templates,
		attempts:  attempts,
		vault:     client,
		audio:     audio,
		groupID:   groupID,
		topK:      defaultTopK,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.topK <= 0 {
		svc.topK = defaultTopK
	}
	return svc
}

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTopK overrides how many candidates a search asks the vault for.
func WithTopK(k int) Option {
	return func(s *Service) { s.topK = k }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Enroll registers a voiceprint for the given user. The vault is only
// contacted once the account is known active and not yet enrolled; a local
// persistence failure after the vault accepted the feature triggers a
// compensating delete so the vault does not accumulate orphans. An empty
// featureInfo defaults to the username.
func (s *Service) Enroll(ctx context.Context, userID int64, audioData []byte, fileName, featureInfo string) (*models.EnrollResult, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, s.enrollRejected(pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("user %d not found", userID)))
		}
		return nil, s.enrollFailed(pkgerrors.Wrap(err, pkgerrors.CodePersistence, "look up user"))
	}
	if !u.Active {
		return nil, s.enrollRejected(pkgerrors.New(pkgerrors.CodeUserInactive, fmt.Sprintf("user %d is inactive", userID)))
	}

	enrolled, err := s.templates.ExistsActiveByUserID(ctx, userID)
	if err != nil {
		return nil, s.enrollFailed(pkgerrors.Wrap(err, pkgerrors.CodePersistence, "check existing enrollment"))
	}
	if enrolled {
		return nil, s.enrollRejected(pkgerrors.New(pkgerrors.CodeAlreadyEnrolled, fmt.Sprintf("user %d already has an active voiceprint", userID)))
	}

	audioB64, err := s.audio.Normalize(audioData, fileName)
	if err != nil {
		return nil, s.enrollRejected(err)
	}

	if featureInfo == "" {
		featureInfo = u.Username
	}
	featureID := newFeatureID(userID)
	created, err := s.vault.CreateFeature(ctx, s.groupID, featureID, audioB64, featureInfo)
	if err != nil {
		return nil, s.enrollFailed(vaultError(err, "create feature"))
	}
	if created.FeatureID != featureID {
		// The vault acknowledged a different feature than we asked for.
		// Whatever it stored is not ours to keep.
		s.compensateFeature(ctx, created.FeatureID)
		return nil, s.enrollFailed(pkgerrors.New(pkgerrors.CodeIntegrityMismatch,
			fmt.Sprintf("vault echoed feature %q, expected %q", created.FeatureID, featureID)))
	}

	tmpl := &models.Template{
		UserID:         userID,
		VaultGroupID:   s.groupID,
		VaultFeatureID: featureID,
		FeatureInfo:    featureInfo,
		AudioFileName:  fileName,
		RegisteredAt:   s.now(),
		Active:         true,
	}
	if err := s.templates.Create(ctx, tmpl); err != nil {
		s.compensateFeature(ctx, featureID)
		if errors.Is(err, store.ErrDuplicateActive) {
			return nil, s.enrollRejected(err)
		}
		return nil, s.enrollFailed(pkgerrors.Wrap(err, pkgerrors.CodePersistence, "persist template"))
	}

	s.logger.Info("voiceprint enrolled",
		slog.Int64("user_id", userID),
		slog.String("feature_id", featureID),
		slog.String("file_name", fileName))
	if s.metrics != nil {
		s.metrics.EnrollmentsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
		s.metrics.AudioBytesProcessed.Add(float64(len(audioData)))
	}

	return &models.EnrollResult{
		FeatureID:     featureID,
		UserID:        userID,
		Username:      u.Username,
		AudioFileName: fileName,
	}, nil
}

// Identify runs a 1:N search over the enrolled population and returns every
// candidate that resolves to a locally known template, best score first. One
// audit row is appended per resolved candidate; a vault failure appends
// exactly one error row instead.
func (s *Service) Identify(ctx context.Context, audioData []byte, fileName string, client models.ClientContext) (*models.IdentifyResult, error) {
	start := s.now()
	requestID := newRequestID(start)

	audioB64, err := s.audio.Normalize(audioData, fileName)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IdentificationsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		}
		return nil, err
	}

	result, err := s.vault.SearchFeature(ctx, s.groupID, audioB64, s.topK)
	if err != nil {
		s.auditSearchFailure(ctx, requestID, fileName, client, err, s.since(start))
		if s.metrics != nil {
			s.metrics.IdentificationsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		}
		return nil, vaultError(err, "search features")
	}

	matches := make([]models.Match, 0, len(result.ScoreList))
	matchedAt := s.now()
	for _, cand := range result.ScoreList {
		tmpl, err := s.templates.FindByFeatureID(ctx, cand.FeatureID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Feature lives in the vault but not here, likely enrolled
				// by another deployment sharing the group. Not a match.
				s.logger.Debug("skipping unknown feature",
					slog.String("request_id", requestID),
					slog.String("feature_id", cand.FeatureID))
				continue
			}
			return nil, pkgerrors.Wrap(err, pkgerrors.CodePersistence, "resolve candidate")
		}
		u, err := s.users.FindByID(ctx, tmpl.UserID)
		if err != nil {
			s.logger.Warn("template owner missing from directory",
				slog.String("request_id", requestID),
				slog.String("feature_id", cand.FeatureID),
				slog.Int64("user_id", tmpl.UserID))
			continue
		}

		s.appendAudit(ctx, &models.Attempt{
			RequestID:            requestID,
			IdentifiedUserID:     &tmpl.UserID,
			VaultFeatureID:       cand.FeatureID,
			ConfidenceScore:      cand.Score,
			AudioFileName:        fileName,
			ProcessingDurationMS: int(s.since(start)),
			ClientIP:             client.IP,
			UserAgent:            deviceSummary(client.UserAgent),
		})
		if err := s.templates.RecordMatch(ctx, cand.FeatureID, matchedAt); err != nil {
			s.logger.Warn("failed to record match",
				slog.String("feature_id", cand.FeatureID),
				slog.Any("error", err))
		}

		matches = append(matches, models.Match{
			UserID:          tmpl.UserID,
			Username:        u.Username,
			FullName:        u.FullName,
			FeatureID:       cand.FeatureID,
			ConfidenceScore: cand.Score,
			FeatureInfo:     cand.FeatureInfo,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].ConfidenceScore > matches[j].ConfidenceScore
	})

	duration := s.since(start)
	s.logger.Info("identification completed",
		slog.String("request_id", requestID),
		slog.Int("candidates", len(result.ScoreList)),
		slog.Int("matches", len(matches)),
		slog.Int64("duration_ms", duration))
	if s.metrics != nil {
		outcome := metrics.OutcomeNoMatch
		if len(matches) > 0 {
			outcome = metrics.OutcomeMatched
		}
		s.metrics.IdentificationsTotal.WithLabelValues(outcome).Inc()
		s.metrics.AudioBytesProcessed.Add(float64(len(audioData)))
	}

	return &models.IdentifyResult{
		RequestID:            requestID,
		Matches:              matches,
		ProcessingDurationMS: duration,
	}, nil
}

// Delete removes every active voiceprint the user has, vault side first and
// locally second, each template independently. It reports false when the user
// had nothing to delete.
func (s *Service) Delete(ctx context.Context, userID int64) (bool, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return false, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("user %d not found", userID))
		}
		return false, pkgerrors.Wrap(err, pkgerrors.CodePersistence, "look up user")
	}

	tmpls, err := s.templates.FindActiveByUserID(ctx, userID)
	if err != nil {
		return false, pkgerrors.Wrap(err, pkgerrors.CodePersistence, "list templates")
	}
	if len(tmpls) == 0 {
		return false, nil
	}

	var failed []string
	for _, tmpl := range tmpls {
		if _, err := s.vault.DeleteFeature(ctx, tmpl.VaultGroupID, tmpl.VaultFeatureID); err != nil {
			s.logger.Error("vault delete failed",
				slog.String("feature_id", tmpl.VaultFeatureID),
				slog.Any("error", err))
			failed = append(failed, tmpl.VaultFeatureID)
			continue
		}
		if err := s.templates.Deactivate(ctx, tmpl.VaultFeatureID); err != nil {
			s.logger.Error("local deactivate failed",
				slog.String("feature_id", tmpl.VaultFeatureID),
				slog.Any("error", err))
			failed = append(failed, tmpl.VaultFeatureID)
		}
	}
	if len(failed) > 0 {
		if s.metrics != nil {
			s.metrics.DeletionsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		}
		return false, pkgerrors.New(pkgerrors.CodeVaultSystem,
			fmt.Sprintf("failed to delete %d of %d voiceprints", len(failed), len(tmpls)))
	}

	s.logger.Info("voiceprints deleted",
		slog.Int64("user_id", userID),
		slog.Int("count", len(tmpls)))
	if s.metrics != nil {
		s.metrics.DeletionsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	}
	return true, nil
}

// Templates returns the user's active templates. A user with no enrollment
// gets an empty slice, not an error.
func (s *Service) Templates(ctx context.Context, userID int64) ([]*models.Template, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("user %d not found", userID))
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.CodePersistence, "look up user")
	}
	tmpls, err := s.templates.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodePersistence, "list templates")
	}
	if tmpls == nil {
		tmpls = []*models.Template{}
	}
	return tmpls, nil
}

// AttemptLog reads the identification audit log, newest first. With a user
// filter it returns that user's rows; otherwise the most recent rows overall.
func (s *Service) AttemptLog(ctx context.Context, userID *int64, limit int) ([]*models.Attempt, error) {
	var (
		rows []*models.Attempt
		err  error
	)
	if userID != nil {
		rows, err = s.attempts.ListByUser(ctx, *userID)
		if err == nil && limit > 0 && len(rows) > limit {
			rows = rows[:limit]
		}
	} else {
		rows, err = s.attempts.ListRecent(ctx, limit)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodePersistence, "read audit log")
	}
	if rows == nil {
		rows = []*models.Attempt{}
	}
	return rows, nil
}

// AttemptsByRequest returns every audit row a single identification left
// behind, resolving a request ID from an earlier Identify response.
func (s *Service) AttemptsByRequest(ctx context.Context, requestID string) ([]*models.Attempt, error) {
	rows, err := s.attempts.FindByRequestID(ctx, requestID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodePersistence, "read audit log")
	}
	if rows == nil {
		rows = []*models.Attempt{}
	}
	return rows, nil
}

// Statistics aggregates enrollment and identification counts. "Today" is the
// current calendar day in the service clock's location.
func (s *Service) Statistics(ctx context.Context) (*models.Statistics, error) {
	enrolled, err := s.templates.CountActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodePersistence, "count templates")
	}
	total, err := s.attempts.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodePersistence, "count attempts")
	}
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today, err := s.attempts.CountByTimeRange(ctx, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodePersistence, "count today's attempts")
	}
	return &models.Statistics{
		TotalEnrolledUsers:   enrolled,
		TodayIdentifications: today,
		TotalIdentifications: total,
	}, nil
}

// auditSearchFailure writes the single error row a failed vault search leaves
// behind. The row never blocks the caller; a write failure is only logged.
func (s *Service) auditSearchFailure(ctx context.Context, requestID, fileName string, client models.ClientContext, searchErr error, durationMS int64) {
	row := &models.Attempt{
		RequestID:            requestID,
		AudioFileName:        fileName,
		ProcessingDurationMS: int(durationMS),
		ClientIP:             client.IP,
		UserAgent:            deviceSummary(client.UserAgent),
	}
	var apiErr *vault.APIError
	if errors.As(searchErr, &apiErr) {
		row.VaultSessionID = apiErr.Sid
		row.VaultResponseCode = apiErr.Code
		if row.VaultResponseCode == 0 {
			row.VaultResponseCode = apiErr.HTTPStatus
		}
		row.VaultResponseMessage = apiErr.Message
		if row.VaultResponseMessage == "" {
			row.VaultResponseMessage = apiErr.Body
		}
	} else {
		row.VaultResponseCode = -1
		row.VaultResponseMessage = searchErr.Error()
	}
	s.appendAudit(ctx, row)
}

func (s *Service) appendAudit(ctx context.Context, row *models.Attempt) {
	if err := s.attempts.Append(ctx, row); err != nil {
		s.logger.Error("failed to append audit row",
			slog.String("request_id", row.RequestID),
			slog.Any("error", err))
		return
	}
	if s.metrics != nil {
		s.metrics.AuditRowsTotal.Inc()
	}
}

// compensateFeature undoes a vault-side enrollment that could not be
// completed locally. Best effort: the failure is logged, never surfaced, so
// the original error reaches the caller intact.
func (s *Service) compensateFeature(ctx context.Context, featureID string) {
	if featureID == "" {
		return
	}
	if _, err := s.vault.DeleteFeature(ctx, s.groupID, featureID); err != nil {
		s.logger.Error("compensating vault delete failed",
			slog.String("feature_id", featureID),
			slog.Any("error", err))
	}
}

func (s *Service) enrollRejected(err error) error {
	if s.metrics != nil {
		s.metrics.EnrollmentsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
	}
	return err
}

func (s *Service) enrollFailed(err error) error {
	s.logger.Error("enrollment failed", slog.Any("error", err))
	if s.metrics != nil {
		s.metrics.EnrollmentsTotal.WithLabelValues(metrics.OutcomeError).Inc()
	}
	return err
}

func (s *Service) since(start time.Time) int64 {
	return s.now().Sub(start).Milliseconds()
}

func newFeatureID(userID int64) string {
	return fmt.Sprintf("user_%d_%s", userID, strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func newRequestID(at time.Time) string {
	return fmt.Sprintf("req_%d_%s", at.UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func vaultError(err error, op string) error {
	var apiErr *vault.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Domain()
	}
	return pkgerrors.Wrap(err, pkgerrors.CodeVaultSystem, op)
}

// deviceSummary condenses a raw User-Agent into the short form kept in audit
// rows, e.g. "Chrome 139.0 on Linux x86_64". Unparseable agents pass through
// unchanged.
func deviceSummary(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return raw
	}
	summary := name
	if version != "" {
		summary += " " + version
	}
	if os := ua.OS(); os != "" {
		summary += " on " + os
	}
	return summary
}
