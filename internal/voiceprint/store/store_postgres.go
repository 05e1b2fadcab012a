package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"voicegate/internal/voiceprint/models"
)

const pgUniqueViolation = "23505"

// PostgresTemplateStore persists templates in PostgreSQL. The partial unique
// index on (user_id) WHERE is_active turns a concurrent double-enroll into a
// unique violation, which surfaces as ErrDuplicateActive.
type PostgresTemplateStore struct {
	db *sql.DB
}

// NewPostgresTemplateStore constructs a PostgreSQL-backed template store.
func NewPostgresTemplateStore(db *sql.DB) *PostgresTemplateStore {
	return &PostgresTemplateStore{db: db}
}

func (s *PostgresTemplateStore) Create(ctx context.Context, t *models.Template) error {
	query := `
		INSERT INTO voiceprint_templates
			(user_id, vault_group_id, vault_feature_id, feature_info,
			 audio_file_name, registered_at, match_count, is_active)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		t.UserID, t.VaultGroupID, t.VaultFeatureID, t.FeatureInfo,
		t.AudioFileName, t.RegisteredAt, t.MatchCount, t.Active,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateActive
		}
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

func (s *PostgresTemplateStore) FindByFeatureID(ctx context.Context, featureID string) (*models.Template, error) {
	query := templateSelect + ` WHERE vault_feature_id = $1`
	t, err := scanTemplate(s.db.QueryRowContext(ctx, query, featureID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find template: %w", err)
	}
	return t, nil
}

func (s *PostgresTemplateStore) FindActiveByUserID(ctx context.Context, userID int64) ([]*models.Template, error) {
	query := templateSelect + ` WHERE user_id = $1 AND is_active ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list active templates: %w", err)
	}
	defer rows.Close()

	var out []*models.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresTemplateStore) ExistsActiveByUserID(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM voiceprint_templates WHERE user_id = $1 AND is_active)`,
		userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active template: %w", err)
	}
	return exists, nil
}

func (s *PostgresTemplateStore) RecordMatch(ctx context.Context, featureID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE voiceprint_templates
		SET match_count = match_count + 1, last_matched_at = $2, updated_at = now()
		WHERE vault_feature_id = $1
	`, featureID, at)
	if err != nil {
		return fmt.Errorf("record match: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresTemplateStore) Deactivate(ctx context.Context, featureID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE voiceprint_templates
		SET is_active = FALSE, updated_at = now()
		WHERE vault_feature_id = $1
	`, featureID)
	if err != nil {
		return fmt.Errorf("deactivate template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresTemplateStore) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM voiceprint_templates WHERE is_active`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active templates: %w", err)
	}
	return n, nil
}

const templateSelect = `
	SELECT id, user_id, vault_group_id, vault_feature_id,
	       COALESCE(feature_info, ''), COALESCE(audio_file_name, ''),
	       registered_at, last_matched_at, match_count, is_active,
	       created_at, updated_at
	FROM voiceprint_templates
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*models.Template, error) {
	var t models.Template
	var lastMatched sql.NullTime
	err := row.Scan(
		&t.ID, &t.UserID, &t.VaultGroupID, &t.VaultFeatureID,
		&t.FeatureInfo, &t.AudioFileName,
		&t.RegisteredAt, &lastMatched, &t.MatchCount, &t.Active,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastMatched.Valid {
		t.LastMatchedAt = &lastMatched.Time
	}
	return &t, nil
}

// PostgresAttemptStore appends audit rows in PostgreSQL.
type PostgresAttemptStore struct {
	db *sql.DB
}

// NewPostgresAttemptStore constructs a PostgreSQL-backed attempt store.
func NewPostgresAttemptStore(db *sql.DB) *PostgresAttemptStore {
	return &PostgresAttemptStore{db: db}
}

func (s *PostgresAttemptStore) Append(ctx context.Context, a *models.Attempt) error {
	query := `
		INSERT INTO identification_attempts
			(request_id, identified_user_id, vault_feature_id, confidence_score,
			 audio_file_name, vault_session_id, vault_response_code,
			 vault_response_message, processing_duration_ms, client_ip, user_agent)
		VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), NULLIF($6, ''), $7,
		        NULLIF($8, ''), $9, NULLIF($10, ''), NULLIF($11, ''))
		RETURNING id, created_at
	`
	err := s.db.QueryRowContext(ctx, query,
		a.RequestID, a.IdentifiedUserID, a.VaultFeatureID, a.ConfidenceScore,
		a.AudioFileName, a.VaultSessionID, a.VaultResponseCode,
		a.VaultResponseMessage, a.ProcessingDurationMS, a.ClientIP, a.UserAgent,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("append attempt: %w", err)
	}
	return nil
}

func (s *PostgresAttemptStore) FindByRequestID(ctx context.Context, requestID string) ([]*models.Attempt, error) {
	query := attemptSelect + ` WHERE request_id = $1 ORDER BY confidence_score DESC, id`
	return s.queryAttempts(ctx, query, requestID)
}

func (s *PostgresAttemptStore) ListByUser(ctx context.Context, userID int64) ([]*models.Attempt, error) {
	query := attemptSelect + ` WHERE identified_user_id = $1 ORDER BY created_at DESC`
	return s.queryAttempts(ctx, query, userID)
}

func (s *PostgresAttemptStore) ListRecent(ctx context.Context, limit int) ([]*models.Attempt, error) {
	query := attemptSelect + ` ORDER BY created_at DESC LIMIT $1`
	return s.queryAttempts(ctx, query, limit)
}

func (s *PostgresAttemptStore) CountByTimeRange(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM identification_attempts WHERE created_at >= $1 AND created_at < $2`,
		from, to,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count attempts by range: %w", err)
	}
	return n, nil
}

func (s *PostgresAttemptStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM identification_attempts`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return n, nil
}

const attemptSelect = `
	SELECT id, request_id, identified_user_id, COALESCE(vault_feature_id, ''),
	       confidence_score, COALESCE(audio_file_name, ''),
	       COALESCE(vault_session_id, ''), vault_response_code,
	       COALESCE(vault_response_message, ''), processing_duration_ms,
	       COALESCE(client_ip, ''), COALESCE(user_agent, ''), created_at
	FROM identification_attempts
`

func (s *PostgresAttemptStore) queryAttempts(ctx context.Context, query string, args ...any) ([]*models.Attempt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []*models.Attempt
	for rows.Next() {
		var a models.Attempt
		var userID sql.NullInt64
		err := rows.Scan(
			&a.ID, &a.RequestID, &userID, &a.VaultFeatureID,
			&a.ConfidenceScore, &a.AudioFileName,
			&a.VaultSessionID, &a.VaultResponseCode,
			&a.VaultResponseMessage, &a.ProcessingDurationMS,
			&a.ClientIP, &a.UserAgent, &a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if userID.Valid {
			a.IdentifiedUserID = &userID.Int64
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
