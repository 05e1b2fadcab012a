package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresDirectory reads accounts from PostgreSQL.
type PostgresDirectory struct {
	db *sql.DB
}

// NewPostgresDirectory constructs a PostgreSQL-backed directory.
func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) FindByID(ctx context.Context, id int64) (*User, error) {
	query := `
		SELECT id, username, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(full_name, ''),
		       is_active, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var u User
	err := d.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Username, &u.Email, &u.Phone, &u.FullName,
		&u.Active, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}
