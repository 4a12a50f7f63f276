package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// PostgresStore keeps the session record in a shared operations database,
// one row per profile. Suited to kiosk fleets where the back office owns
// the terminals' sessions centrally.
type PostgresStore struct {
	db      *sql.DB
	profile string
}

func NewPostgresStore(ctx context.Context, db *sql.DB, profile string) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	profile = strings.TrimSpace(profile)
	if profile == "" {
		return nil, fmt.Errorf("session profile is required")
	}
	s := &PostgresStore{db: db, profile: profile}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS gateway_sessions (
	profile TEXT PRIMARY KEY,
	auth_token TEXT NOT NULL DEFAULT '',
	refresh_token TEXT NOT NULL DEFAULT '',
	user_json TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("ensure gateway_sessions schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (Record, error) {
	const q = `SELECT auth_token, refresh_token, user_json FROM gateway_sessions WHERE profile = $1`

	var rec Record
	var userJSON string
	err := s.db.QueryRowContext(ctx, q, s.profile).Scan(&rec.AccessToken, &rec.RefreshToken, &userJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, nil
	}
	if err != nil {
		return Record{}, fmt.Errorf("query session row: %w", err)
	}
	if userJSON != "" {
		rec.User = []byte(userJSON)
	}
	return rec, nil
}

func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	const q = `
INSERT INTO gateway_sessions (profile, auth_token, refresh_token, user_json, updated_at)
	VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (profile) DO UPDATE
	SET auth_token = EXCLUDED.auth_token,
	    refresh_token = EXCLUDED.refresh_token,
	    user_json = EXCLUDED.user_json,
	    updated_at = NOW()`

	if _, err := s.db.ExecContext(ctx, q, s.profile, rec.AccessToken, rec.RefreshToken, string(rec.User)); err != nil {
		return fmt.Errorf("upsert session row: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	const q = `DELETE FROM gateway_sessions WHERE profile = $1`
	if _, err := s.db.ExecContext(ctx, q, s.profile); err != nil {
		return fmt.Errorf("delete session row: %w", err)
	}
	return nil
}
