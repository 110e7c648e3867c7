package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresSessionStore persists sessions in the chat_sessions table. Slot
// data travels as JSONB so new slots never need a migration.
type PostgresSessionStore struct {
	db *sql.DB
}

var _ SessionStore = (*PostgresSessionStore)(nil)

// NewPostgresSessionStore initializes the store.
func NewPostgresSessionStore(db *sql.DB) *PostgresSessionStore {
	if db == nil {
		panic("engine: sql db required")
	}
	return &PostgresSessionStore{db: db}
}

// Get loads the session for the pair or returns ErrSessionNotFound.
func (s *PostgresSessionStore) Get(ctx context.Context, clinicID, phone string) (*Session, error) {
	query := `
		SELECT clinic_id, phone, state, data, created_at, updated_at
		FROM chat_sessions
		WHERE clinic_id = $1 AND phone = $2
	`
	var (
		session Session
		state   string
		raw     []byte
	)
	err := s.db.QueryRowContext(ctx, query, clinicID, phone).Scan(
		&session.ClinicID,
		&session.Phone,
		&state,
		&raw,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("engine: get session: %w", err)
	}
	session.State = State(state)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &session.Data); err != nil {
			return nil, fmt.Errorf("engine: decode session data: %w", err)
		}
	}
	return &session, nil
}

// Save upserts the session keyed on (clinic_id, phone).
func (s *PostgresSessionStore) Save(ctx context.Context, session *Session) error {
	raw, err := json.Marshal(session.Data)
	if err != nil {
		return fmt.Errorf("engine: encode session data: %w", err)
	}
	query := `
		INSERT INTO chat_sessions (clinic_id, phone, state, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (clinic_id, phone)
		DO UPDATE SET state = EXCLUDED.state, data = EXCLUDED.data, updated_at = NOW()
	`
	if _, err := s.db.ExecContext(ctx, query, session.ClinicID, session.Phone, string(session.State), raw); err != nil {
		return fmt.Errorf("engine: save session: %w", err)
	}
	return nil
}
