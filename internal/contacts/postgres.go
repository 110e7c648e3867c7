// Package contacts looks up the clinic's patients and leads by phone so
// reservations can be attached to the right record. Classification logic
// (lead vs. patient promotion) lives outside the booking engine.
package contacts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no contact matched the phone for the clinic.
var ErrNotFound = errors.New("contacts: not found")

// Patient is a registered clinic patient.
type Patient struct {
	ID       uuid.UUID
	ClinicID string
	Name     string
	Phone    string
}

// Lead is a prospective patient captured by marketing.
type Lead struct {
	ID       uuid.UUID
	ClinicID string
	Name     string
	Phone    string
}

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository resolves contacts from the relational database.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("contacts: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting mocks for tests.
func NewPostgresRepositoryWithDB(d db) *PostgresRepository {
	if d == nil {
		panic("contacts: db required")
	}
	return &PostgresRepository{db: d}
}

// FindPatientByPhone matches a patient on the digits-only phone.
func (r *PostgresRepository) FindPatientByPhone(ctx context.Context, clinicID, phone string) (*Patient, error) {
	query := `
		SELECT id, clinic_id, name, phone
		FROM patients
		WHERE clinic_id = $1 AND phone = $2
		LIMIT 1
	`
	var p Patient
	if err := r.db.QueryRow(ctx, query, clinicID, phone).Scan(&p.ID, &p.ClinicID, &p.Name, &p.Phone); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("contacts: select patient failed: %w", err)
	}
	return &p, nil
}

// FindLeadByPhone matches a lead on the digits-only phone.
func (r *PostgresRepository) FindLeadByPhone(ctx context.Context, clinicID, phone string) (*Lead, error) {
	query := `
		SELECT id, clinic_id, name, phone
		FROM leads
		WHERE clinic_id = $1 AND phone = $2
		LIMIT 1
	`
	var l Lead
	if err := r.db.QueryRow(ctx, query, clinicID, phone).Scan(&l.ID, &l.ClinicID, &l.Name, &l.Phone); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("contacts: select lead failed: %w", err)
	}
	return &l, nil
}
