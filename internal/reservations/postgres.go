package reservations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgxpool.Pool the repository needs; pgxmock satisfies
// it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores reservations in the relational database.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("reservations: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting mocks for tests.
func NewPostgresRepositoryWithDB(db DB) *PostgresRepository {
	if db == nil {
		panic("reservations: db required")
	}
	return &PostgresRepository{db: db}
}

// Create inserts a new reservation row. A storage-level overlap violation is
// surfaced as ErrOverlap so the caller can treat it as a normal conflict.
func (r *PostgresRepository) Create(ctx context.Context, res *Reservation) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	query := `
		INSERT INTO reservations (id, clinic_id, patient_id, lead_id, phone, title, description, starts_at, ends_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	if err := r.db.QueryRow(ctx, query,
		res.ID,
		res.ClinicID,
		res.PatientID,
		res.LeadID,
		res.Phone,
		res.Title,
		res.Description,
		res.StartsAt,
		res.EndsAt,
		res.Status,
	).Scan(&res.CreatedAt); err != nil {
		if isOverlapViolation(err) {
			return ErrOverlap
		}
		return fmt.Errorf("reservations: insert failed: %w", err)
	}
	return nil
}

// GetForClinic fetches a reservation scoped to the clinic.
func (r *PostgresRepository) GetForClinic(ctx context.Context, clinicID string, id uuid.UUID) (*Reservation, error) {
	query := `
		SELECT id, clinic_id, patient_id, lead_id, phone, title, description, starts_at, ends_at, status, created_at
		FROM reservations
		WHERE id = $1 AND clinic_id = $2
	`
	row := r.db.QueryRow(ctx, query, id, clinicID)
	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reservations: select failed: %w", err)
	}
	return res, nil
}

// LatestByPhone returns the contact's most recent non-cancelled reservation
// for the clinic, ordered by start time descending.
func (r *PostgresRepository) LatestByPhone(ctx context.Context, clinicID, phone string) (*Reservation, error) {
	query := `
		SELECT id, clinic_id, patient_id, lead_id, phone, title, description, starts_at, ends_at, status, created_at
		FROM reservations
		WHERE clinic_id = $1 AND phone = $2 AND status <> $3
		ORDER BY starts_at DESC
		LIMIT 1
	`
	row := r.db.QueryRow(ctx, query, clinicID, phone, StatusCancelled)
	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reservations: select latest failed: %w", err)
	}
	return res, nil
}

// UpdateInterval moves a reservation to a new [start, end) window and status.
// Overlap violations map to ErrOverlap; a missing row maps to ErrNotFound.
func (r *PostgresRepository) UpdateInterval(ctx context.Context, clinicID string, id uuid.UUID, start, end time.Time, status string) error {
	query := `
		UPDATE reservations
		SET starts_at = $1, ends_at = $2, status = $3
		WHERE id = $4 AND clinic_id = $5
	`
	ct, err := r.db.Exec(ctx, query, start, end, status, id, clinicID)
	if err != nil {
		if isOverlapViolation(err) {
			return ErrOverlap
		}
		return fmt.Errorf("reservations: update failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountOverlapping counts non-cancelled reservations whose half-open interval
// intersects [start, end). Touching endpoints do not intersect. excludeID
// (when non-nil uuid) removes the reservation being rescheduled from the
// check.
func (r *PostgresRepository) CountOverlapping(ctx context.Context, clinicID string, start, end time.Time, excludeID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM reservations
		WHERE clinic_id = $1
		  AND status <> $2
		  AND starts_at < $3
		  AND ends_at > $4
		  AND ($5::uuid IS NULL OR id <> $5)
	`
	var exclude any
	if excludeID != uuid.Nil {
		exclude = excludeID
	}
	var count int
	if err := r.db.QueryRow(ctx, query, clinicID, StatusCancelled, end, start, exclude).Scan(&count); err != nil {
		return 0, fmt.Errorf("reservations: count overlapping failed: %w", err)
	}
	return count, nil
}

func scanReservation(row pgx.Row) (*Reservation, error) {
	var res Reservation
	if err := row.Scan(
		&res.ID,
		&res.ClinicID,
		&res.PatientID,
		&res.LeadID,
		&res.Phone,
		&res.Title,
		&res.Description,
		&res.StartsAt,
		&res.EndsAt,
		&res.Status,
		&res.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &res, nil
}

// isOverlapViolation recognizes both the gist exclusion constraint (23P01)
// and a plain unique violation (23505) as lost conflict races.
func isOverlapViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23P01" || pgErr.Code == "23505"
}
