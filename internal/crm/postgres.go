// Package crm requests sales-pipeline stage transitions. The engine never
// owns cards or stages; it only asks to move a contact's open card to the
// scheduled stage after a booking lands.
package crm

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ScheduledStage is the stage name a booked contact's card moves to.
const ScheduledStage = "Scheduled"

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository mutates CRM cards in the relational database.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("crm: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting mocks for tests.
func NewPostgresRepositoryWithDB(d db) *PostgresRepository {
	if d == nil {
		panic("crm: db required")
	}
	return &PostgresRepository{db: d}
}

// MoveCardToStage moves the contact's open card to the named stage. Missing
// card or stage is not an error: the pipeline simply has nothing to move.
// Returns whether a card was transitioned.
func (r *PostgresRepository) MoveCardToStage(ctx context.Context, clinicID, phone, stageName string) (bool, error) {
	query := `
		UPDATE crm_cards
		SET stage_id = s.id, updated_at = NOW()
		FROM crm_stages s
		WHERE s.clinic_id = $1 AND s.name = $2
		  AND crm_cards.clinic_id = $1
		  AND crm_cards.phone = $3
		  AND crm_cards.status = 'open'
	`
	ct, err := r.db.Exec(ctx, query, clinicID, stageName, phone)
	if err != nil {
		return false, fmt.Errorf("crm: move card to stage: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}
