package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProcessedStore remembers which provider message ids were already handled,
// so queue redeliveries do not double-drive the conversation.
type ProcessedStore interface {
	// MarkProcessed records the id and reports whether it was new.
	MarkProcessed(ctx context.Context, clinicID, messageID string) (bool, error)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresProcessedStore backs dedup with an insert-if-absent row.
type PostgresProcessedStore struct {
	db execer
}

var _ ProcessedStore = (*PostgresProcessedStore)(nil)

// NewPostgresProcessedStore initializes the store backed by pgxpool.
func NewPostgresProcessedStore(pool *pgxpool.Pool) *PostgresProcessedStore {
	if pool == nil {
		panic("engine: pgx pool required")
	}
	return &PostgresProcessedStore{db: pool}
}

// NewPostgresProcessedStoreWithDB allows injecting mocks for tests.
func NewPostgresProcessedStoreWithDB(db execer) *PostgresProcessedStore {
	if db == nil {
		panic("engine: db required")
	}
	return &PostgresProcessedStore{db: db}
}

// MarkProcessed inserts the id; a conflict means a duplicate delivery.
func (s *PostgresProcessedStore) MarkProcessed(ctx context.Context, clinicID, messageID string) (bool, error) {
	query := `
		INSERT INTO processed_messages (clinic_id, message_id, processed_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (clinic_id, message_id) DO NOTHING
	`
	ct, err := s.db.Exec(ctx, query, clinicID, messageID)
	if err != nil {
		return false, fmt.Errorf("engine: mark processed: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// MemoryProcessedStore is the in-memory dedup used in development.
type MemoryProcessedStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

var _ ProcessedStore = (*MemoryProcessedStore)(nil)

// NewMemoryProcessedStore creates an empty store.
func NewMemoryProcessedStore() *MemoryProcessedStore {
	return &MemoryProcessedStore{seen: make(map[string]struct{})}
}

// MarkProcessed records the id in memory.
func (s *MemoryProcessedStore) MarkProcessed(_ context.Context, clinicID, messageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := clinicID + ":" + messageID
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = struct{}{}
	return true, nil
}
