package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Store persists per-clinic catalog overrides as JSON in Redis.
type Store struct {
	redis *redis.Client
}

// NewStore creates a catalog override store.
func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

func (s *Store) key(clinicID string) string {
	return fmt.Sprintf("catalog:override:%s", clinicID)
}

// Get retrieves the clinic's override map, returning an empty map when none
// is configured.
func (s *Store) Get(ctx context.Context, clinicID string) (map[string]Entry, error) {
	if s == nil || s.redis == nil {
		return map[string]Entry{}, nil
	}
	data, err := s.redis.Get(ctx, s.key(clinicID)).Bytes()
	if err == redis.Nil {
		return map[string]Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get override: %w", err)
	}

	var override map[string]Entry
	if err := json.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("catalog: unmarshal override: %w", err)
	}
	return override, nil
}

// Set saves the clinic's override map.
func (s *Store) Set(ctx context.Context, clinicID string, override map[string]Entry) error {
	if s == nil || s.redis == nil {
		return nil
	}
	data, err := json.Marshal(override)
	if err != nil {
		return fmt.Errorf("catalog: marshal override: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(clinicID), data, 0).Err(); err != nil {
		return fmt.Errorf("catalog: set override: %w", err)
	}
	return nil
}
