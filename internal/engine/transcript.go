package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTranscript keeps a rolling conversation transcript per contact in a
// Redis list. Purely observational; the state machine never reads it back.
type RedisTranscript struct {
	redis *redis.Client
	ttl   time.Duration
}

var _ Transcript = (*RedisTranscript)(nil)

// NewRedisTranscript creates a transcript store. ttl <= 0 keeps transcripts
// forever.
func NewRedisTranscript(client *redis.Client, ttl time.Duration) *RedisTranscript {
	if client == nil {
		panic("engine: redis client required")
	}
	return &RedisTranscript{redis: client, ttl: ttl}
}

func transcriptKey(clinicID, phone string) string {
	return fmt.Sprintf("transcript:%s:%s", clinicID, phone)
}

// Append records one line, refreshing the key TTL.
func (t *RedisTranscript) Append(ctx context.Context, clinicID, phone, direction, body string) error {
	key := transcriptKey(clinicID, phone)
	line := fmt.Sprintf("%s %s %s", time.Now().UTC().Format(time.RFC3339), direction, body)
	if err := t.redis.RPush(ctx, key, line).Err(); err != nil {
		return fmt.Errorf("engine: transcript push: %w", err)
	}
	if t.ttl > 0 {
		if err := t.redis.Expire(ctx, key, t.ttl).Err(); err != nil {
			return fmt.Errorf("engine: transcript expire: %w", err)
		}
	}
	return nil
}

// Recent returns up to n most recent lines, oldest first.
func (t *RedisTranscript) Recent(ctx context.Context, clinicID, phone string, n int64) ([]string, error) {
	if n <= 0 {
		n = 50
	}
	lines, err := t.redis.LRange(ctx, transcriptKey(clinicID, phone), -n, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("engine: transcript range: %w", err)
	}
	return lines, nil
}
