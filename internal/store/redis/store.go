package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultSyncTTL bounds how long a sync record outlives its process
const DefaultSyncTTL = 7 * 24 * time.Hour

// SyncRecord describes the last document the resolver was built from.
type SyncRecord struct {
	Revision string    `json:"revision"`
	Aliases  int       `json:"aliases"`
	SyncedAt time.Time `json:"synced_at"`
}

// Store handles Redis operations for the resolver cache and usage stats
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// SaveSync records the revision the resolver was last built from
func (s *Store) SaveSync(ctx context.Context, rec SyncRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal sync record: %w", err)
	}
	if err := s.client.Set(ctx, SyncKey(), data, DefaultSyncTTL).Err(); err != nil {
		return fmt.Errorf("failed to save sync record: %w", err)
	}
	return nil
}

// GetSync returns the last sync record, or nil when none exists
func (s *Store) GetSync(ctx context.Context) (*SyncRecord, error) {
	data, err := s.client.Get(ctx, SyncKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get sync record: %w", err)
	}

	var rec SyncRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sync record: %w", err)
	}
	return &rec, nil
}
