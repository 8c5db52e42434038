package redis

import (
	"context"
	"fmt"
	"strconv"
)

// IncrementUsage increments the resolution counter of an alias
func (s *Store) IncrementUsage(ctx context.Context, alias string) error {
	if err := s.client.HIncrBy(ctx, UsageKey(), alias, 1).Err(); err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
	}
	return nil
}

// GetUsageStats retrieves the counters of every alias ever resolved
func (s *Store) GetUsageStats(ctx context.Context) (map[string]int64, error) {
	raw, err := s.client.HGetAll(ctx, UsageKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get usage stats: %w", err)
	}

	stats := make(map[string]int64, len(raw))
	for alias, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			// Skip counters that are not integers
			continue
		}
		stats[alias] = n
	}
	return stats, nil
}

// PruneUsage drops counters of aliases that no longer exist
func (s *Store) PruneUsage(ctx context.Context, keep map[string]bool) error {
	aliases, err := s.client.HKeys(ctx, UsageKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to list usage keys: %w", err)
	}

	var stale []string
	for _, a := range aliases {
		if !keep[a] {
			stale = append(stale, a)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, UsageKey(), stale...).Err(); err != nil {
		return fmt.Errorf("failed to prune usage: %w", err)
	}
	return nil
}
