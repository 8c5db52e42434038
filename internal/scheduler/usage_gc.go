package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/linkdesk/internal/index"
	"github.com/MrSnakeDoc/linkdesk/internal/logger"
)

// UsagePruner drops usage counters of aliases outside keep.
type UsagePruner interface {
	PruneUsage(ctx context.Context, keep map[string]bool) error
}

// GarbageCollector handles cleanup of usage counters left behind by
// aliases that were renamed or deleted.
type GarbageCollector struct {
	store    UsagePruner
	index    *index.MemoryIndex
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewGarbageCollector creates a new garbage collector
func NewGarbageCollector(
	store UsagePruner,
	idx *index.MemoryIndex,
	log logger.Logger,
	interval time.Duration,
) *GarbageCollector {
	return &GarbageCollector{
		store:    store,
		index:    idx,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic garbage collection process
func (gc *GarbageCollector) Start(ctx context.Context) {
	if gc.interval <= 0 {
		gc.logger.Info("usage garbage collection disabled")
		return
	}

	ticker := time.NewTicker(gc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := gc.Collect(ctx); err != nil {
					gc.logger.Error("garbage collection failed",
						logger.Error(err))
				}
			case <-gc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the garbage collector
func (gc *GarbageCollector) Stop() {
	close(gc.stopCh)
}

// Collect prunes counters of aliases missing from the index. An empty
// index is skipped so a failed first load cannot wipe every counter.
func (gc *GarbageCollector) Collect(ctx context.Context) error {
	if gc.store == nil {
		return nil
	}

	links := gc.index.All()
	if len(links) == 0 {
		gc.logger.Debug("index empty, skipping usage garbage collection")
		return nil
	}

	keep := make(map[string]bool, len(links))
	for _, l := range links {
		keep[l.Alias] = true
	}
	if err := gc.store.PruneUsage(ctx, keep); err != nil {
		return err
	}

	gc.logger.Info("usage garbage collection completed",
		logger.Int("aliases_kept", len(keep)))
	return nil
}
