package scheduler

import (
	"context"

	"github.com/MrSnakeDoc/linkdesk/internal/logger"
)

// Refresher reloads the document when the default branch moved.
type Refresher interface {
	Refresh(ctx context.Context) (bool, error)
}

// RemoteWatcher serves refresh requests off the request path. It never
// polls: the document only moves when someone asks for it.
type RemoteWatcher struct {
	target        Refresher
	logger        logger.Logger
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewRemoteWatcher creates a watcher fed by manualTrigger.
func NewRemoteWatcher(
	target Refresher,
	log logger.Logger,
	manualTrigger chan struct{},
) *RemoteWatcher {
	return &RemoteWatcher{
		target:        target,
		logger:        log,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start begins serving triggers in the background.
func (rw *RemoteWatcher) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-rw.manualTrigger:
				rw.logger.Info("manual refresh triggered")
				rw.Check(ctx)
			case <-rw.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the watcher
func (rw *RemoteWatcher) Stop() {
	close(rw.stopCh)
}

// Check runs one refresh and logs its outcome.
func (rw *RemoteWatcher) Check(ctx context.Context) {
	changed, err := rw.target.Refresh(ctx)
	if err != nil {
		rw.logger.Error("failed to refresh document", logger.Error(err))
		return
	}
	if changed {
		rw.logger.Info("document refreshed from default branch")
	} else {
		rw.logger.Debug("document up to date")
	}
}
