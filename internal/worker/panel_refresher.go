package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/procon/attendance-service/internal/panel"
)

// Refresher re-pushes the current roster to the panel sinks.
type Refresher interface {
	Refresh(ctx context.Context) []panel.Entry
}

// PanelRefresher periodically republishes the roster so displays that
// missed a push converge without waiting for the next call.
type PanelRefresher struct {
	cron      *cron.Cron
	refresher Refresher
	timeout   time.Duration
	logger    *zap.Logger
}

// NewPanelRefresher schedules refresher on schedule. An empty schedule
// yields a nil refresher; Start and Stop are no-ops on nil.
func NewPanelRefresher(schedule string, refresher Refresher, timeout time.Duration, logger *zap.Logger) (*PanelRefresher, error) {
	if schedule == "" || refresher == nil {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	r := &PanelRefresher{
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		refresher: refresher,
		timeout:   timeout,
		logger:    logger,
	}
	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return nil, fmt.Errorf("invalid panel refresh schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start begins executing the schedule in the background.
func (r *PanelRefresher) Start() {
	if r == nil {
		return
	}
	r.logger.Info("panel refresher started")
	r.cron.Start()
}

// Stop halts the schedule and waits for a running refresh to return.
func (r *PanelRefresher) Stop(ctx context.Context) {
	if r == nil {
		return
	}
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		r.logger.Warn("panel refresher stop timed out")
	}
}

func (r *PanelRefresher) run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	roster := r.refresher.Refresh(ctx)
	r.logger.Debug("panel roster refreshed", zap.Int("entries", len(roster)))
}
