package health

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"leadflow/internal/platform/models"
	"leadflow/internal/platform/observability"
	"leadflow/internal/platform/repositories"
)

// Monitor polls every active integration on a fixed interval and writes the
// derived status record. It owns no goroutine until Start is called and
// stops cleanly via Stop or context cancellation.
type Monitor struct {
	integrations *repositories.IntegrationRepository
	statuses     *repositories.StatusRepository
	checkers     map[string]Checker
	interval     time.Duration

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}

	now func() time.Time
}

func NewMonitor(
	integrations *repositories.IntegrationRepository,
	statuses *repositories.StatusRepository,
	checkers map[string]Checker,
	interval time.Duration,
) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Monitor{
		integrations: integrations,
		statuses:     statuses,
		checkers:     checkers,
		interval:     interval,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
		now:          time.Now,
	}
}

// Start launches the polling loop. The first cycle runs immediately rather
// than one interval in. Calling Start twice is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(m.done)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.RunCycle(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stop:
				return
			case <-ticker.C:
				m.RunCycle(ctx)
			}
		}
	}()
}

// Stop signals the loop and blocks until it exits. Safe to call more than
// once; before Start it only marks the monitor stopped, without waiting.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	if !m.started.Load() {
		return
	}
	select {
	case <-m.done:
	case <-time.After(30 * time.Second):
		log.Warn().Msg("integration monitor did not stop within 30s")
	}
}

// RunCycle checks every active integration once, sequentially. A failing
// integration never aborts the cycle.
func (m *Monitor) RunCycle(ctx context.Context) {
	integrations, err := m.integrations.ListActive()
	if err != nil {
		log.Error().Err(err).Msg("integration monitor: listing active integrations failed")
		return
	}

	for _, integ := range integrations {
		if ctx.Err() != nil {
			return
		}
		m.checkOne(ctx, integ)
	}
}

func (m *Monitor) checkOne(ctx context.Context, integ *models.Integration) {
	status, err := m.statuses.Ensure(integ.ID)
	if err != nil {
		log.Error().Err(err).Str("integration_id", integ.ID).Msg("integration monitor: status lookup failed")
		return
	}

	verdict := m.runChecker(ctx, integ, status)
	observability.HealthChecks.WithLabelValues(integ.Type, verdict.Status).Inc()

	now := m.now().Unix()
	status.Status = verdict.Status
	status.StatusText = verdict.StatusText
	status.LastErrorMessage = verdict.Error
	status.UpdatedAt = now
	next := now + int64(m.interval.Seconds())
	status.NextSyncTime = &next

	if verdict.Connected() {
		status.LastSyncTime = &now
		status.ErrorCount = 0
	} else {
		status.ErrorCount++
	}

	if err := m.statuses.Update(status); err != nil {
		log.Error().Err(err).Str("integration_id", integ.ID).Msg("integration monitor: status write failed")
		return
	}

	log.Debug().
		Str("integration_id", integ.ID).
		Str("type", integ.Type).
		Str("status", verdict.Status).
		Str("status_text", verdict.StatusText).
		Int("error_count", status.ErrorCount).
		Msg("integration checked")
}

// runChecker dispatches by type with a panic guard: a blown-up checker
// becomes a System Error verdict, never a dead monitor.
func (m *Monitor) runChecker(ctx context.Context, integ *models.Integration, status *models.IntegrationStatus) (verdict Verdict) {
	defer func() {
		if r := recover(); r != nil {
			verdict = Verdict{
				Status:     models.StatusDisconnected,
				StatusText: "System Error",
				Error:      fmt.Sprintf("%v", r),
			}
		}
	}()

	checker, ok := m.checkers[integ.Type]
	if !ok {
		return Verdict{Status: models.StatusDisconnected, StatusText: "Unknown Type", Error: "no checker for type " + integ.Type}
	}
	return checker.Check(ctx, integ, status)
}
