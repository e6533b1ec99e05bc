// Package poller re-runs the dashboard pipeline on a fixed cadence.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"example.com/researchdesk/internal/domain"
	"example.com/researchdesk/internal/engine"
	"example.com/researchdesk/internal/observability"
)

// Loader supplies the current record snapshot.
type Loader interface {
	Load(ctx context.Context) ([]domain.Record, error)
}

// Option configures optional behaviour for the Poller.
type Option func(*Poller)

// WithLogger overrides the logger used for refresh reports.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Poller) {
		p.logger = logger
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		p.now = now
	}
}

// Poller refreshes the dashboard every interval. A failed refresh is logged
// and retried on the next tick; the last good dashboard stays available.
type Poller struct {
	loader   Loader
	engine   *engine.Engine
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu        sync.RWMutex
	latest    engine.Dashboard
	refreshed time.Time
	standings map[string]engine.Standing

	shutdownComplete chan struct{}
}

// New constructs a Poller.
func New(loader Loader, eng *engine.Engine, interval time.Duration, opts ...Option) *Poller {
	p := &Poller{
		loader:           loader,
		engine:           eng,
		interval:         interval,
		logger:           zap.NewNop(),
		now:              time.Now,
		standings:        make(map[string]engine.Standing),
		shutdownComplete: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start runs the refresh loop until ctx is cancelled. It should be called in a goroutine.
func (p *Poller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer func() {
		ticker.Stop()
		close(p.shutdownComplete)
	}()

	for {
		if _, err := p.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Warn("dashboard refresh failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Wait blocks until Start has returned.
func (p *Poller) Wait() {
	<-p.shutdownComplete
}

// Refresh loads the snapshot and recomputes the dashboard once.
func (p *Poller) Refresh(ctx context.Context) (engine.Dashboard, error) {
	records, err := p.loader.Load(ctx)
	if err != nil {
		observability.RecordPollError("load")
		return engine.Dashboard{}, err
	}

	now := p.now()
	dashboard, err := p.engine.Dashboard(records, p.engine.Today(now))
	if err != nil {
		observability.RecordPollError("compute")
		return engine.Dashboard{}, err
	}
	observability.RecordDashboard(dashboard, len(records), now)

	p.mu.Lock()
	p.latest = dashboard
	p.refreshed = now
	changed := p.trackStandings(dashboard.Members)
	p.mu.Unlock()

	for _, m := range changed {
		if m.Standing == engine.StandingOnPace {
			p.logger.Info("member back on pace", zap.String("member", m.Member), zap.Int("composite", m.Composite), zap.Int("pacing", dashboard.Pacing))
			continue
		}
		p.logger.Warn("member behind pace",
			zap.String("member", m.Member),
			zap.String("standing", string(m.Standing)),
			zap.Int("composite", m.Composite),
			zap.Int("pacing", dashboard.Pacing),
			zap.Bool("lowest_in_cohort", m.Lowest))
	}
	if dashboard.Orphaned > 0 {
		p.logger.Debug("records for members outside the roster", zap.Int("orphaned", dashboard.Orphaned))
	}
	return dashboard, nil
}

// trackStandings returns members whose standing differs from the previous
// refresh. On the first refresh only lagging members are reported.
func (p *Poller) trackStandings(members []engine.MemberProgress) []engine.MemberProgress {
	changed := make([]engine.MemberProgress, 0)
	for _, m := range members {
		prev, seen := p.standings[m.Member]
		p.standings[m.Member] = m.Standing
		if seen && prev == m.Standing {
			continue
		}
		if !seen && m.Standing == engine.StandingOnPace {
			continue
		}
		changed = append(changed, m)
	}
	return changed
}

// Latest returns the most recent successful dashboard and when it was computed.
// ok is false until the first refresh succeeds.
func (p *Poller) Latest() (dashboard engine.Dashboard, refreshed time.Time, ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, p.refreshed, !p.refreshed.IsZero()
}

// Invalidate drops the cached dashboard until the next successful refresh.
func (p *Poller) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest = engine.Dashboard{}
	p.refreshed = time.Time{}
}
