package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/crypto_pair_screener/internal/domain"
)

// The poll cadence is deliberately generous: one bulk 24h refresh per
// minute stays far inside the exchange's weight budget, so a failed
// cycle just waits for the next one instead of escalating.
const (
	DefaultPollInterval = 60 * time.Second
	DefaultPollTimeout  = 10 * time.Second
)

// StatsPoller refreshes the 24h statistics for the whole active
// universe on a fixed cadence. A cycle either fully replaces the
// snapshot set or leaves the previous one untouched.
type StatsPoller struct {
	source   domain.StatsSource
	view     *MarketView
	registry *PairRegistry
	log      *zap.Logger
	interval time.Duration
	timeout  time.Duration
}

func NewStatsPoller(source domain.StatsSource, view *MarketView, registry *PairRegistry, log *zap.Logger, interval, timeout time.Duration) *StatsPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	return &StatsPoller{
		source:   source,
		view:     view,
		registry: registry,
		log:      log,
		interval: interval,
		timeout:  timeout,
	}
}

// Run polls once immediately, then on every tick until ctx is
// cancelled.
func (p *StatsPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll runs one cycle: bulk-fetch stats for the symbols active right
// now and apply them atomically. Failures are logged and the cycle is
// skipped; the next one runs at the normal cadence.
func (p *StatsPoller) Poll(ctx context.Context) {
	universe := p.registry.Current()
	if universe.Size() == 0 {
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	snaps, err := p.source.GetStats24h(reqCtx, universe.Symbols())
	if err != nil {
		p.log.Warn("stats poll failed", zap.Error(err), zap.Uint64("version", universe.Version))
		return
	}

	if err := p.apply(universe, snaps); err != nil {
		p.log.Warn("stats poll discarded", zap.Error(err))
		return
	}
	p.log.Debug("stats applied",
		zap.Int("symbols", universe.Size()),
		zap.Uint64("version", universe.Version))
}

// apply validates full symbol coverage, applies the snapshot set
// atomically and feeds the fresh volumes back into the registry so
// provisional duplicates resolve.
func (p *StatsPoller) apply(universe domain.PairUniverse, snaps []domain.StatsSnapshot) error {
	bySymbol := make(map[string]domain.StatsSnapshot, len(snaps))
	volumes := make(map[string]float64, len(snaps))
	for _, snap := range snaps {
		bySymbol[snap.Symbol] = snap
		volumes[snap.Symbol] = snap.Volume
	}

	for _, symbol := range universe.Symbols() {
		if _, ok := bySymbol[symbol]; !ok {
			return &domain.PollError{Err: fmt.Errorf("missing stats for %s", symbol)}
		}
	}

	if !p.view.ApplySnapshots(universe.Version, bySymbol) {
		return &domain.PollError{Err: fmt.Errorf("universe version %d no longer active", universe.Version)}
	}

	p.registry.RecordVolumes(volumes)
	p.registry.ResolveDuplicates()
	return nil
}
