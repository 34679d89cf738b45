package usecase

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/vitos/crypto_pair_screener/internal/domain"
)

// PairRegistry owns the active pair universe: the quote-asset filter
// and the set of symbols derived from it. Every filter change passes
// through the rate gate; consumers learn about membership changes via
// Subscribe.
type PairRegistry struct {
	directory domain.MarketDirectory
	gate      *RateGate
	view      *MarketView
	log       *zap.Logger

	mu          sync.Mutex
	instruments []domain.Instrument
	universe    domain.PairUniverse
	version     uint64
	// Last known 24h volume per symbol, fed by applied polls. Survives
	// universe changes so a resolved duplicate does not reappear when
	// its loser variant stops being polled.
	volumes map[string]float64

	notifyMu sync.Mutex
	subs     []chan domain.PairUniverse
}

func NewPairRegistry(directory domain.MarketDirectory, gate *RateGate, view *MarketView, log *zap.Logger) *PairRegistry {
	return &PairRegistry{
		directory: directory,
		gate:      gate,
		view:      view,
		log:       log,
		volumes:   make(map[string]float64),
	}
}

// Current returns the active universe.
func (r *PairRegistry) Current() domain.PairUniverse {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.universe
}

// Subscribe returns a channel carrying universe changes. The channel
// holds only the latest universe: a slow consumer never blocks the
// registry and always wakes to the freshest set.
func (r *PairRegistry) Subscribe() <-chan domain.PairUniverse {
	ch := make(chan domain.PairUniverse, 1)
	r.notifyMu.Lock()
	r.subs = append(r.subs, ch)
	r.notifyMu.Unlock()
	return ch
}

// SetFilter switches the active quote selection and rebuilds the
// universe from the instrument directory. A denied attempt returns
// ErrRateLimited and leaves the previous universe intact.
func (r *PairRegistry) SetFilter(ctx context.Context, filter domain.QuoteFilter) (domain.PairUniverse, error) {
	if !r.gate.Allow() {
		return r.Current(), domain.ErrRateLimited
	}

	instruments, err := r.directory.GetInstruments(ctx)
	if err != nil {
		return r.Current(), fmt.Errorf("list instruments: %w", err)
	}

	r.mu.Lock()
	r.instruments = instruments
	pairs := r.selectPairs(instruments, filter)
	r.version++
	r.universe = domain.NewPairUniverse(filter, pairs, r.version)
	u := r.universe
	// Publish before releasing the lock so the view and subscribers
	// always see universes in version order.
	r.view.SetUniverse(u)
	r.notify(u)
	r.mu.Unlock()

	r.log.Info("universe switched",
		zap.String("filter", filter.String()),
		zap.Int("pairs", u.Size()),
		zap.Uint64("version", u.Version))
	return u, nil
}

// RecordVolumes merges the 24h volumes from an applied poll into the
// registry's lookup used for duplicate resolution.
func (r *PairRegistry) RecordVolumes(volumes map[string]float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for symbol, vol := range volumes {
		r.volumes[symbol] = vol
	}
}

// ResolveDuplicates re-runs pair selection with the latest known
// volumes. Called after each applied poll so both-quote duplicates
// kept provisionally collapse to the higher-volume variant and
// zero-volume symbols drop out. Emits a new universe only when the
// membership actually changed.
func (r *PairRegistry) ResolveDuplicates() {
	r.mu.Lock()
	if r.instruments == nil {
		r.mu.Unlock()
		return
	}
	pairs := r.selectPairs(r.instruments, r.universe.Filter)
	next := domain.NewPairUniverse(r.universe.Filter, pairs, r.version+1)
	if sameMembership(r.universe.Pairs, next.Pairs) {
		r.mu.Unlock()
		return
	}
	r.version++
	r.universe = next
	u := r.universe
	r.view.SetUniverse(u)
	r.notify(u)
	r.mu.Unlock()

	r.log.Info("universe resolved",
		zap.Int("pairs", u.Size()),
		zap.Uint64("version", u.Version))
}

// selectPairs derives the pair set for a filter: trading instruments
// with a matching quote, leveraged tokens excluded, one variant per
// base asset once volumes are known. Caller holds r.mu.
func (r *PairRegistry) selectPairs(instruments []domain.Instrument, filter domain.QuoteFilter) []domain.Pair {
	grouped := make(map[string][]domain.Pair)
	for _, in := range instruments {
		if in.Status != "" && in.Status != domain.StatusTrading {
			continue
		}
		if !filter.Matches(in.QuoteAsset) {
			continue
		}
		p := domain.Pair{Symbol: in.Symbol, BaseAsset: in.BaseAsset, QuoteAsset: in.QuoteAsset}
		if p.Leveraged() {
			continue
		}
		grouped[p.BaseAsset] = append(grouped[p.BaseAsset], p)
	}

	var pairs []domain.Pair
	for _, variants := range grouped {
		for _, p := range r.pickVariant(variants) {
			if vol, ok := r.volumes[p.Symbol]; ok && vol == 0 {
				continue
			}
			pairs = append(pairs, p)
		}
	}
	return pairs
}

// pickVariant resolves one base asset's candidates. The higher-volume
// variant wins; while any variant's volume is still unknown all of
// them stay until the next applied poll disambiguates.
func (r *PairRegistry) pickVariant(variants []domain.Pair) []domain.Pair {
	if len(variants) == 1 {
		return variants
	}
	best, bestVol := variants[0], -1.0
	for _, v := range variants {
		vol, ok := r.volumes[v.Symbol]
		if !ok {
			return variants
		}
		if vol > bestVol {
			best, bestVol = v, vol
		}
	}
	return []domain.Pair{best}
}

func (r *PairRegistry) notify(u domain.PairUniverse) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()
	for _, ch := range r.subs {
		// Replace a pending, unconsumed universe with the newer one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- u:
		default:
		}
	}
}

func sameMembership(a, b []domain.Pair) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Symbol != b[i].Symbol {
			return false
		}
	}
	return true
}
