package usecase

import (
	"sort"
	"sync"
	"time"

	"github.com/vitos/crypto_pair_screener/internal/domain"
)

// DefaultStaleAfter flags a record stale when no tick has been applied
// for this long. The miniTicker stream emits roughly once per second
// per symbol, so 10s is well past twice the expected cadence.
const DefaultStaleAfter = 10 * time.Second

// MarketView is the merged, thread-safe record set. The stream
// ingestor and the stats poller write into it; the display layer reads
// point-in-time copies out of it.
type MarketView struct {
	staleAfter time.Duration

	mu       sync.Mutex
	records  map[string]*domain.MarketRecord
	universe domain.PairUniverse
	timeNow  func() time.Time // For testing
}

func NewMarketView(staleAfter time.Duration) *MarketView {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &MarketView{
		staleAfter: staleAfter,
		records:    make(map[string]*domain.MarketRecord),
		timeNow:    time.Now,
	}
}

// SetUniverse installs the active pair set. Records for evicted
// symbols are dropped; new symbols start with no price and no stats so
// no slot ever carries data over from a previous universe.
func (m *MarketView) SetUniverse(u domain.PairUniverse) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// An older universe arriving late must not replace a newer one.
	if u.Version <= m.universe.Version {
		return
	}

	m.universe = u
	for symbol := range m.records {
		if !u.Contains(symbol) {
			delete(m.records, symbol)
		}
	}
	for _, p := range u.Pairs {
		if _, ok := m.records[p.Symbol]; !ok {
			m.records[p.Symbol] = &domain.MarketRecord{Pair: p}
		}
	}
}

// ApplyTick updates one symbol's live price and its price-derived
// fields. Ticks for inactive symbols and ticks not newer than the
// stored one are no-ops.
func (m *MarketView) ApplyTick(t domain.PriceTick) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[t.Symbol]
	if !ok {
		return
	}
	if !rec.PriceTime.IsZero() && !t.EventTime.After(rec.PriceTime) {
		return
	}

	rec.Price = t.Price
	rec.PriceTime = t.EventTime
	recompute(rec)
}

// ApplySnapshots replaces the stats fields for the whole record set in
// one step. A poll taken against a universe version that is no longer
// active is discarded; the caller is expected to have validated full
// symbol coverage beforehand.
func (m *MarketView) ApplySnapshots(version uint64, snaps map[string]domain.StatsSnapshot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if version != m.universe.Version {
		return false
	}

	for symbol, rec := range m.records {
		snap, ok := snaps[symbol]
		if !ok {
			continue
		}
		rec.HasStats = true
		rec.OpenPrice = snap.OpenPrice
		rec.HighPrice = snap.HighPrice
		rec.LowPrice = snap.LowPrice
		rec.Volume = snap.Volume
		if rec.Price == 0 {
			// No tick yet, seed the price from the stats payload. The
			// first tick still wins because PriceTime stays zero.
			rec.Price = snap.LastPrice
		}
		recompute(rec)
	}
	return true
}

// PairCount returns the number of active records.
func (m *MarketView) PairCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Snapshot returns a consistent point-in-time copy of every active
// record, sorted by 24h change descending, with staleness computed
// against the configured threshold.
func (m *MarketView) Snapshot() []domain.MarketRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.timeNow()
	out := make([]domain.MarketRecord, 0, len(m.records))
	for _, rec := range m.records {
		r := *rec
		r.Stale = r.PriceTime.IsZero() || now.Sub(r.PriceTime) > m.staleAfter
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ChangePct != out[j].ChangePct {
			return out[i].ChangePct > out[j].ChangePct
		}
		return out[i].Pair.Symbol < out[j].Pair.Symbol
	})
	return out
}

// recompute refreshes the percentage fields from the record's own
// price so a reader never sees fields from two different ticks mixed.
func recompute(rec *domain.MarketRecord) {
	if !rec.HasStats || rec.Price == 0 {
		return
	}
	rec.ChangePct = domain.Change(rec.Price, rec.OpenPrice)
	rec.HighChangePct = domain.Change(rec.Price, rec.HighPrice)
	rec.LowChangePct = domain.Change(rec.Price, rec.LowPrice)
}
