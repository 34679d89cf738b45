package usecase

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/vitos/crypto_pair_screener/internal/domain"
)

// fakeDirectory serves a fixed instrument list.
type fakeDirectory struct {
	mu          sync.Mutex
	instruments []domain.Instrument
	err         error
	calls       int
}

func (f *fakeDirectory) GetInstruments(ctx context.Context) ([]domain.Instrument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.instruments, nil
}

// fakeStatsSource answers bulk stats requests from a canned response
// or an optional handler.
type fakeStatsSource struct {
	mu      sync.Mutex
	snaps   []domain.StatsSnapshot
	err     error
	handler func(symbols []string) ([]domain.StatsSnapshot, error)
	calls   [][]string
}

func (f *fakeStatsSource) GetStats24h(ctx context.Context, symbols []string) ([]domain.StatsSnapshot, error) {
	f.mu.Lock()
	handler := f.handler
	snaps, err := f.snaps, f.err
	f.calls = append(f.calls, symbols)
	f.mu.Unlock()

	if handler != nil {
		return handler(symbols)
	}
	if err != nil {
		return nil, err
	}
	return snaps, nil
}

func (f *fakeStatsSource) set(snaps []domain.StatsSnapshot, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps, f.err = snaps, err
}

// fakeStream is an in-memory PriceStream with scriptable connect
// failures and connection drops.
type fakeStream struct {
	mu          sync.Mutex
	callbacks   []func(domain.PriceTick)
	subCalls    [][]string
	unsubCalls  [][]string
	connectErrs []error
	connects    int
	done        chan struct{}
	closed      bool
}

func (f *fakeStream) Connect(ctx context.Context) (<-chan struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if len(f.connectErrs) > 0 {
		err := f.connectErrs[0]
		f.connectErrs = f.connectErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	f.done = make(chan struct{})
	return f.done, nil
}

func (f *fakeStream) Subscribe(symbols []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subCalls = append(f.subCalls, symbols)
	return nil
}

func (f *fakeStream) Unsubscribe(symbols []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubCalls = append(f.unsubCalls, symbols)
	return nil
}

func (f *fakeStream) OnPriceUpdate(callback func(tick domain.PriceTick)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callbacks = append(f.callbacks, callback)
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeStream) emit(tick domain.PriceTick) {
	f.mu.Lock()
	callbacks := make([]func(domain.PriceTick), len(f.callbacks))
	copy(callbacks, f.callbacks)
	f.mu.Unlock()
	for _, cb := range callbacks {
		cb(tick)
	}
}

func (f *fakeStream) dropConnection() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done != nil {
		close(f.done)
		f.done = nil
	}
}

func (f *fakeStream) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

func (f *fakeStream) lastSub() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.subCalls) == 0 {
		return nil
	}
	return f.subCalls[len(f.subCalls)-1]
}

func (f *fakeStream) lastUnsub() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.unsubCalls) == 0 {
		return nil
	}
	return f.unsubCalls[len(f.unsubCalls)-1]
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func instrument(base, quote string) domain.Instrument {
	return domain.Instrument{
		Symbol:     base + quote,
		BaseAsset:  base,
		QuoteAsset: quote,
		Status:     domain.StatusTrading,
	}
}
