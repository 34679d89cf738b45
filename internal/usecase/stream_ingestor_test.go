package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitos/crypto_pair_screener/internal/domain"
)

func newTestIngestor(t *testing.T, dir *fakeDirectory, stream *fakeStream) (*StreamIngestor, *PairRegistry, *MarketView) {
	t.Helper()
	registry, view, _ := newTestRegistry(dir, 100)
	_, err := registry.SetFilter(context.Background(), domain.QuoteFilterUSDT)
	require.NoError(t, err)
	ingestor := NewStreamIngestor(stream, view, registry, testLogger(), time.Millisecond, 8*time.Millisecond)
	return ingestor, registry, view
}

func TestStreamIngestor_ConnectsAndSubscribesActiveSet(t *testing.T) {
	dir := &fakeDirectory{instruments: []domain.Instrument{
		instrument("BTC", "USDT"),
		instrument("ETH", "USDT"),
	}}
	stream := &fakeStream{}
	ingestor, _, view := newTestIngestor(t, dir, stream)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ingestor.Run(ctx)

	require.Eventually(t, func() bool {
		return ingestor.State() == StreamConnected
	}, time.Second, time.Millisecond)
	assert.ElementsMatch(t, []string{"BTCUSDT", "ETHUSDT"}, stream.lastSub())

	// Inbound ticks land in the view.
	stream.emit(domain.PriceTick{Symbol: "BTCUSDT", Price: 42, EventTime: time.Now()})
	assert.Equal(t, 42.0, recordFor(t, view, "BTCUSDT").Price)
}

func TestStreamIngestor_ResubscribesOnUniverseChange(t *testing.T) {
	dir := &fakeDirectory{instruments: []domain.Instrument{
		instrument("BTC", "USDT"),
		instrument("ETH", "USDT"),
		instrument("XRP", "BUSD"),
	}}
	stream := &fakeStream{}
	ingestor, registry, _ := newTestIngestor(t, dir, stream)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ingestor.Run(ctx)

	require.Eventually(t, func() bool {
		return ingestor.State() == StreamConnected
	}, time.Second, time.Millisecond)

	_, err := registry.SetFilter(context.Background(), domain.QuoteFilterBUSD)
	require.NoError(t, err)

	// Removed symbols are unsubscribed, added symbols subscribed; the
	// connection itself stays up.
	require.Eventually(t, func() bool {
		return len(stream.lastUnsub()) > 0
	}, time.Second, time.Millisecond)
	assert.ElementsMatch(t, []string{"BTCUSDT", "ETHUSDT"}, stream.lastUnsub())
	assert.Equal(t, []string{"XRPBUSD"}, stream.lastSub())
	assert.Equal(t, 1, stream.connectCount())
}

func TestStreamIngestor_ReconnectsWithBackoff(t *testing.T) {
	dir := &fakeDirectory{instruments: []domain.Instrument{
		instrument("BTC", "USDT"),
	}}
	stream := &fakeStream{
		connectErrs: []error{
			&domain.ConnectionError{Err: errors.New("dial refused")},
			&domain.ConnectionError{Err: errors.New("dial refused")},
		},
	}
	ingestor, _, _ := newTestIngestor(t, dir, stream)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ingestor.Run(ctx)

	// Two failed dials, then connected; attempt counter resets.
	require.Eventually(t, func() bool {
		return ingestor.State() == StreamConnected
	}, time.Second, time.Millisecond)
	assert.Equal(t, 3, stream.connectCount())
	assert.Equal(t, 0, ingestor.Attempt())
}

func TestStreamIngestor_ReconnectsAfterConnectionLoss(t *testing.T) {
	dir := &fakeDirectory{instruments: []domain.Instrument{
		instrument("BTC", "USDT"),
	}}
	stream := &fakeStream{}
	ingestor, _, _ := newTestIngestor(t, dir, stream)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ingestor.Run(ctx)

	require.Eventually(t, func() bool {
		return ingestor.State() == StreamConnected
	}, time.Second, time.Millisecond)

	stream.dropConnection()

	// A fresh connection resubscribes the full active set.
	require.Eventually(t, func() bool {
		return stream.connectCount() == 2 && ingestor.State() == StreamConnected
	}, time.Second, time.Millisecond)
	assert.Equal(t, []string{"BTCUSDT"}, stream.lastSub())
}

func TestStreamIngestor_StopsOnCancel(t *testing.T) {
	dir := &fakeDirectory{instruments: []domain.Instrument{
		instrument("BTC", "USDT"),
	}}
	stream := &fakeStream{}
	ingestor, _, _ := newTestIngestor(t, dir, stream)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ingestor.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return ingestor.State() == StreamConnected
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ingestor did not stop on cancel")
	}
	assert.Equal(t, StreamStopped, ingestor.State())

	stream.mu.Lock()
	closed := stream.closed
	stream.mu.Unlock()
	assert.True(t, closed)
}

func TestNextBackoff_DoublesUpToCap(t *testing.T) {
	assert.Equal(t, 2*time.Second, nextBackoff(time.Second, 30*time.Second))
	assert.Equal(t, 16*time.Second, nextBackoff(8*time.Second, 30*time.Second))
	assert.Equal(t, 30*time.Second, nextBackoff(16*time.Second, 30*time.Second))
	assert.Equal(t, 30*time.Second, nextBackoff(30*time.Second, 30*time.Second))
}
