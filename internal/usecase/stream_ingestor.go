package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/crypto_pair_screener/internal/domain"
)

// StreamState is the ingestor's connection state. The display layer
// reads it for its disconnected indicator.
type StreamState int

const (
	StreamDisconnected StreamState = iota
	StreamConnected
	StreamReconnecting
	StreamStopped
)

func (s StreamState) String() string {
	switch s {
	case StreamConnected:
		return "connected"
	case StreamReconnecting:
		return "reconnecting"
	case StreamStopped:
		return "stopped"
	default:
		return "disconnected"
	}
}

// Reconnect backoff bounds: doubling from the minimum up to the cap.
const (
	DefaultReconnectMin = 1 * time.Second
	DefaultReconnectMax = 30 * time.Second
)

// StreamIngestor keeps one logical subscription to the live price feed
// for the active universe and applies inbound ticks to the view.
// Connection loss is never fatal; missed ticks are not recovered.
type StreamIngestor struct {
	stream   domain.PriceStream
	view     *MarketView
	registry *PairRegistry
	log      *zap.Logger

	backoffMin time.Duration
	backoffMax time.Duration

	mu      sync.Mutex
	state   StreamState
	attempt int
}

func NewStreamIngestor(stream domain.PriceStream, view *MarketView, registry *PairRegistry, log *zap.Logger, backoffMin, backoffMax time.Duration) *StreamIngestor {
	if backoffMin <= 0 {
		backoffMin = DefaultReconnectMin
	}
	if backoffMax < backoffMin {
		backoffMax = DefaultReconnectMax
	}
	s := &StreamIngestor{
		stream:     stream,
		view:       view,
		registry:   registry,
		log:        log,
		backoffMin: backoffMin,
		backoffMax: backoffMax,
	}
	stream.OnPriceUpdate(view.ApplyTick)
	return s
}

// State returns the current connection state.
func (s *StreamIngestor) State() StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Attempt returns the current reconnect attempt number, zero while
// connected.
func (s *StreamIngestor) Attempt() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt
}

// Run drives the connect/subscribe/reconnect loop until ctx is
// cancelled. After every (re)connect the full active set is
// subscribed; universe changes while connected subscribe and
// unsubscribe only the delta.
func (s *StreamIngestor) Run(ctx context.Context) {
	changes := s.registry.Subscribe()
	backoff := s.backoffMin

	for {
		done, err := s.stream.Connect(ctx)
		if err != nil {
			s.toReconnecting()
			s.log.Warn("stream connect failed",
				zap.Error(err),
				zap.Int("attempt", s.Attempt()),
				zap.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				s.stop()
				return
			case <-time.After(backoff):
			}
			backoff = nextBackoff(backoff, s.backoffMax)
			continue
		}

		backoff = s.backoffMin
		s.toConnected()

		active := make(map[string]bool)
		symbols := s.registry.Current().Symbols()
		for _, symbol := range symbols {
			active[symbol] = true
		}
		if err := s.stream.Subscribe(symbols); err != nil {
			s.log.Warn("subscribe failed", zap.Error(err))
		}
		s.log.Info("stream connected", zap.Int("symbols", len(symbols)))

	connected:
		for {
			select {
			case <-ctx.Done():
				s.stop()
				return
			case <-done:
				s.toReconnecting()
				s.log.Warn("stream connection lost")
				break connected
			case u := <-changes:
				s.resubscribe(active, u)
			}
		}
	}
}

// resubscribe applies a universe change to the live subscription
// without touching the symbols that remain active.
func (s *StreamIngestor) resubscribe(active map[string]bool, u domain.PairUniverse) {
	next := make(map[string]bool, u.Size())
	var added, removed []string
	for _, p := range u.Pairs {
		next[p.Symbol] = true
		if !active[p.Symbol] {
			added = append(added, p.Symbol)
		}
	}
	for symbol := range active {
		if !next[symbol] {
			removed = append(removed, symbol)
		}
	}

	if len(removed) > 0 {
		if err := s.stream.Unsubscribe(removed); err != nil {
			s.log.Warn("unsubscribe failed", zap.Error(err))
		}
	}
	if len(added) > 0 {
		if err := s.stream.Subscribe(added); err != nil {
			s.log.Warn("subscribe failed", zap.Error(err))
		}
	}

	for symbol := range active {
		delete(active, symbol)
	}
	for symbol := range next {
		active[symbol] = true
	}
	s.log.Info("stream subscription updated",
		zap.Int("subscribed", len(added)),
		zap.Int("unsubscribed", len(removed)),
		zap.Uint64("version", u.Version))
}

func (s *StreamIngestor) toConnected() {
	s.mu.Lock()
	s.state = StreamConnected
	s.attempt = 0
	s.mu.Unlock()
}

func (s *StreamIngestor) toReconnecting() {
	s.mu.Lock()
	s.state = StreamReconnecting
	s.attempt++
	s.mu.Unlock()
}

func (s *StreamIngestor) stop() {
	s.stream.Close()
	s.mu.Lock()
	s.state = StreamStopped
	s.mu.Unlock()
	s.log.Info("stream stopped")
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}
