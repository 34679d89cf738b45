package domain

import "context"

// MarketDirectory lists the tradable instruments used to build the
// pair universe.
type MarketDirectory interface {
	GetInstruments(ctx context.Context) ([]Instrument, error)
}

// StatsSource returns 24h statistics for a symbol list in one bulk
// call. A response covering only part of the list is treated as a
// failed cycle by the poller.
type StatsSource interface {
	GetStats24h(ctx context.Context, symbols []string) ([]StatsSnapshot, error)
}

// PriceStream is one logical subscription to the live price feed.
// Connect returns a channel that is closed when the connection dies;
// reconnecting is the ingestor's responsibility.
type PriceStream interface {
	Connect(ctx context.Context) (<-chan struct{}, error)
	Subscribe(symbols []string) error
	Unsubscribe(symbols []string) error
	OnPriceUpdate(callback func(tick PriceTick))
	Close() error
}
