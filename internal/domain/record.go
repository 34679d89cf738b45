package domain

import "time"

// MarketRecord is the merged, display-ready unit for one symbol: the
// freshest tick price combined with the latest 24h statistics and the
// percentage fields recomputed against the live price.
type MarketRecord struct {
	Pair      Pair
	Price     float64
	PriceTime time.Time
	Stale     bool

	HasStats  bool
	OpenPrice float64
	HighPrice float64
	LowPrice  float64
	Volume    float64

	ChangePct     float64
	HighChangePct float64
	LowChangePct  float64
}
