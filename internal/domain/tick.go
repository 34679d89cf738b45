package domain

import "time"

// PriceTick is a single live price update for one symbol. A tick
// supersedes any earlier tick for the same symbol; out-of-order ticks
// are discarded by the view.
type PriceTick struct {
	Symbol    string
	Price     float64
	EventTime time.Time
}
