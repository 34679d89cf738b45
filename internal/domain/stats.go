package domain

import "math"

// StatsSnapshot is one symbol's 24h aggregate statistics from a single
// poll cycle. A poll replaces the snapshots for the whole active set
// atomically or not at all.
type StatsSnapshot struct {
	Symbol    string
	OpenPrice float64
	HighPrice float64
	LowPrice  float64
	LastPrice float64
	Volume    float64
}

// Change returns the percentage change of latest against ref, rounded
// to 3 decimals. A zero reference yields 0.
func Change(latest, ref float64) float64 {
	if ref == 0 || latest == ref {
		return 0
	}
	return math.Round((latest-ref)/ref*100*1000) / 1000
}
