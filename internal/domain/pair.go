package domain

import (
	"sort"
	"strings"
)

// Quote assets tracked by the screener.
const (
	QuoteUSDT = "USDT"
	QuoteBUSD = "BUSD"
)

// QuoteFilter selects which quote assets make up the pair universe.
type QuoteFilter int

const (
	QuoteFilterBoth QuoteFilter = iota
	QuoteFilterUSDT
	QuoteFilterBUSD
)

func (f QuoteFilter) String() string {
	switch f {
	case QuoteFilterUSDT:
		return "usdt"
	case QuoteFilterBUSD:
		return "busd"
	default:
		return "both"
	}
}

// Quotes returns the quote assets the filter selects.
func (f QuoteFilter) Quotes() []string {
	switch f {
	case QuoteFilterUSDT:
		return []string{QuoteUSDT}
	case QuoteFilterBUSD:
		return []string{QuoteBUSD}
	default:
		return []string{QuoteUSDT, QuoteBUSD}
	}
}

// Matches reports whether a quote asset passes the filter.
func (f QuoteFilter) Matches(quote string) bool {
	for _, q := range f.Quotes() {
		if q == quote {
			return true
		}
	}
	return false
}

// ParseQuoteFilter maps a config value onto a filter. Unknown values
// fall back to both quotes.
func ParseQuoteFilter(s string) QuoteFilter {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "usdt":
		return QuoteFilterUSDT
	case "busd":
		return QuoteFilterBUSD
	default:
		return QuoteFilterBoth
	}
}

// Suffixes marking leveraged-token bases (BTCUP, ETHBEAR, ...).
var leveragedSuffixes = []string{"UP", "DOWN", "BULL", "BEAR"}

// Pair identifies a tradable instrument. Immutable once constructed.
type Pair struct {
	Symbol     string
	BaseAsset  string
	QuoteAsset string
}

func NewPair(base, quote string) Pair {
	return Pair{Symbol: base + quote, BaseAsset: base, QuoteAsset: quote}
}

// Leveraged reports whether the pair is a leveraged-token variant.
// Those are excluded from every universe regardless of filter.
func (p Pair) Leveraged() bool {
	for _, suffix := range leveragedSuffixes {
		if strings.HasSuffix(p.BaseAsset, suffix) && len(p.BaseAsset) > len(suffix) {
			return true
		}
	}
	return false
}

// PairUniverse is the active quote selection plus the derived pair
// set. Versions increase monotonically with every membership change so
// in-flight work against an older set can be discarded.
type PairUniverse struct {
	Filter  QuoteFilter
	Pairs   []Pair // sorted by symbol
	Version uint64
}

func NewPairUniverse(filter QuoteFilter, pairs []Pair, version uint64) PairUniverse {
	sorted := make([]Pair, len(pairs))
	copy(sorted, pairs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Symbol < sorted[j].Symbol
	})
	return PairUniverse{Filter: filter, Pairs: sorted, Version: version}
}

func (u PairUniverse) Size() int {
	return len(u.Pairs)
}

// Symbols returns the active symbols in sorted order.
func (u PairUniverse) Symbols() []string {
	symbols := make([]string, len(u.Pairs))
	for i, p := range u.Pairs {
		symbols[i] = p.Symbol
	}
	return symbols
}

// Contains reports whether the symbol is part of the active set.
func (u PairUniverse) Contains(symbol string) bool {
	i := sort.Search(len(u.Pairs), func(i int) bool {
		return u.Pairs[i].Symbol >= symbol
	})
	return i < len(u.Pairs) && u.Pairs[i].Symbol == symbol
}
