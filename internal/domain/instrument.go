package domain

// Instrument is one entry of the exchange instrument directory.
type Instrument struct {
	Symbol     string `json:"symbol"`
	BaseAsset  string `json:"base_asset"`
	QuoteAsset string `json:"quote_asset"`
	Status     string `json:"status"`
}

// StatusTrading marks instruments currently open for trading.
const StatusTrading = "TRADING"
