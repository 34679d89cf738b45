package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vitos/crypto_pair_screener/internal/domain"
)

const (
	BinanceBaseURL = "https://api.binance.com"
	BinanceWSURL   = "wss://stream.binance.com:443/ws"
)

// BinanceAdapter is the instrument directory, bulk stats source and
// live price stream, all backed by Binance's public spot API.
type BinanceAdapter struct {
	baseURL string
	wsURL   string
	client  *http.Client

	mu        sync.Mutex
	wsConn    *websocket.Conn
	wsDone    chan struct{}
	reqID     int
	callbacks []func(domain.PriceTick)

	weightMu   sync.Mutex
	usedWeight int
}

func NewBinanceAdapter(baseURL, wsURL string) *BinanceAdapter {
	if baseURL == "" {
		baseURL = BinanceBaseURL
	}
	if wsURL == "" {
		wsURL = BinanceWSURL
	}
	return &BinanceAdapter{
		baseURL: baseURL,
		wsURL:   wsURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// --- REST API ---

func (b *BinanceAdapter) sendRequest(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Binance reports the caller's spent request weight per minute
	// window on every response.
	if w := resp.Header.Get("X-MBX-USED-WEIGHT"); w != "" {
		if used, err := strconv.Atoi(w); err == nil {
			b.weightMu.Lock()
			b.usedWeight = used
			b.weightMu.Unlock()
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("binance API error: %s", string(body))
	}

	return body, nil
}

// UsedWeight returns the request weight the exchange last reported for
// the current minute window.
func (b *BinanceAdapter) UsedWeight() int {
	b.weightMu.Lock()
	defer b.weightMu.Unlock()
	return b.usedWeight
}

// Ping checks connectivity and refreshes the used-weight reading.
func (b *BinanceAdapter) Ping(ctx context.Context) error {
	_, err := b.sendRequest(ctx, "/api/v3/ping")
	return err
}

func (b *BinanceAdapter) GetInstruments(ctx context.Context) ([]domain.Instrument, error) {
	resp, err := b.sendRequest(ctx, "/api/v3/exchangeInfo")
	if err != nil {
		return nil, err
	}

	var result struct {
		Symbols []struct {
			Symbol     string `json:"symbol"`
			BaseAsset  string `json:"baseAsset"`
			QuoteAsset string `json:"quoteAsset"`
			Status     string `json:"status"`
		} `json:"symbols"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("parse exchange info: %w", err)
	}

	instruments := make([]domain.Instrument, 0, len(result.Symbols))
	for _, item := range result.Symbols {
		instruments = append(instruments, domain.Instrument{
			Symbol:     item.Symbol,
			BaseAsset:  item.BaseAsset,
			QuoteAsset: item.QuoteAsset,
			Status:     item.Status,
		})
	}
	return instruments, nil
}

func (b *BinanceAdapter) GetStats24h(ctx context.Context, symbols []string) ([]domain.StatsSnapshot, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	quoted := make([]string, len(symbols))
	for i, s := range symbols {
		quoted[i] = `"` + s + `"`
	}
	path := "/api/v3/ticker/24hr?symbols=[" + strings.Join(quoted, ",") + "]"

	resp, err := b.sendRequest(ctx, path)
	if err != nil {
		return nil, err
	}

	var result []struct {
		Symbol    string `json:"symbol"`
		OpenPrice string `json:"openPrice"`
		HighPrice string `json:"highPrice"`
		LowPrice  string `json:"lowPrice"`
		LastPrice string `json:"lastPrice"`
		Volume    string `json:"volume"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("parse 24hr tickers: %w", err)
	}

	snaps := make([]domain.StatsSnapshot, 0, len(result))
	for _, raw := range result {
		open, _ := strconv.ParseFloat(raw.OpenPrice, 64)
		high, _ := strconv.ParseFloat(raw.HighPrice, 64)
		low, _ := strconv.ParseFloat(raw.LowPrice, 64)
		last, _ := strconv.ParseFloat(raw.LastPrice, 64)
		volume, _ := strconv.ParseFloat(raw.Volume, 64)

		snaps = append(snaps, domain.StatsSnapshot{
			Symbol:    raw.Symbol,
			OpenPrice: open,
			HighPrice: high,
			LowPrice:  low,
			LastPrice: last,
			Volume:    volume,
		})
	}
	return snaps, nil
}

// --- WebSocket ---

// miniTickerEvent is the 24hrMiniTicker stream payload.
type miniTickerEvent struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Close     string `json:"c"`
}

// OnPriceUpdate registers a callback invoked for every parsed tick.
func (b *BinanceAdapter) OnPriceUpdate(callback func(tick domain.PriceTick)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callbacks = append(b.callbacks, callback)
}

// Connect dials the stream and starts the read loop. The returned
// channel is closed when the connection dies; the caller reconnects by
// calling Connect again.
func (b *BinanceAdapter) Connect(ctx context.Context) (<-chan struct{}, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.wsConn != nil {
		return b.wsDone, nil
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second
	c, _, err := dialer.DialContext(ctx, b.wsURL, nil)
	if err != nil {
		return nil, &domain.ConnectionError{Err: err}
	}

	b.wsConn = c
	b.wsDone = make(chan struct{})
	go b.readLoop(c, b.wsDone)

	return b.wsDone, nil
}

func (b *BinanceAdapter) Subscribe(symbols []string) error {
	return b.sendOp("SUBSCRIBE", symbols)
}

func (b *BinanceAdapter) Unsubscribe(symbols []string) error {
	return b.sendOp("UNSUBSCRIBE", symbols)
}

func (b *BinanceAdapter) sendOp(method string, symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.wsConn == nil {
		return &domain.ConnectionError{Err: fmt.Errorf("stream not connected")}
	}

	params := make([]string, len(symbols))
	for i, s := range symbols {
		params[i] = strings.ToLower(s) + "@miniTicker"
	}

	b.reqID++
	msg := map[string]interface{}{
		"method": method,
		"params": params,
		"id":     b.reqID,
	}
	return b.wsConn.WriteJSON(msg)
}

func (b *BinanceAdapter) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer func() {
		conn.Close()
		b.mu.Lock()
		if b.wsConn == conn {
			b.wsConn = nil
		}
		b.mu.Unlock()
		close(done)
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}

		tick, ok := parseMiniTicker(message)
		if !ok {
			// Subscription acks and other control frames land here.
			continue
		}

		b.mu.Lock()
		callbacks := make([]func(domain.PriceTick), len(b.callbacks))
		copy(callbacks, b.callbacks)
		b.mu.Unlock()

		for _, cb := range callbacks {
			cb(tick)
		}
	}
}

func parseMiniTicker(message []byte) (domain.PriceTick, bool) {
	var event miniTickerEvent
	if err := json.Unmarshal(message, &event); err != nil {
		return domain.PriceTick{}, false
	}
	if event.EventType != "24hrMiniTicker" || event.Symbol == "" {
		return domain.PriceTick{}, false
	}

	price, err := strconv.ParseFloat(event.Close, 64)
	if err != nil {
		return domain.PriceTick{}, false
	}

	return domain.PriceTick{
		Symbol:    event.Symbol,
		Price:     price,
		EventTime: time.UnixMilli(event.EventTime),
	}, true
}

// Close tears the stream down. The read loop notices the closed
// connection and closes the done channel.
func (b *BinanceAdapter) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.wsConn == nil {
		return nil
	}
	err := b.wsConn.Close()
	b.wsConn = nil
	return err
}
