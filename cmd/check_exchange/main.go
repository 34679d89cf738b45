package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/vitos/crypto_pair_screener/internal/domain"
	"github.com/vitos/crypto_pair_screener/internal/infrastructure/config"
	"github.com/vitos/crypto_pair_screener/internal/infrastructure/exchange"
)

func main() {
	// 1. Load Config
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Testing Binance Interaction...\n")
	fmt.Printf("Endpoint: %s\n", cfg.Exchange.RESTEndpoint)

	adapter := exchange.NewBinanceAdapter(cfg.Exchange.RESTEndpoint, cfg.Exchange.WSEndpoint)
	ctx := context.Background()

	// 2. Check Connectivity
	if err := adapter.Ping(ctx); err != nil {
		fmt.Printf("❌ Ping failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Ping ok (used weight: %d)\n", adapter.UsedWeight())

	// 3. Check Instrument Directory
	instruments, err := adapter.GetInstruments(ctx)
	if err != nil {
		fmt.Printf("❌ Failed to get instruments: %v\n", err)
		os.Exit(1)
	}
	usdt := 0
	for _, in := range instruments {
		if in.QuoteAsset == domain.QuoteUSDT && in.Status == domain.StatusTrading {
			usdt++
		}
	}
	fmt.Printf("✅ Instruments: %d total, %d trading USDT pairs\n", len(instruments), usdt)

	// 4. Check Bulk Stats
	stats, err := adapter.GetStats24h(ctx, []string{"BTCUSDT", "ETHUSDT"})
	if err != nil {
		fmt.Printf("❌ Failed to get 24h stats: %v\n", err)
	} else {
		for _, s := range stats {
			fmt.Printf("✅ Stats (%s): Last=%f, High=%f, Low=%f, Volume=%f\n",
				s.Symbol, s.LastPrice, s.HighPrice, s.LowPrice, s.Volume)
		}
	}
	fmt.Printf("Used weight: %d\n", adapter.UsedWeight())

	// 5. Check Live Ticks (10 seconds)
	ticks := 0
	adapter.OnPriceUpdate(func(t domain.PriceTick) {
		ticks++
		if ticks <= 5 {
			fmt.Printf("✅ Tick: %s %f @ %s\n", t.Symbol, t.Price, t.EventTime.Format(time.RFC3339))
		}
	})

	done, err := adapter.Connect(ctx)
	if err != nil {
		fmt.Printf("❌ Failed to connect stream: %v\n", err)
		os.Exit(1)
	}
	if err := adapter.Subscribe([]string{"BTCUSDT", "ETHUSDT"}); err != nil {
		fmt.Printf("❌ Failed to subscribe: %v\n", err)
	}

	select {
	case <-done:
		fmt.Printf("❌ Stream died early\n")
	case <-time.After(10 * time.Second):
	}
	adapter.Close()
	fmt.Printf("Received %d ticks in 10s\n", ticks)
}
