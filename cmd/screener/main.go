package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vitos/crypto_pair_screener/internal/infrastructure/config"
	"github.com/vitos/crypto_pair_screener/internal/infrastructure/exchange"
	"github.com/vitos/crypto_pair_screener/internal/infrastructure/logger"
	"github.com/vitos/crypto_pair_screener/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// 1. Load Config (.env first so overrides are visible)
	_ = godotenv.Load()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	var log *zap.Logger
	if cfg.Logging.File != "" {
		log, err = logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	} else {
		log, err = logger.NewLogger(cfg.Logging.Level)
	}
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init Exchange (Binance)
	binance := exchange.NewBinanceAdapter(cfg.Exchange.RESTEndpoint, cfg.Exchange.WSEndpoint)

	// 4. Core state
	view := usecase.NewMarketView(cfg.Screener.StaleAfter)
	gate := usecase.NewRateGate(cfg.RateGate.Window, cfg.RateGate.MaxSwitches)
	registry := usecase.NewPairRegistry(binance, gate, view, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Build the initial universe
	initCtx, initCancel := context.WithTimeout(ctx, 15*time.Second)
	universe, err := registry.SetFilter(initCtx, cfg.QuoteFilter())
	initCancel()
	if err != nil {
		log.Fatal("Failed to build initial universe", zap.Error(err))
	}
	log.Info("Universe ready",
		zap.String("filter", universe.Filter.String()),
		zap.Int("pairs", universe.Size()))

	// 6. Start stream ingestor and stats poller
	ingestor := usecase.NewStreamIngestor(binance, view, registry, log,
		cfg.Screener.ReconnectMin, cfg.Screener.ReconnectMax)
	poller := usecase.NewStatsPoller(binance, view, registry, log,
		cfg.Screener.PollInterval, cfg.Screener.PollTimeout)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		ingestor.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		poller.Run(ctx)
	}()

	// 7. Status Loop (the display layer reads the same surfaces)
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				// Ping refreshes the used-weight reading between polls.
				pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
				if err := binance.Ping(pingCtx); err != nil {
					log.Warn("exchange ping failed", zap.Error(err))
				}
				pingCancel()

				records := view.Snapshot()
				log.Info("screen refresh",
					zap.Int("pairs", len(records)),
					zap.String("stream", ingestor.State().String()),
					zap.Int("used_weight", binance.UsedWeight()),
					zap.Bool("switch_restricted", gate.Restricted()))
			case <-ctx.Done():
				return
			}
		}
	}()

	// 8. Wait for Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	cancel()
	wg.Wait()
}
