package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/vitos/crypto_pair_screener/internal/domain"
)

type Config struct {
	Exchange struct {
		RESTEndpoint string `yaml:"rest_endpoint" env:"EXCHANGE_REST_ENDPOINT"`
		WSEndpoint   string `yaml:"ws_endpoint" env:"EXCHANGE_WS_ENDPOINT"`
	} `yaml:"exchange"`
	Screener struct {
		QuoteAssets  string        `yaml:"quote_assets" env:"SCREENER_QUOTE_ASSETS"` // usdt | busd | both
		PollInterval time.Duration `yaml:"poll_interval" env:"SCREENER_POLL_INTERVAL"`
		PollTimeout  time.Duration `yaml:"poll_timeout" env:"SCREENER_POLL_TIMEOUT"`
		StaleAfter   time.Duration `yaml:"stale_after" env:"SCREENER_STALE_AFTER"`
		ReconnectMin time.Duration `yaml:"reconnect_min" env:"SCREENER_RECONNECT_MIN"`
		ReconnectMax time.Duration `yaml:"reconnect_max" env:"SCREENER_RECONNECT_MAX"`
	} `yaml:"screener"`
	RateGate struct {
		Window      time.Duration `yaml:"window" env:"RATE_GATE_WINDOW"`
		MaxSwitches int           `yaml:"max_switches" env:"RATE_GATE_MAX_SWITCHES"`
	} `yaml:"rate_gate"`
	Logging struct {
		Level string `yaml:"level" env:"LOG_LEVEL"`
		File  string `yaml:"file" env:"LOG_FILE"` // empty: stderr
	} `yaml:"logging"`
}

// Load reads the yaml file (when present) and applies env overrides on
// top. A missing file is not an error; everything has a default.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		f, err := os.Open(path)
		switch {
		case err == nil:
			defer f.Close()
			if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// QuoteFilter maps the configured quote selection onto the domain
// filter. Unknown values fall back to both quotes.
func (c *Config) QuoteFilter() domain.QuoteFilter {
	return domain.ParseQuoteFilter(c.Screener.QuoteAssets)
}
