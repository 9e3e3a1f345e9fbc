package infra

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"quote_relay/internal/domain"
)

const sampleConfig = `
app:
  name: quote-relay
feed:
  url: wss://api.kiwoom.com:10000/api/dostk/websocket
http:
  addr: ":9090"
downstream:
  redis:
    addr: localhost:6379
relay:
  validate_symbols: true
catalog:
  symbols:
    - symbol: "005930"
      name: Samsung Electronics
      market: KOSPI
logging:
  level: debug
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}

	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("Expected :9090, got %s", cfg.HTTP.Addr)
	}
	if !cfg.Relay.ValidateSymbols {
		t.Error("Expected validate_symbols to be true")
	}
	if len(cfg.Catalog.Symbols) != 1 || cfg.Catalog.Symbols[0].Symbol != "005930" {
		t.Errorf("Unexpected catalog: %+v", cfg.Catalog.Symbols)
	}
	// defaults
	if cfg.Downstream.SendBuffer != 256 {
		t.Errorf("Expected default send buffer 256, got %d", cfg.Downstream.SendBuffer)
	}
	if cfg.Downstream.Kafka.Topic != "market.quotes" {
		t.Errorf("Expected default kafka topic, got %s", cfg.Downstream.Kafka.Topic)
	}
	if cfg.ShutdownGrace().Seconds() != 5 {
		t.Errorf("Expected 5s shutdown grace, got %v", cfg.ShutdownGrace())
	}
}

func TestParseConfig_InvalidFeedURL(t *testing.T) {
	_, err := ParseConfig([]byte("feed:\n  url: https://example.com\n"))
	if err == nil {
		t.Fatal("Expected error for non-websocket feed URL")
	}

	var cfgErr *domain.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected ConfigError, got %T", err)
	}
	if cfgErr.Field != "feed.url" {
		t.Errorf("Expected field feed.url, got %s", cfgErr.Field)
	}
}

func TestParseConfig_ValidateWithoutCatalog(t *testing.T) {
	_, err := ParseConfig([]byte("feed:\n  url: ws://localhost\nrelay:\n  validate_symbols: true\n"))
	if err == nil {
		t.Fatal("Expected error when validation has no catalog")
	}
}

func TestParseConfig_EnvOverride(t *testing.T) {
	t.Setenv("RELAY_FEED_URL", "ws://override:1234/ws")
	t.Setenv("RELAY_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := ParseConfig([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if cfg.Feed.URL != "ws://override:1234/ws" {
		t.Errorf("Expected env override, got %s", cfg.Feed.URL)
	}
	if len(cfg.Downstream.Kafka.Brokers) != 2 {
		t.Errorf("Expected 2 brokers, got %v", cfg.Downstream.Kafka.Brokers)
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(path); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
