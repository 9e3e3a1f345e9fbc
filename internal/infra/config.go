package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"quote_relay/internal/domain"

	"gopkg.in/yaml.v3"
)

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 환경 변수를 통해 배포별 값을 덮어씁니다.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Feed struct {
		URL string `yaml:"url"`
	} `yaml:"feed"`

	HTTP struct {
		Addr            string `yaml:"addr"`
		ShutdownTimeout int    `yaml:"shutdown_timeout_sec"`
	} `yaml:"http"`

	Downstream struct {
		SendBuffer int `yaml:"send_buffer"`
		Redis      struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
		Kafka struct {
			Brokers []string `yaml:"brokers"`
			Topic   string   `yaml:"topic"`
		} `yaml:"kafka"`
	} `yaml:"downstream"`

	Relay struct {
		ValidateSymbols bool `yaml:"validate_symbols"`
	} `yaml:"relay"`

	Catalog struct {
		DBPath  string          `yaml:"db_path"`
		Symbols []CatalogSymbol `yaml:"symbols"`
	} `yaml:"catalog"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// CatalogSymbol seeds one row of the symbol catalog.
type CatalogSymbol struct {
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name"`
	Market string `yaml:"market"`
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.ConfigError{Field: "path", Err: err}
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML, applies defaults and env overrides, then validates.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &domain.ConfigError{Field: "yaml", Err: err}
	}

	cfg.applyDefaults()
	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "quote-relay"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		c.HTTP.ShutdownTimeout = 5
	}
	if c.Downstream.SendBuffer <= 0 {
		c.Downstream.SendBuffer = 256
	}
	if c.Downstream.Kafka.Topic == "" {
		c.Downstream.Kafka.Topic = "market.quotes"
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Feed.URL == "" || (!strings.HasPrefix(c.Feed.URL, "ws://") && !strings.HasPrefix(c.Feed.URL, "wss://")) {
		return &domain.ConfigError{Field: "feed.url", Err: fmt.Errorf("must be a ws:// or wss:// URL, got %q", c.Feed.URL)}
	}
	if c.Relay.ValidateSymbols && len(c.Catalog.Symbols) == 0 && c.Catalog.DBPath == "" {
		return &domain.ConfigError{Field: "catalog", Err: errors.New("validate_symbols requires a catalog")}
	}
	for i, s := range c.Catalog.Symbols {
		if strings.TrimSpace(s.Symbol) == "" {
			return &domain.ConfigError{Field: fmt.Sprintf("catalog.symbols[%d]", i), Err: domain.ErrInvalidSymbol}
		}
	}
	return nil
}

// ShutdownGrace returns the HTTP shutdown timeout.
func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.HTTP.ShutdownTimeout) * time.Second
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) {
	if url := os.Getenv("RELAY_FEED_URL"); url != "" {
		cfg.Feed.URL = url
	}
	if addr := os.Getenv("RELAY_HTTP_ADDR"); addr != "" {
		cfg.HTTP.Addr = addr
	}
	if addr := os.Getenv("RELAY_REDIS_ADDR"); addr != "" {
		cfg.Downstream.Redis.Addr = addr
	}
	if pass := os.Getenv("RELAY_REDIS_PASSWORD"); pass != "" {
		cfg.Downstream.Redis.Password = pass
	}
	if brokers := os.Getenv("RELAY_KAFKA_BROKERS"); brokers != "" {
		cfg.Downstream.Kafka.Brokers = strings.Split(brokers, ",")
	}
}
