package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"quote_relay/internal/api"
	"quote_relay/internal/domain"
	"quote_relay/internal/infra"
	"quote_relay/internal/infra/kiwoom"
	"quote_relay/internal/infra/pubsub"
	"quote_relay/internal/infra/storage"
	"quote_relay/internal/service"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config   *infra.Config
	Metrics  *infra.Metrics
	Storage  *storage.Storage
	Hub      *pubsub.Hub
	Registry *service.SubscriptionRegistry
	Control  *service.ControlService
	Client   *kiwoom.Client
	Router   http.Handler

	configPath string
	closers    []io.Closer
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap(configPath string) *Bootstrap {
	return &Bootstrap{configPath: configPath}
}

// Initialize wires every component. Nothing touches the network except the
// optional Redis ping; the feed is dialed later by Start.
func (b *Bootstrap) Initialize(ctx context.Context) error {
	slog.Info("🚀 Bootstrapping Quote Relay...")

	// 1. Load Config
	cfg, err := infra.LoadConfig(b.configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	slog.SetDefault(infra.NewLogger(cfg))

	// 3. Metrics
	b.Metrics = infra.NewMetrics()

	// 4. Symbol catalog
	if err := b.initCatalog(); err != nil {
		b.Close()
		return err
	}

	// 5. Downstream publishers
	publishers, err := b.initPublishers(ctx)
	if err != nil {
		b.Close()
		return err
	}

	// 6. Relay core
	b.Registry = service.NewSubscriptionRegistry(b.Metrics)
	relay := service.NewRelay(kiwoom.NewParser(), service.NewBroadcaster(b.Metrics, publishers...), b.Metrics)
	b.Client = kiwoom.NewClient(cfg.Feed.URL, relay, b.Metrics)
	b.Control = service.NewControlService(b.Registry, kiwoom.NewMessageFactory(), b.Client, b.Metrics)
	if cfg.Relay.ValidateSymbols {
		b.Control.WithCatalog(b.Storage)
		slog.Info("✅ Symbol validation enabled")
	}

	// 7. HTTP surface
	b.Router = api.NewHandler(b.Control, b.Client,
		api.WithCatalog(b.Storage),
		api.WithMetrics(b.Metrics.Handler()),
		api.WithHub(b.Hub),
	).Router()

	slog.Info("✅ Relay initialized", slog.String("feed", cfg.Feed.URL), slog.Int("publishers", len(publishers)))
	return nil
}

func (b *Bootstrap) initCatalog() error {
	store, err := storage.NewStorage(b.Config.Catalog.DBPath)
	if err != nil {
		return err
	}
	b.Storage = store
	b.closers = append(b.closers, store)

	if len(b.Config.Catalog.Symbols) > 0 {
		seed := make([]domain.SymbolInfo, 0, len(b.Config.Catalog.Symbols))
		for _, s := range b.Config.Catalog.Symbols {
			seed = append(seed, domain.SymbolInfo{
				Symbol:   s.Symbol,
				Name:     s.Name,
				Market:   s.Market,
				IsActive: true,
			})
		}
		if err := store.SeedSymbols(seed); err != nil {
			return fmt.Errorf("failed to seed catalog: %w", err)
		}
	}
	slog.Info("✅ Database initialized", slog.Int("seeded", len(b.Config.Catalog.Symbols)))
	return nil
}

func (b *Bootstrap) initPublishers(ctx context.Context) ([]domain.TopicPublisher, error) {
	cfg := b.Config.Downstream

	b.Hub = pubsub.NewHub(cfg.SendBuffer, b.Metrics)
	publishers := []domain.TopicPublisher{b.Hub}

	if cfg.Redis.Addr != "" {
		rp, err := pubsub.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, rp)
		publishers = append(publishers, rp)
		slog.Info("✅ Redis publisher ready", slog.String("addr", cfg.Redis.Addr))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		kp := pubsub.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		b.closers = append(b.closers, kp)
		publishers = append(publishers, kp)
		slog.Info("✅ Kafka publisher ready", slog.String("topic", cfg.Kafka.Topic))
	}

	return publishers, nil
}

// Start dials the feed once. A failure leaves the relay serving HTTP with the
// feed in FAILED; there is no retry.
func (b *Bootstrap) Start(ctx context.Context) {
	if err := b.Client.Connect(ctx); err != nil {
		slog.Error("❌ Upstream connect failed, feed stays down", slog.Any("error", err))
	}
}

// Close disconnects the feed and releases resources in reverse order.
func (b *Bootstrap) Close() {
	if b.Client != nil {
		b.Client.Disconnect()
	}
	if b.Hub != nil {
		b.Hub.Close()
	}
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i].Close(); err != nil {
			slog.Warn("close failed", slog.Any("error", err))
		}
	}
	b.closers = nil
}
