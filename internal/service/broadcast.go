package service

import (
	"context"
	"log/slog"

	"quote_relay/internal/domain"
	"quote_relay/internal/infra"
)

// Broadcaster fans a decoded quote out to every downstream publisher.
// Publishing is fire-and-forget; failures are logged and counted, never returned.
type Broadcaster struct {
	publishers []domain.TopicPublisher
	metrics    *infra.Metrics
}

// NewBroadcaster creates a broadcaster over the given publishers
func NewBroadcaster(metrics *infra.Metrics, publishers ...domain.TopicPublisher) *Broadcaster {
	return &Broadcaster{
		publishers: publishers,
		metrics:    metrics,
	}
}

// Broadcast publishes q once to /topic/<symbol> on each publisher.
// Quotes without a symbol have no topic and are skipped.
func (b *Broadcaster) Broadcast(ctx context.Context, q domain.Quote) {
	if !q.HasSymbol() {
		slog.Debug("[QUOTE] skip broadcast (no symbol)", slog.Int64("price", q.Price), slog.String("time", q.Time))
		return
	}

	topic := q.Topic()
	for _, p := range b.publishers {
		err := p.Publish(ctx, topic, q)
		b.metrics.RecordPublish(p.Name(), err)
		if err != nil {
			slog.Warn("[QUOTE] publish failed",
				slog.String("sink", p.Name()),
				slog.String("topic", topic),
				slog.Any("error", err),
			)
		}
	}
	slog.Debug("[QUOTE] broadcast", slog.String("topic", topic), slog.Int64("price", q.Price))
}
