package service

import (
	"context"
	"log/slog"

	"quote_relay/internal/domain"
	"quote_relay/internal/infra"
)

// maxLoggedFrame caps how much of a bad frame ends up in the log.
const maxLoggedFrame = 256

// Compile-time check to ensure Relay implements FeedHandler
var _ domain.FeedHandler = (*Relay)(nil)

// Relay drives the receive side: raw frame -> decoder -> broadcaster.
// It is the connector's FeedHandler and sees frames strictly one at a time.
type Relay struct {
	decoder     domain.QuoteDecoder
	broadcaster *Broadcaster
	metrics     *infra.Metrics
}

// NewRelay creates the receive-loop handler
func NewRelay(decoder domain.QuoteDecoder, broadcaster *Broadcaster, metrics *infra.Metrics) *Relay {
	return &Relay{
		decoder:     decoder,
		broadcaster: broadcaster,
		metrics:     metrics,
	}
}

// OnFrame decodes and broadcasts one frame. Undecodable frames are dropped.
func (r *Relay) OnFrame(raw []byte) {
	slog.Debug("[FEED] recv", slog.Int("bytes", len(raw)))

	q, ok := r.decoder.Decode(raw)
	if !ok {
		r.metrics.RecordDecodeError()
		slog.Warn("[FEED] parse failed, frame dropped", slog.String("raw", truncate(raw, maxLoggedFrame)))
		return
	}
	r.broadcaster.Broadcast(context.Background(), q)
}

// OnError logs a transport failure. The feed stays down until the process restarts.
func (r *Relay) OnError(err error) {
	slog.Error("[FEED] upstream failed, no reconnect", slog.Any("error", err))
}

// OnClose logs a graceful close. The feed stays down until the process restarts.
func (r *Relay) OnClose(code int, reason string) {
	slog.Warn("[FEED] upstream closed, no reconnect", slog.Int("code", code), slog.String("reason", reason))
}

func truncate(raw []byte, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	return string(raw[:n]) + "..."
}
