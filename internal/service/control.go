package service

import (
	"errors"
	"fmt"
	"log/slog"

	"quote_relay/internal/domain"
	"quote_relay/internal/infra"
)

// Outcome describes what a control request did.
type Outcome struct {
	Symbol     string `json:"symbol"`
	Transition bool   `json:"transition"` // registry crossed the 0↔1 edge
	Sent       bool   `json:"sent"`       // control frame was written upstream
}

// ControlService ties registry transitions to upstream REG/REMOVE frames.
//
// The registry records downstream intent, not upstream acknowledgment: a failed
// send is logged and never rolls the registry back or gets retried.
type ControlService struct {
	registry *SubscriptionRegistry
	encoder  domain.FrameEncoder
	conn     domain.UpstreamConn
	catalog  domain.SymbolCatalog
	metrics  *infra.Metrics
}

// NewControlService creates the control surface. conn may be nil only in tests.
func NewControlService(registry *SubscriptionRegistry, encoder domain.FrameEncoder, conn domain.UpstreamConn, metrics *infra.Metrics) *ControlService {
	return &ControlService{
		registry: registry,
		encoder:  encoder,
		conn:     conn,
		metrics:  metrics,
	}
}

// WithCatalog makes RequestSubscribe reject symbols the catalog does not know.
func (s *ControlService) WithCatalog(catalog domain.SymbolCatalog) *ControlService {
	s.catalog = catalog
	return s
}

// RequestSubscribe registers interest and sends REG on the first subscriber.
func (s *ControlService) RequestSubscribe(symbol string) (Outcome, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return Outcome{}, domain.ErrInvalidSymbol
	}

	if s.catalog != nil {
		known, err := s.catalog.HasSymbol(symbol)
		if err != nil {
			return Outcome{Symbol: symbol}, fmt.Errorf("catalog lookup %s: %w", symbol, err)
		}
		if !known {
			return Outcome{Symbol: symbol}, fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, symbol)
		}
	}

	out := Outcome{Symbol: symbol, Transition: s.registry.Subscribe(symbol)}
	return s.apply(domain.ActionSubscribe, out)
}

// RequestUnsubscribe drops interest and sends REMOVE when the last subscriber leaves.
func (s *ControlService) RequestUnsubscribe(symbol string) (Outcome, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return Outcome{}, domain.ErrInvalidSymbol
	}

	out := Outcome{Symbol: symbol, Transition: s.registry.Unsubscribe(symbol)}
	return s.apply(domain.ActionUnsubscribe, out)
}

// Subscriptions returns the live registry counts.
func (s *ControlService) Subscriptions() map[string]int {
	return s.registry.Snapshot()
}

// apply sends the control frame for a transition.
func (s *ControlService) apply(action domain.Action, out Outcome) (Outcome, error) {
	if !out.Transition {
		return out, nil
	}

	if s.conn == nil {
		s.metrics.RecordControlFrame(action, "error")
		return out, fmt.Errorf("%s %s: %w", action, out.Symbol, domain.ErrNoConnection)
	}

	frame, err := s.encoder.Encode(s.encoder.BuildFrame(action, out.Symbol))
	if err != nil {
		s.metrics.RecordControlFrame(action, "error")
		return out, fmt.Errorf("%s %s: %w", action, out.Symbol, err)
	}

	if err := s.conn.Send(frame); err != nil {
		result := "error"
		if errors.Is(err, domain.ErrNotConnected) {
			result = "skipped"
		}
		s.metrics.RecordControlFrame(action, result)
		slog.Warn("control frame not sent",
			slog.String("action", action.String()),
			slog.String("symbol", out.Symbol),
			slog.Any("error", err),
		)
		return out, nil
	}

	s.metrics.RecordControlFrame(action, "sent")
	slog.Info(action.String()+" sent", slog.String("symbol", out.Symbol))
	out.Sent = true
	return out, nil
}
