package kiwoom

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"quote_relay/internal/domain"
)

// MessageFactory encodes control frames into the Kiwoom wire format.
type MessageFactory struct{}

// NewMessageFactory creates a control frame encoder
func NewMessageFactory() *MessageFactory {
	return &MessageFactory{}
}

// BuildFrame implements domain.FrameEncoder. One frame per registry transition.
func (f *MessageFactory) BuildFrame(action domain.Action, symbol string) domain.ControlFrame {
	return domain.ControlFrame{Action: action, Symbol: symbol}
}

// Encode implements domain.FrameEncoder.
// A frame that cannot be encoded is an error; sending a malformed frame
// would desynchronize upstream subscription state.
func (f *MessageFactory) Encode(frame domain.ControlFrame) ([]byte, error) {
	var tag string
	switch frame.Action {
	case domain.ActionSubscribe:
		tag = domain.WireActionReg
	case domain.ActionUnsubscribe:
		tag = domain.WireActionRemove
	default:
		return nil, fmt.Errorf("%w: unknown action %d", domain.ErrEncodeFailed, frame.Action)
	}

	if strings.TrimSpace(frame.Symbol) == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrEncodeFailed, domain.ErrInvalidSymbol)
	}

	b, err := json.Marshal(controlMessage{Action: tag, Symbol: frame.Symbol})
	if err != nil {
		slog.Error("Failed to serialize control frame", slog.String("symbol", frame.Symbol), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", domain.ErrEncodeFailed, err)
	}

	slog.Debug("Control frame created", slog.String("action", tag), slog.String("symbol", frame.Symbol))
	return b, nil
}
