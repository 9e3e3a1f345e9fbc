package pubsub

import (
	"time"

	"quote_relay/internal/domain"
)

const (
	pingInterval   = 30 * time.Second
	readTimeout    = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 4 * 1024

	publishTimeout = 3 * time.Second

	actionSubscribe   = "subscribe"
	actionUnsubscribe = "unsubscribe"
)

// Envelope is what downstream WebSocket clients receive for each quote.
type Envelope struct {
	Topic string       `json:"topic"`
	Data  domain.Quote `json:"data"`
}

// Request is a downstream client command.
type Request struct {
	Action string `json:"action"` // "subscribe" | "unsubscribe"
	Topic  string `json:"topic"`  // "/topic/AAPL"
}

// Response acknowledges a client command.
type Response struct {
	Type    string `json:"type"` // "ack" | "error"
	Topic   string `json:"topic,omitempty"`
	Message string `json:"message,omitempty"`
}
