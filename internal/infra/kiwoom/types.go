package kiwoom

import "time"

const (
	// DefaultURL is the Kiwoom real-time WebSocket endpoint.
	DefaultURL = "wss://api.kiwoom.com:10000/api/dostk/websocket"

	writeWait = 10 * time.Second
)

// controlMessage is the outbound subscription frame.
// {"action":"REG","symbol":"005930"}
type controlMessage struct {
	Action string `json:"action"`
	Symbol string `json:"symbol"`
}

// Inbound quote frame keys. Every other key is ignored.
const (
	fieldSymbol = "symbol"
	fieldPrice  = "price"
	fieldTime   = "time"
)
