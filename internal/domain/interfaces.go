package domain

import "context"

// UpstreamConn is the single streaming connection to the exchange feed.
// Implementations own the socket; callers never touch it directly.
type UpstreamConn interface {
	Connect(ctx context.Context) error
	Send(frame []byte) error
	State() ConnState
	Disconnect()
}

// FeedHandler receives connection callbacks from the receive loop.
// OnFrame is called strictly one frame at a time.
type FeedHandler interface {
	OnFrame(raw []byte)
	OnError(err error)
	OnClose(code int, reason string)
}

// QuoteDecoder turns one raw upstream frame into a quote.
// ok is false when the frame is undecodable.
type QuoteDecoder interface {
	Decode(raw []byte) (q Quote, ok bool)
}

// FrameEncoder builds control frames and serializes them into the upstream wire format.
type FrameEncoder interface {
	BuildFrame(action Action, symbol string) ControlFrame
	Encode(frame ControlFrame) ([]byte, error)
}

// TopicPublisher is a downstream pub/sub transport.
// Delivery guarantees belong to the transport, not to the caller.
type TopicPublisher interface {
	Name() string
	Publish(ctx context.Context, topic string, q Quote) error
}

// SymbolCatalog answers whether a symbol is known to the relay.
type SymbolCatalog interface {
	HasSymbol(symbol string) (bool, error)
}
