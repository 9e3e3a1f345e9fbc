package kiwoom

import (
	"context"
	"errors"
	"sync"
)

var errStreamEnded = errors.New("frame stream ended")

// frameReader is the read half of a WebSocket connection.
type frameReader interface {
	ReadMessage() (messageType int, p []byte, err error)
}

type inbound struct {
	data []byte
	err  error
}

// FrameStream is a pull iterator over inbound frames with explicit demand.
//
// The pump reads exactly one frame per granted credit. With no outstanding
// credit the socket is not read at all, so a consumer that forgets to call
// Request stalls the feed.
type FrameStream struct {
	reader frameReader

	mu      sync.Mutex
	credits int
	wake    chan struct{}

	frames chan inbound
}

func newFrameStream(r frameReader) *FrameStream {
	return &FrameStream{
		reader: r,
		wake:   make(chan struct{}, 1),
		frames: make(chan inbound, 1),
	}
}

// Request grants n more frames of demand. Never blocks.
func (s *FrameStream) Request(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.credits += n
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Next blocks until the next frame, a terminal read error or ctx cancellation.
func (s *FrameStream) Next(ctx context.Context) ([]byte, error) {
	select {
	case in, ok := <-s.frames:
		if !ok {
			return nil, errStreamEnded
		}
		return in.data, in.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// run pumps frames until a read error or ctx is done. Must run in its own goroutine.
func (s *FrameStream) run(ctx context.Context) {
	defer close(s.frames)

	for {
		if !s.acquire(ctx) {
			return
		}

		_, data, err := s.reader.ReadMessage()

		select {
		case s.frames <- inbound{data: data, err: err}:
		case <-ctx.Done():
			return
		}

		if err != nil {
			return
		}
	}
}

// acquire spends one credit, waiting for demand if there is none.
func (s *FrameStream) acquire(ctx context.Context) bool {
	for {
		s.mu.Lock()
		if s.credits > 0 {
			s.credits--
			s.mu.Unlock()
			return true
		}
		s.mu.Unlock()

		select {
		case <-s.wake:
		case <-ctx.Done():
			return false
		}
	}
}
