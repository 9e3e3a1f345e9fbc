package domain

import "errors"

// NetworkError represents a failure on the upstream transport.
// The relay never retries, so every NetworkError is terminal for its attempt.
type NetworkError struct {
	Op  string // Operation that failed (e.g., "dial", "read", "write")
	Err error  // Underlying error
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError wraps a transport error with the failing operation.
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrNotConnected is returned by Send when the upstream connection is not CONNECTED.
	ErrNotConnected = errors.New("upstream not connected")

	// ErrAlreadyStarted is returned when Connect is called more than once.
	ErrAlreadyStarted = errors.New("upstream connect already attempted")

	// ErrNoConnection is returned when a control frame must be sent but no connection exists.
	ErrNoConnection = errors.New("no upstream connection")

	// ErrEncodeFailed is returned when a control frame cannot be serialized.
	ErrEncodeFailed = errors.New("control frame encoding failed")

	// ErrInvalidSymbol is returned when a symbol is blank.
	ErrInvalidSymbol = errors.New("invalid symbol")

	// ErrUnknownSymbol is returned when symbol validation is on and the catalog lacks the symbol.
	ErrUnknownSymbol = errors.New("unknown symbol")
)
