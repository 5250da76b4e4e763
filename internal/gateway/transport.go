package gateway

import "context"

// Transport opens push streams. Transports are tried in preference order.
type Transport interface {
	Name() string
	Open(ctx context.Context) (Stream, error)
}

// Stream yields raw event frames until it fails or is closed.
type Stream interface {
	Recv(ctx context.Context) ([]byte, error)
	Close() error
}
