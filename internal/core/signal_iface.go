package core

import "errors"

// Frame is an encoded protocol envelope ready for the wire.
type Frame []byte

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
// TrySend must never block: it queues or fails with ErrBackpressure / ErrClosed.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
