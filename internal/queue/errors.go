package queue

import "errors"

var (
	// ErrUninitializedQueue is returned for a nil or destroyed queue.
	ErrUninitializedQueue = errors.New("alarm queue is not initialized")
	// ErrNullMessage is returned when sending a nil payload.
	ErrNullMessage = errors.New("message payload is nil")
	// ErrUnsupportedKind is returned when sending with a kind other than Normal or Alarm.
	ErrUnsupportedKind = errors.New("unsupported message kind")
	// ErrNoRoom is returned when storage for a message cannot be obtained, or,
	// under the non-blocking discipline, when the alarm slot is occupied.
	ErrNoRoom = errors.New("no room for message")
	// ErrNoMessage is returned by Receive on an empty non-blocking queue.
	ErrNoMessage = errors.New("no message available")
)
