package repositories

import (
	"context"

	"github.com/questly/voicebridge/domain"
)

// EventStream abstracts the transport session: one inbound server-push
// stream plus a request/response send primitive, both scoped to one
// session id.
type EventStream interface {
	// Open establishes the server-push connection. Idempotent while a
	// stream is already live. Stream-level failures after a successful
	// open are recovered internally by reconnecting.
	Open(ctx context.Context) error
	// Events delivers inbound events in arrival order. The channel is
	// closed by Close.
	Events() <-chan domain.StreamEvent
	// Send delivers one outbound envelope. Failures are reported as
	// *domain.SendError and are never retried.
	Send(ctx context.Context, envelope domain.Envelope) error
	// Connected reports whether the stream is currently established.
	Connected() bool
	// SessionID returns the session token the stream is scoped to.
	SessionID() string
	// Close releases the stream and any pending reconnect timer.
	// Idempotent.
	Close() error
}
