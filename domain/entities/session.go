package entities

import (
	"errors"
	"math/rand"
	"time"
)

// SessionIDLength is the length of the client-generated session token.
const SessionIDLength = 8

// Session identifies one streaming conversation with the agent backend.
// The ID is generated client-side before the first connection and stays
// stable for the lifetime of the chat surface; the server creates its
// session state lazily on first contact.
type Session struct {
	ID          string    `json:"id"`
	Connected   bool      `json:"connected"`
	CreatedAt   time.Time `json:"created_at"`
	LastEventAt time.Time `json:"last_event_at"`
}

// NewSession creates a session with a fresh 8-digit numeric token.
func NewSession() *Session {
	return &Session{
		ID:        newSessionID(),
		CreatedAt: time.Now(),
	}
}

// newSessionID returns an 8-character numeric token with a non-zero
// leading digit.
func newSessionID() string {
	id := make([]byte, SessionIDLength)
	id[0] = byte('1' + rand.Intn(9))
	for i := 1; i < SessionIDLength; i++ {
		id[i] = byte('0' + rand.Intn(10))
	}
	return string(id)
}

// MarkConnected records a successful stream open.
func (s *Session) MarkConnected() {
	s.Connected = true
	s.Touch()
}

// MarkDisconnected records a stream error or close.
func (s *Session) MarkDisconnected() {
	s.Connected = false
}

// Touch updates the last activity timestamp.
func (s *Session) Touch() {
	s.LastEventAt = time.Now()
}

// Validate validates the session data
func (s *Session) Validate() error {
	if len(s.ID) != SessionIDLength {
		return errors.New("session id must be 8 characters")
	}
	for _, c := range s.ID {
		if c < '0' || c > '9' {
			return errors.New("session id must be numeric")
		}
	}
	return nil
}
