package entities

import (
	"time"

	"github.com/google/uuid"
)

// Speaker identifies which side of the conversation produced a turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// TurnKind distinguishes ordinary text turns from file-upload notices.
type TurnKind string

const (
	TurnKindText       TurnKind = "text"
	TurnKindFileNotice TurnKind = "file-notice"
)

// TurnState tracks whether fragments are still arriving for a turn.
type TurnState string

const (
	TurnStateOpen     TurnState = "open"
	TurnStateComplete TurnState = "complete"
)

// Turn is one contiguous utterance rendered to the transcript. Content is
// append-only while the turn is open; at most one assistant turn is open
// at a time per session.
type Turn struct {
	ID          string     `json:"id"`
	Speaker     Speaker    `json:"speaker"`
	Content     string     `json:"content"`
	Kind        TurnKind   `json:"kind"`
	State       TurnState  `json:"state"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewUserTurn creates a completed user turn. User turns get their id at
// send time and never stream.
func NewUserTurn(content string) *Turn {
	now := time.Now()
	return &Turn{
		ID:          uuid.NewString(),
		Speaker:     SpeakerUser,
		Content:     content,
		Kind:        TurnKindText,
		State:       TurnStateComplete,
		StartedAt:   now,
		CompletedAt: &now,
	}
}

// NewAssistantTurn creates an open assistant turn for the first fragment
// of a reply.
func NewAssistantTurn() *Turn {
	return &Turn{
		ID:        uuid.NewString(),
		Speaker:   SpeakerAssistant,
		Kind:      TurnKindText,
		State:     TurnStateOpen,
		StartedAt: time.Now(),
	}
}

// NewFileNoticeTurn creates a completed user turn recording an upload.
func NewFileNoticeTurn(filename string) *Turn {
	now := time.Now()
	return &Turn{
		ID:          uuid.NewString(),
		Speaker:     SpeakerUser,
		Content:     filename,
		Kind:        TurnKindFileNotice,
		State:       TurnStateComplete,
		StartedAt:   now,
		CompletedAt: &now,
	}
}

// Append adds a fragment to an open turn. Fragments for a closed turn are
// ignored; the assembler synthesizes a new turn instead.
func (t *Turn) Append(fragment string) {
	if t.State != TurnStateOpen {
		return
	}
	t.Content += fragment
}

// Complete closes the turn. Idempotent.
func (t *Turn) Complete() {
	if t.State == TurnStateComplete {
		return
	}
	t.State = TurnStateComplete
	now := time.Now()
	t.CompletedAt = &now
}

// IsOpen reports whether fragments are still expected for this turn.
func (t *Turn) IsOpen() bool {
	return t.State == TurnStateOpen
}

// Clone returns a copy safe to hand to the UI layer.
func (t *Turn) Clone() Turn {
	clone := *t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		clone.CompletedAt = &at
	}
	return clone
}
