package entities

import (
	"testing"
)

func TestNewUserTurn(t *testing.T) {
	turn := NewUserTurn("hello there")

	if turn.Speaker != SpeakerUser {
		t.Errorf("Expected speaker %s, got %s", SpeakerUser, turn.Speaker)
	}
	if turn.Content != "hello there" {
		t.Errorf("Expected content %q, got %q", "hello there", turn.Content)
	}
	if turn.State != TurnStateComplete {
		t.Errorf("User turns should be complete immediately, got %s", turn.State)
	}
	if turn.ID == "" {
		t.Error("Expected turn id to be assigned at creation")
	}
	if turn.CompletedAt == nil {
		t.Error("Expected CompletedAt to be set for user turn")
	}
}

func TestNewAssistantTurn(t *testing.T) {
	turn := NewAssistantTurn()

	if turn.Speaker != SpeakerAssistant {
		t.Errorf("Expected speaker %s, got %s", SpeakerAssistant, turn.Speaker)
	}
	if turn.State != TurnStateOpen {
		t.Errorf("Assistant turns should start open, got %s", turn.State)
	}
	if !turn.IsOpen() {
		t.Error("Expected IsOpen to report true for a new assistant turn")
	}
}

func TestTurnAppend(t *testing.T) {
	turn := NewAssistantTurn()

	turn.Append("Hel")
	turn.Append("lo")

	if turn.Content != "Hello" {
		t.Errorf("Expected content %q, got %q", "Hello", turn.Content)
	}

	turn.Complete()
	turn.Append(" world")
	if turn.Content != "Hello" {
		t.Errorf("Append after Complete should be ignored, got %q", turn.Content)
	}
}

func TestTurnCompleteIdempotent(t *testing.T) {
	turn := NewAssistantTurn()

	turn.Complete()
	if turn.State != TurnStateComplete {
		t.Errorf("Expected state %s, got %s", TurnStateComplete, turn.State)
	}
	first := *turn.CompletedAt

	turn.Complete()
	if !turn.CompletedAt.Equal(first) {
		t.Error("Second Complete should not move CompletedAt")
	}
}

func TestFileNoticeTurn(t *testing.T) {
	turn := NewFileNoticeTurn("syllabus.pdf")

	if turn.Kind != TurnKindFileNotice {
		t.Errorf("Expected kind %s, got %s", TurnKindFileNotice, turn.Kind)
	}
	if turn.Content != "syllabus.pdf" {
		t.Errorf("Expected content %q, got %q", "syllabus.pdf", turn.Content)
	}
	if turn.State != TurnStateComplete {
		t.Error("File notices should be complete immediately")
	}
}

func TestTurnClone(t *testing.T) {
	turn := NewAssistantTurn()
	turn.Append("partial")

	clone := turn.Clone()
	turn.Append(" more")

	if clone.Content != "partial" {
		t.Errorf("Clone should not observe later appends, got %q", clone.Content)
	}

	turn.Complete()
	if clone.CompletedAt != nil {
		t.Error("Clone of an open turn should have nil CompletedAt")
	}
}
