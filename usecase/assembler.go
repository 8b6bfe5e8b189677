package usecase

import (
	"sync"

	"go.uber.org/zap"

	"github.com/questly/voicebridge/adapters/audio"
	"github.com/questly/voicebridge/domain"
	"github.com/questly/voicebridge/domain/entities"
	"github.com/questly/voicebridge/domain/repositories"
)

// AgentState is the loading/speaking flag exposed to the UI layer.
type AgentState string

const (
	AgentIdle     AgentState = "idle"
	AgentThinking AgentState = "thinking"
	AgentSpeaking AgentState = "speaking"
)

// Assembler folds the raw inbound event sequence into an ordered
// transcript of conversational turns. All mutation happens on the single
// event-processing path; the UI reads snapshots.
type Assembler struct {
	output repositories.AudioOutput
	logger *zap.Logger

	mu         sync.RWMutex
	turns      []*entities.Turn
	openTurnID string
	state      AgentState
}

// NewAssembler creates an assembler that plays received audio on output.
func NewAssembler(output repositories.AudioOutput, logger *zap.Logger) *Assembler {
	return &Assembler{
		output: output,
		logger: logger,
		state:  AgentIdle,
	}
}

// Apply folds one inbound event into the transcript. Events must be
// applied in delivery order by a single caller.
func (a *Assembler) Apply(event domain.StreamEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case event.IsTurnBoundary():
		a.closeOpenTurn(event.Interrupted)
	case event.IsTextFragment():
		a.appendFragment(event.Data)
	case event.IsAudioFragment():
		a.playAudio(event.Data)
	default:
		a.logger.Warn("Ignoring event with unknown shape",
			zap.String("mimeType", event.MimeType))
	}
}

// appendFragment appends to the open assistant turn, or starts one. A
// fragment that references no open turn (for example after a racing
// completion signal) synthesizes a new turn rather than being dropped:
// received content is never silently lost.
func (a *Assembler) appendFragment(fragment string) {
	turn := a.openTurn()
	if turn == nil {
		turn = entities.NewAssistantTurn()
		a.turns = append(a.turns, turn)
		a.openTurnID = turn.ID
		a.logger.Debug("Opened assistant turn", zap.String("turnID", turn.ID))
	}
	turn.Append(fragment)
	a.state = AgentSpeaking
}

// closeOpenTurn handles both turn_complete and interrupted (barge-in);
// interruption completes the turn without further content and surfaces no
// error to the transcript.
func (a *Assembler) closeOpenTurn(interrupted bool) {
	if turn := a.openTurn(); turn != nil {
		turn.Complete()
		a.logger.Debug("Closed assistant turn",
			zap.String("turnID", turn.ID),
			zap.Bool("interrupted", interrupted))
	}
	a.openTurnID = ""
	a.state = AgentIdle
}

// playAudio decodes one audio fragment for immediate playback. Audio is a
// side channel: it flips the speaking flag but never lands in Content.
func (a *Assembler) playAudio(data string) {
	pcm, err := audio.FromTransportText(data)
	if err != nil {
		a.logger.Error("Failed to decode audio fragment", zap.Error(err))
		return
	}
	samples, err := audio.DecodeFrame(pcm)
	if err != nil {
		a.logger.Error("Failed to decode audio fragment", zap.Error(err))
		return
	}
	if err := a.output.Play(samples); err != nil {
		a.logger.Error("Playback failed", zap.Error(err))
		return
	}
	a.state = AgentSpeaking
}

// openTurn returns the turn the open id references, nil when there is
// none. A stale id (turn already completed) also yields nil so the caller
// synthesizes a fresh turn.
func (a *Assembler) openTurn() *entities.Turn {
	if a.openTurnID == "" {
		return nil
	}
	for i := len(a.turns) - 1; i >= 0; i-- {
		if a.turns[i].ID == a.openTurnID {
			if a.turns[i].IsOpen() {
				return a.turns[i]
			}
			return nil
		}
	}
	return nil
}

// AddUserTurn records a sent user message and flips the agent state to
// thinking until the first reply fragment arrives.
func (a *Assembler) AddUserTurn(content string) *entities.Turn {
	a.mu.Lock()
	defer a.mu.Unlock()
	turn := entities.NewUserTurn(content)
	a.turns = append(a.turns, turn)
	a.state = AgentThinking
	return turn
}

// AddFileNotice records a completed upload in the transcript.
func (a *Assembler) AddFileNotice(filename string) *entities.Turn {
	a.mu.Lock()
	defer a.mu.Unlock()
	turn := entities.NewFileNoticeTurn(filename)
	a.turns = append(a.turns, turn)
	return turn
}

// MarkThinking flips the agent state to thinking, used when a recording
// ends and the agent's reply is pending.
func (a *Assembler) MarkThinking() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = AgentThinking
}

// State returns the current agent state.
func (a *Assembler) State() AgentState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Transcript returns a render-ready snapshot of all turns in receipt
// order. The snapshot is detached from later mutation.
func (a *Assembler) Transcript() []entities.Turn {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]entities.Turn, len(a.turns))
	for i, turn := range a.turns {
		out[i] = turn.Clone()
	}
	return out
}

// Close releases the playback sink.
func (a *Assembler) Close() error {
	return a.output.Close()
}
