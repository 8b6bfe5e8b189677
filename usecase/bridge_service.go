package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/questly/voicebridge/adapters/upload"
	"github.com/questly/voicebridge/domain"
	"github.com/questly/voicebridge/domain/entities"
	"github.com/questly/voicebridge/domain/repositories"
)

// ConnectionStatus is the stream indicator exposed to the UI layer.
type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
)

// closeTimeout bounds the final sentinel send during teardown.
const closeTimeout = 5 * time.Second

// BridgeService is the UI-facing surface of the streaming bridge. It owns
// one transport session, one turn assembler, one capture controller, and
// one upload relay, and drives the single inbound event-processing loop.
type BridgeService struct {
	session   *entities.Session
	stream    repositories.EventStream
	assembler *Assembler
	capture   *CaptureController
	relay     *upload.Relay
	logger    *zap.Logger

	closeOnce sync.Once
}

// NewBridgeService wires the bridge components for one chat surface.
func NewBridgeService(
	session *entities.Session,
	stream repositories.EventStream,
	assembler *Assembler,
	capture *CaptureController,
	relay *upload.Relay,
	logger *zap.Logger,
) *BridgeService {
	return &BridgeService{
		session:   session,
		stream:    stream,
		assembler: assembler,
		capture:   capture,
		relay:     relay,
		logger:    logger,
	}
}

// Run opens the event stream and consumes it until the stream is closed.
// It is the single consumer: all transcript mutation from inbound events
// happens here, in delivery order. Run blocks; start it in its own
// goroutine.
func (s *BridgeService) Run(ctx context.Context) error {
	if err := s.stream.Open(ctx); err != nil {
		return err
	}

	s.logger.Info("Bridge running", zap.String("sessionID", s.session.ID))
	for event := range s.stream.Events() {
		s.assembler.Apply(event)
	}
	return nil
}

// ConnectionStatus reports the current stream state.
func (s *BridgeService) ConnectionStatus() ConnectionStatus {
	if s.stream.Connected() {
		return StatusConnected
	}
	return StatusDisconnected
}

// AgentState reports the loading/speaking flag.
func (s *BridgeService) AgentState() AgentState {
	return s.assembler.State()
}

// Transcript returns a read-only snapshot of the conversation.
func (s *BridgeService) Transcript() []entities.Turn {
	return s.assembler.Transcript()
}

// SendText records a user turn and delivers the message. The turn stays
// in the transcript even when delivery fails; the error is surfaced once
// to the caller and never retried.
func (s *BridgeService) SendText(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("cannot send an empty message")
	}

	s.assembler.AddUserTurn(text)
	return s.stream.Send(ctx, domain.NewTextEnvelope(text))
}

// StartRecording opens the microphone pipeline.
func (s *BridgeService) StartRecording(ctx context.Context) error {
	return s.capture.Start(ctx)
}

// StopRecording releases the microphone and finalizes the audio turn; the
// agent state flips to thinking while its reply is pending.
func (s *BridgeService) StopRecording(ctx context.Context) error {
	err := s.capture.Stop(ctx)
	s.assembler.MarkThinking()
	return err
}

// UploadFile relays one PDF to the backend. On success a file notice
// lands in the transcript and a synthetic instruction message is sent so
// the agent processes the file by name. Validation and upload failures
// leave the transcript untouched.
func (s *BridgeService) UploadFile(ctx context.Context, filename, mimeType string, size int64, content io.Reader) error {
	if err := s.relay.Upload(ctx, filename, mimeType, size, content); err != nil {
		return err
	}

	s.assembler.AddFileNotice(filename)

	instruction := fmt.Sprintf("Please process the uploaded file named %q.", filename)
	if err := s.stream.Send(ctx, domain.NewTextEnvelope(instruction)); err != nil {
		return err
	}

	s.logger.Info("Upload instruction sent", zap.String("filename", filename))
	return nil
}

// Close tears the surface down: stops any active recording, cancels the
// stream and its reconnect timer, and releases the playback sink. Safe to
// call multiple times.
func (s *BridgeService) Close() error {
	var err error
	s.closeOnce.Do(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()

		if s.capture.Recording() {
			s.capture.Stop(stopCtx)
		}
		err = s.stream.Close()
		s.assembler.Close()
		s.logger.Info("Bridge closed", zap.String("sessionID", s.session.ID))
	})
	return err
}
