package usecase

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/questly/voicebridge/adapters/audio"
	"github.com/questly/voicebridge/domain"
	"github.com/questly/voicebridge/domain/repositories"
	"github.com/questly/voicebridge/internal/metrics"
)

// CaptureController manages the microphone lifecycle and converts
// continuous capture into transport-ready chunks. Exactly one capture
// pipeline is open at a time; Start while active is a no-op.
type CaptureController struct {
	input   repositories.AudioInput
	stream  repositories.EventStream
	config  repositories.AudioConfig
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	capture  repositories.AudioCapture
	pumpDone chan struct{}
}

// NewCaptureController creates a controller feeding encoded frames from
// input into stream at the fixed 16 kHz / 4096-sample layout.
func NewCaptureController(
	input repositories.AudioInput,
	stream repositories.EventStream,
	m *metrics.Metrics,
	logger *zap.Logger,
) *CaptureController {
	return &CaptureController{
		input:  input,
		stream: stream,
		config: repositories.AudioConfig{
			SampleRate: audio.SampleRate,
			FrameSize:  audio.FrameSize,
		},
		logger:  logger,
		metrics: m,
	}
}

// Start opens the capture pipeline and begins streaming encoded chunks.
// A denied device surfaces *domain.PermissionError and aborts the start.
// Calling Start while recording returns nil without opening a second
// pipeline.
func (c *CaptureController) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		c.logger.Warn("Start ignored, recording already active")
		return nil
	}

	capture, err := c.input.Open(ctx, c.config)
	if err != nil {
		c.logger.Error("Failed to open capture pipeline", zap.Error(err))
		return err
	}

	c.capture = capture
	c.pumpDone = make(chan struct{})
	c.metrics.SetRecording(true)
	go c.pump(ctx, capture, c.pumpDone)

	c.logger.Info("Recording started",
		zap.Int("sampleRate", c.config.SampleRate),
		zap.Int("frameSize", c.config.FrameSize))
	return nil
}

// pump encodes each captured frame and hands it off to the transport.
// The handoff never blocks capture on delivery problems: a failed send is
// already logged by the stream and the frame is dropped.
func (c *CaptureController) pump(ctx context.Context, capture repositories.AudioCapture, done chan struct{}) {
	defer close(done)

	for frame := range capture.Frames() {
		chunk := audio.ToTransportText(audio.EncodeFrame(frame))
		if err := c.stream.Send(ctx, domain.NewAudioEnvelope(chunk)); err != nil {
			continue
		}
		c.metrics.RecordFrameCaptured()
	}
}

// Stop releases the pipeline and the device handle, then sends exactly
// one end-of-stream sentinel so the backend can finalize its turn.
// Idempotent; Stop without an active recording is a no-op.
func (c *CaptureController) Stop(ctx context.Context) error {
	c.mu.Lock()
	capture := c.capture
	done := c.pumpDone
	c.capture = nil
	c.pumpDone = nil
	c.mu.Unlock()

	if capture == nil {
		return nil
	}

	capture.Close()
	<-done
	c.metrics.SetRecording(false)

	if err := c.stream.Send(ctx, domain.NewEndOfStreamEnvelope()); err != nil {
		// Logged by the stream; the recording itself stopped cleanly.
		c.logger.Warn("End-of-stream sentinel not delivered", zap.Error(err))
		return err
	}

	c.logger.Info("Recording stopped")
	return nil
}

// Recording reports whether a capture pipeline is currently open.
func (c *CaptureController) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}
