package audio

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/questly/voicebridge/domain"
	"github.com/questly/voicebridge/domain/repositories"
)

// MockAudioInput is a scripted capture device for tests and local
// development without a microphone.
type MockAudioInput struct {
	logger *zap.Logger

	// Script holds the frames each capture emits, in order.
	Script [][]float32
	// Interval is the delay between emitted frames; zero emits immediately.
	Interval time.Duration
	// Denied simulates a refused microphone permission.
	Denied bool

	mu        sync.Mutex
	openCount int
}

var _ repositories.AudioInput = (*MockAudioInput)(nil)

// NewMockAudioInput creates a scripted capture device.
func NewMockAudioInput(logger *zap.Logger) *MockAudioInput {
	return &MockAudioInput{logger: logger}
}

// Open implements repositories.AudioInput
func (m *MockAudioInput) Open(ctx context.Context, config repositories.AudioConfig) (repositories.AudioCapture, error) {
	if m.Denied {
		return nil, &domain.PermissionError{Err: errors.New("permission denied")}
	}

	m.mu.Lock()
	m.openCount++
	m.mu.Unlock()

	m.logger.Info("Mock capture opened",
		zap.Int("sampleRate", config.SampleRate),
		zap.Int("scriptedFrames", len(m.Script)))

	capture := &MockAudioCapture{
		frames: make(chan []float32, len(m.Script)+1),
		done:   make(chan struct{}),
	}
	go capture.play(ctx, m.Script, m.Interval)
	return capture, nil
}

// OpenCount reports how many capture pipelines were opened.
func (m *MockAudioInput) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openCount
}

// MockAudioCapture is one scripted capture pipeline.
type MockAudioCapture struct {
	frames chan []float32
	done   chan struct{}
	once   sync.Once

	mu         sync.Mutex
	closeCount int
}

var _ repositories.AudioCapture = (*MockAudioCapture)(nil)

func (c *MockAudioCapture) play(ctx context.Context, script [][]float32, interval time.Duration) {
	defer close(c.frames)
	for _, frame := range script {
		if interval > 0 {
			select {
			case <-time.After(interval):
			case <-c.done:
				return
			case <-ctx.Done():
				return
			}
		}
		select {
		case c.frames <- frame:
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
	// Script exhausted: keep the pipeline open until Close, like a real
	// device that has gone silent.
	select {
	case <-c.done:
	case <-ctx.Done():
	}
}

// Frames implements repositories.AudioCapture
func (c *MockAudioCapture) Frames() <-chan []float32 {
	return c.frames
}

// Close implements repositories.AudioCapture
func (c *MockAudioCapture) Close() error {
	c.mu.Lock()
	c.closeCount++
	c.mu.Unlock()
	c.once.Do(func() { close(c.done) })
	return nil
}

// CloseCount reports how many times Close was called.
func (c *MockAudioCapture) CloseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCount
}

// BufferOutput is a playback sink that collects samples in memory.
type BufferOutput struct {
	mu      sync.Mutex
	samples []float32
	closed  bool
}

var _ repositories.AudioOutput = (*BufferOutput)(nil)

// NewBufferOutput creates an in-memory playback sink.
func NewBufferOutput() *BufferOutput {
	return &BufferOutput{}
}

// Play implements repositories.AudioOutput
func (b *BufferOutput) Play(samples []float32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("playback sink is closed")
	}
	b.samples = append(b.samples, samples...)
	return nil
}

// Samples returns a copy of everything played so far.
func (b *BufferOutput) Samples() []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]float32, len(b.samples))
	copy(out, b.samples)
	return out
}

// Close implements repositories.AudioOutput
func (b *BufferOutput) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
