package audio

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/questly/voicebridge/domain"
	"github.com/questly/voicebridge/domain/repositories"
)

// ReaderInput captures raw little-endian PCM16 audio from an io.Reader,
// such as a pipe from `arecord -f S16_LE -r 16000 -c 1` or a prerecorded
// file. Any byte source that produces the fixed-rate mono layout works.
type ReaderInput struct {
	source io.Reader
	logger *zap.Logger
}

var _ repositories.AudioInput = (*ReaderInput)(nil)

// NewReaderInput creates a capture device backed by source.
func NewReaderInput(source io.Reader, logger *zap.Logger) *ReaderInput {
	return &ReaderInput{
		source: source,
		logger: logger,
	}
}

// Open implements repositories.AudioInput
func (r *ReaderInput) Open(ctx context.Context, config repositories.AudioConfig) (repositories.AudioCapture, error) {
	if r.source == nil {
		return nil, &domain.PermissionError{Err: errors.New("no capture source configured")}
	}

	frameSize := config.FrameSize
	if frameSize <= 0 {
		frameSize = FrameSize
	}

	capture := &readerCapture{
		source: r.source,
		frames: make(chan []float32, 4),
		done:   make(chan struct{}),
		logger: r.logger,
	}
	go capture.pump(ctx, frameSize)

	r.logger.Info("Capture pipeline opened",
		zap.Int("sampleRate", config.SampleRate),
		zap.Int("frameSize", frameSize))

	return capture, nil
}

type readerCapture struct {
	source io.Reader
	frames chan []float32
	done   chan struct{}
	once   sync.Once
	logger *zap.Logger
}

// pump reads fixed-size PCM16 buffers from the source and delivers decoded
// frames until the source drains or the capture is closed.
func (c *readerCapture) pump(ctx context.Context, frameSize int) {
	defer close(c.frames)

	buf := make([]byte, frameSize*bytesPerSample)
	for {
		n, err := io.ReadFull(c.source, buf)
		if n > 0 {
			// A short trailing read still has an even byte count per
			// sample alignment of the source; drop any odd tail byte.
			samples, decodeErr := DecodeFrame(buf[:n-n%bytesPerSample])
			if decodeErr != nil {
				c.logger.Error("Failed to decode captured frame", zap.Error(decodeErr))
				return
			}
			select {
			case c.frames <- samples:
			case <-c.done:
				return
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if err != io.EOF && !errors.Is(err, io.ErrUnexpectedEOF) {
				c.logger.Error("Capture source read error", zap.Error(err))
			}
			return
		}
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		default:
		}
	}
}

// Frames implements repositories.AudioCapture
func (c *readerCapture) Frames() <-chan []float32 {
	return c.frames
}

// Close releases the pipeline. Idempotent.
func (c *readerCapture) Close() error {
	c.once.Do(func() {
		close(c.done)
		if closer, ok := c.source.(io.Closer); ok {
			closer.Close()
		}
		c.logger.Info("Capture pipeline released")
	})
	return nil
}
