package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/questly/voicebridge/domain/repositories"
)

// wavHeader is the canonical 44-byte RIFF/WAVE header for mono PCM16.
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32
}

// WavOutput is a playback sink that renders received assistant audio to a
// WAV stream on Close. It stands in for a speaker on headless setups: the
// result is playable with any audio player.
type WavOutput struct {
	dest   io.Writer
	logger *zap.Logger

	mu     sync.Mutex
	pcm    []byte
	closed bool
}

var _ repositories.AudioOutput = (*WavOutput)(nil)

// NewWavOutput creates a sink that writes a 16 kHz mono WAV to dest when
// the surface closes.
func NewWavOutput(dest io.Writer, logger *zap.Logger) *WavOutput {
	return &WavOutput{
		dest:   dest,
		logger: logger,
	}
}

// Play implements repositories.AudioOutput
func (w *WavOutput) Play(samples []float32) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("wav output already closed")
	}
	w.pcm = append(w.pcm, EncodeFrame(samples)...)
	return nil
}

// Close writes the accumulated audio as a WAV file. Idempotent; a second
// Close is a no-op.
func (w *WavOutput) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	if len(w.pcm) == 0 {
		return nil
	}

	dataSize := uint32(len(w.pcm))
	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   1,
		SampleRate:    SampleRate,
		ByteRate:      SampleRate * bytesPerSample,
		BlockAlign:    bytesPerSample,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(w.pcm)))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}
	buf.Write(w.pcm)

	if _, err := w.dest.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}

	w.logger.Info("Rendered received audio",
		zap.Int("pcmBytes", len(w.pcm)),
		zap.Float64("seconds", float64(len(w.pcm))/float64(SampleRate*bytesPerSample)))
	return nil
}
