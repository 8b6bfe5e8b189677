package audio

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/questly/voicebridge/domain"
	"github.com/questly/voicebridge/domain/repositories"
)

func TestReaderInputDeliversFrames(t *testing.T) {
	samples := []float32{0.1, -0.1, 0.2, -0.2}
	source := bytes.NewReader(EncodeFrame(samples))

	input := NewReaderInput(source, zap.NewNop())
	capture, err := input.Open(context.Background(), repositories.AudioConfig{
		SampleRate: SampleRate,
		FrameSize:  2,
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer capture.Close()

	var frames [][]float32
	for frame := range capture.Frames() {
		frames = append(frames, frame)
	}

	if len(frames) != 2 {
		t.Fatalf("Expected 2 frames of 2 samples, got %d frames", len(frames))
	}
	const bound = 2.0 / 32768.0
	got := append(append([]float32{}, frames[0]...), frames[1]...)
	for i, want := range samples {
		if diff := float64(got[i] - want); diff > bound || diff < -bound {
			t.Errorf("Sample %d: got %f, want %f within %f", i, got[i], want, bound)
		}
	}
}

func TestReaderInputNilSource(t *testing.T) {
	input := NewReaderInput(nil, zap.NewNop())

	_, err := input.Open(context.Background(), repositories.AudioConfig{})
	if err == nil {
		t.Fatal("Expected error for nil source")
	}

	var permErr *domain.PermissionError
	if !errors.As(err, &permErr) {
		t.Errorf("Expected *domain.PermissionError, got %T", err)
	}
}

func TestReaderCaptureCloseIdempotent(t *testing.T) {
	source := bytes.NewReader(EncodeFrame(make([]float32, FrameSize)))
	input := NewReaderInput(source, zap.NewNop())

	capture, err := input.Open(context.Background(), repositories.AudioConfig{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := capture.Close(); err != nil {
		t.Errorf("First Close failed: %v", err)
	}
	if err := capture.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
}

func TestWavOutputRendersHeader(t *testing.T) {
	var dest bytes.Buffer
	out := NewWavOutput(&dest, zap.NewNop())

	if err := out.Play([]float32{0.5, -0.5}); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data := dest.Bytes()
	if len(data) != 44+4 {
		t.Fatalf("Expected 48 bytes (header + 2 samples), got %d", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Error("Missing RIFF/WAVE magic in rendered output")
	}

	// Second close must not duplicate the file.
	if err := out.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
	if dest.Len() != 48 {
		t.Errorf("Second Close should not write again, got %d bytes", dest.Len())
	}
}

func TestWavOutputPlayAfterClose(t *testing.T) {
	out := NewWavOutput(&bytes.Buffer{}, zap.NewNop())
	out.Close()

	if err := out.Play([]float32{0.1}); err == nil {
		t.Error("Expected error playing after Close")
	}
}
