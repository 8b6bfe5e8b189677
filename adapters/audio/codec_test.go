package audio

import (
	"errors"
	"math"
	"testing"

	"github.com/questly/voicebridge/domain"
)

func TestEncodeFrameByteLayout(t *testing.T) {
	chunk := EncodeFrame([]float32{0, 1.0, -1.0})

	if len(chunk) != 6 {
		t.Fatalf("Expected 6 bytes for 3 samples, got %d", len(chunk))
	}

	// 0 -> 0x0000, 1.0 -> 0x7FFF, -1.0 -> 0x8000, little-endian
	expected := []byte{0x00, 0x00, 0xFF, 0x7F, 0x00, 0x80}
	for i, b := range expected {
		if chunk[i] != b {
			t.Errorf("Byte %d: expected 0x%02X, got 0x%02X", i, b, chunk[i])
		}
	}
}

func TestEncodeFrameClamping(t *testing.T) {
	chunk := EncodeFrame([]float32{2.5, -3.0})

	clamped := EncodeFrame([]float32{1.0, -1.0})
	for i := range clamped {
		if chunk[i] != clamped[i] {
			t.Errorf("Out-of-range samples should clamp to full scale, byte %d differs", i)
		}
	}
}

func TestDecodeFrameOddLength(t *testing.T) {
	_, err := DecodeFrame([]byte{0x01, 0x02, 0x03})
	if err == nil {
		t.Fatal("Expected error for odd byte count")
	}

	var codecErr *domain.CodecError
	if !errors.As(err, &codecErr) {
		t.Errorf("Expected *domain.CodecError, got %T", err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	samples := make([]float32, FrameSize)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / SampleRate))
	}

	decoded, err := DecodeFrame(EncodeFrame(samples))
	if err != nil {
		t.Fatalf("Round trip failed: %v", err)
	}

	if len(decoded) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(decoded))
	}

	// Positive samples scale by 0x7FFF on encode but normalize by 32768 on
	// decode, so the worst case is just under two quantization steps.
	const bound = 2.0 / 32768.0
	for i := range samples {
		diff := math.Abs(float64(samples[i] - decoded[i]))
		if diff > bound {
			t.Fatalf("Sample %d outside quantization bound: in=%f out=%f diff=%f",
				i, samples[i], decoded[i], diff)
		}
	}
}

func TestTransportTextRoundTrip(t *testing.T) {
	pcm := EncodeFrame([]float32{0.25, -0.25, 0.5})

	text := ToTransportText(pcm)
	back, err := FromTransportText(text)
	if err != nil {
		t.Fatalf("FromTransportText failed: %v", err)
	}

	if len(back) != len(pcm) {
		t.Fatalf("Expected %d bytes, got %d", len(pcm), len(back))
	}
	for i := range pcm {
		if back[i] != pcm[i] {
			t.Fatalf("Byte %d differs after transport round trip", i)
		}
	}
}

func TestFromTransportTextInvalid(t *testing.T) {
	_, err := FromTransportText("not!!base64%%")
	if err == nil {
		t.Fatal("Expected error for invalid base64")
	}

	var codecErr *domain.CodecError
	if !errors.As(err, &codecErr) {
		t.Errorf("Expected *domain.CodecError, got %T", err)
	}
}
