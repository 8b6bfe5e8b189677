// Package audio converts between the platform's native float samples and
// transport-ready signed 16-bit little-endian PCM at a fixed 16 kHz mono
// rate, and provides the capture/playback device adapters built on that
// layout.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/questly/voicebridge/domain"
)

const (
	// SampleRate is the fixed capture and playback rate in Hz.
	SampleRate = 16000

	// FrameSize is the number of samples per captured chunk.
	FrameSize = 4096

	bytesPerSample = 2
)

// EncodeFrame clamps each sample to [-1.0, 1.0], scales to the signed
// 16-bit range (asymmetric: 0x8000 for negative values, 0x7FFF for
// positive) and packs little-endian. The returned chunk is
// 2*len(samples) bytes.
func EncodeFrame(samples []float32) []byte {
	out := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		var v int16
		if s < 0 {
			v = int16(s * 0x8000)
		} else {
			v = int16(s * 0x7FFF)
		}
		binary.LittleEndian.PutUint16(out[i*bytesPerSample:], uint16(v))
	}
	return out
}

// DecodeFrame unpacks little-endian 16-bit signed samples and normalizes
// each to [-1.0, 1.0] by dividing by 32768. Fails with *domain.CodecError
// when the byte count is odd.
func DecodeFrame(pcm []byte) ([]float32, error) {
	if len(pcm)%bytesPerSample != 0 {
		return nil, &domain.CodecError{
			Reason: fmt.Sprintf("pcm16 payload must have an even byte count, got %d", len(pcm)),
		}
	}
	samples := make([]float32, len(pcm)/bytesPerSample)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(pcm[i*bytesPerSample:]))
		samples[i] = float32(v) / 32768.0
	}
	return samples, nil
}

// ToTransportText base64-encodes a binary frame for embedding in a
// text-based envelope.
func ToTransportText(pcm []byte) string {
	return base64.StdEncoding.EncodeToString(pcm)
}

// FromTransportText decodes a base64 payload received in an envelope.
func FromTransportText(text string) ([]byte, error) {
	pcm, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, &domain.CodecError{Reason: "payload is not valid base64: " + err.Error()}
	}
	return pcm, nil
}
