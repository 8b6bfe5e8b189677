package repositories

import "context"

// AudioConfig represents the capture/playback pipeline configuration
type AudioConfig struct {
	SampleRate int `json:"sample_rate"`
	FrameSize  int `json:"frame_size"`
}

// AudioInput abstracts the platform microphone.
type AudioInput interface {
	// Open requests device access and starts a capture pipeline. A denied
	// or unavailable device is reported as *domain.PermissionError.
	Open(ctx context.Context, config AudioConfig) (AudioCapture, error)
}

// AudioCapture is one live capture pipeline.
type AudioCapture interface {
	// Frames delivers fixed-size sample buffers on the platform's audio
	// processing schedule. The channel is closed when the pipeline stops.
	Frames() <-chan []float32
	// Close releases the pipeline and the underlying device handle.
	// Idempotent.
	Close() error
}

// AudioOutput abstracts the playback sink for decoded assistant audio.
type AudioOutput interface {
	// Play queues one mono sample buffer for immediate playback.
	Play(samples []float32) error
	// Close releases the sink. Idempotent.
	Close() error
}
