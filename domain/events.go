package domain

// Mime markers used on both directions of the wire.
const (
	MimeText     = "text/plain"
	MimeAudioPCM = "audio/pcm"
)

// Envelope is the uniform outbound wrapper delivered to the send endpoint:
// a content-type marker plus payload, addressed implicitly to the current
// session id. Audio payloads are base64-encoded PCM16.
type Envelope struct {
	MimeType    string `json:"mime_type"`
	Data        string `json:"data"`
	EndOfStream bool   `json:"end_of_stream,omitempty"`
}

// NewTextEnvelope wraps a text message for sending.
func NewTextEnvelope(text string) Envelope {
	return Envelope{MimeType: MimeText, Data: text}
}

// NewAudioEnvelope wraps one base64-encoded PCM16 chunk for sending.
func NewAudioEnvelope(data string) Envelope {
	return Envelope{MimeType: MimeAudioPCM, Data: data}
}

// NewEndOfStreamEnvelope is the sentinel sent after capture stops so the
// backend can finalize its turn.
func NewEndOfStreamEnvelope() Envelope {
	return Envelope{MimeType: MimeAudioPCM, EndOfStream: true}
}

// StreamEvent is one discriminated payload pushed by the agent over the
// event stream: a text fragment, an audio fragment, a turn-complete signal,
// or an interrupted (barge-in) signal.
type StreamEvent struct {
	MimeType     string `json:"mime_type,omitempty"`
	Data         string `json:"data,omitempty"`
	TurnComplete bool   `json:"turn_complete,omitempty"`
	Interrupted  bool   `json:"interrupted,omitempty"`
}

// IsTextFragment reports whether the event carries a text fragment.
func (e StreamEvent) IsTextFragment() bool {
	return !e.TurnComplete && !e.Interrupted && e.MimeType == MimeText
}

// IsAudioFragment reports whether the event carries an audio fragment.
func (e StreamEvent) IsAudioFragment() bool {
	return !e.TurnComplete && !e.Interrupted && e.MimeType == MimeAudioPCM
}

// IsTurnBoundary reports whether the event closes the open turn.
func (e StreamEvent) IsTurnBoundary() bool {
	return e.TurnComplete || e.Interrupted
}
