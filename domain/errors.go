package domain

import "fmt"

// ConnectError reports a failure to open or maintain the event stream. It
// is recovered locally by the fixed-delay reconnect and surfaced to the UI
// only as a transient disconnected status, never as a fatal error.
type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("event stream: %v", e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// SendError reports that one outbound envelope failed to deliver. Sends
// are not retried and the failure does not affect the stream.
type SendError struct {
	Status int // HTTP status, 0 when the request never completed
	Err    error
}

func (e *SendError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("send rejected with status %d", e.Status)
	}
	return fmt.Sprintf("send failed: %v", e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// CodecError reports malformed audio input, fatal to that one
// encode/decode call only.
type CodecError struct {
	Reason string
}

func (e *CodecError) Error() string {
	return "audio codec: " + e.Reason
}

// PermissionError reports that the capture device was denied or
// unavailable. It aborts Start and requires a new user gesture to retry.
type PermissionError struct {
	Err error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("microphone unavailable: %v", e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// ValidationError reports a client-side upload check failure. No network
// call is made when validation fails.
type ValidationError struct {
	Check  string // which check failed: "mime_type" or "size"
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("upload validation failed (%s): %s", e.Check, e.Detail)
}

// UploadError reports an upload network or server failure. The transcript
// is left untouched and the user may retry.
type UploadError struct {
	Status int
	Err    error
}

func (e *UploadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upload rejected with status %d", e.Status)
	}
	return fmt.Sprintf("upload failed: %v", e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }
