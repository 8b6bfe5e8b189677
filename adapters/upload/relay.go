// Package upload implements the one-shot PDF transfer side channel to the
// agent backend. Validation happens entirely client-side before any
// network call.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/questly/voicebridge/domain"
	"github.com/questly/voicebridge/domain/entities"
	"github.com/questly/voicebridge/internal/metrics"
)

const (
	// MaxFileSize is the client-side upload limit.
	MaxFileSize = 10 << 20 // 10 MiB

	// PDFMimeType is the only accepted upload type.
	PDFMimeType = "application/pdf"

	defaultTimeout = 60 * time.Second
)

// Config holds configuration for the upload relay
type Config struct {
	// BaseURL of the agent backend.
	BaseURL string
	// HTTPClient to use; defaults to a 60 second timeout client.
	HTTPClient *http.Client
}

// Relay performs one-shot multipart PDF uploads scoped to the current
// session id. It is independent from the streaming session.
type Relay struct {
	baseURL    string
	httpClient *http.Client
	session    *entities.Session
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewRelay creates an upload relay scoped to session.
func NewRelay(config Config, session *entities.Session, m *metrics.Metrics, logger *zap.Logger) *Relay {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Relay{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: httpClient,
		session:    session,
		logger:     logger,
		metrics:    m,
	}
}

// Validate runs the client-side checks: exact PDF MIME type and the size
// cap. Returns *domain.ValidationError naming the failed check.
func Validate(mimeType string, size int64) error {
	if mimeType != PDFMimeType {
		return &domain.ValidationError{
			Check:  "mime_type",
			Detail: fmt.Sprintf("expected %q, got %q", PDFMimeType, mimeType),
		}
	}
	if size > MaxFileSize {
		return &domain.ValidationError{
			Check:  "size",
			Detail: fmt.Sprintf("file is %d bytes, limit is %d", size, MaxFileSize),
		}
	}
	return nil
}

// Upload validates and transfers one file. Validation failures abort
// before any network call; transport and server failures are reported as
// *domain.UploadError with no side effects for the caller to undo.
func (r *Relay) Upload(ctx context.Context, filename, mimeType string, size int64, content io.Reader) error {
	if err := Validate(mimeType, size); err != nil {
		r.logger.Warn("Upload rejected client-side",
			zap.String("filename", filename),
			zap.Error(err))
		return err
	}

	r.metrics.RecordUploadStarted()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		r.metrics.RecordUploadFailure()
		return &domain.UploadError{Err: fmt.Errorf("failed to create form file: %w", err)}
	}
	if _, err := io.Copy(part, content); err != nil {
		r.metrics.RecordUploadFailure()
		return &domain.UploadError{Err: fmt.Errorf("failed to read file content: %w", err)}
	}
	if err := writer.Close(); err != nil {
		r.metrics.RecordUploadFailure()
		return &domain.UploadError{Err: fmt.Errorf("failed to finalize form: %w", err)}
	}

	url := fmt.Sprintf("%s/upload-pdf/%s", r.baseURL, r.session.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		r.metrics.RecordUploadFailure()
		return &domain.UploadError{Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.httpClient.Do(req)
	if err != nil {
		uploadErr := &domain.UploadError{Err: err}
		r.logger.Error("Upload request failed",
			zap.String("filename", filename),
			zap.Error(uploadErr))
		r.metrics.RecordUploadFailure()
		return uploadErr
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		uploadErr := &domain.UploadError{Status: resp.StatusCode}
		r.logger.Error("Upload rejected by backend",
			zap.String("filename", filename),
			zap.Int("status", resp.StatusCode))
		r.metrics.RecordUploadFailure()
		return uploadErr
	}

	r.logger.Info("Upload completed",
		zap.String("sessionID", r.session.ID),
		zap.String("filename", filename),
		zap.Int64("size", size))
	return nil
}
