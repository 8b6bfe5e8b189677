package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/questly/voicebridge/domain"
	"github.com/questly/voicebridge/domain/entities"
	"github.com/questly/voicebridge/internal/metrics"
)

func newTestRelay(baseURL string) *Relay {
	return NewRelay(Config{BaseURL: baseURL}, entities.NewSession(),
		metrics.NewMetrics(prometheus.NewRegistry()), zap.NewNop())
}

func TestValidateRejectsWrongMimeType(t *testing.T) {
	err := Validate("text/plain", 100)
	if err == nil {
		t.Fatal("Expected validation error for non-PDF type")
	}

	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Expected *domain.ValidationError, got %T", err)
	}
	if validationErr.Check != "mime_type" {
		t.Errorf("Expected mime_type check to fail, got %q", validationErr.Check)
	}
}

func TestValidateRejectsOversize(t *testing.T) {
	err := Validate(PDFMimeType, MaxFileSize+1)

	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Expected *domain.ValidationError, got %v", err)
	}
	if validationErr.Check != "size" {
		t.Errorf("Expected size check to fail, got %q", validationErr.Check)
	}

	if err := Validate(PDFMimeType, MaxFileSize); err != nil {
		t.Errorf("Exactly 10 MiB should pass, got %v", err)
	}
}

func TestUploadInvalidFileNeverHitsNetwork(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer server.Close()

	relay := newTestRelay(server.URL)

	err := relay.Upload(context.Background(), "notes.txt", "text/plain", 10, strings.NewReader("x"))
	if err == nil {
		t.Fatal("Expected validation error")
	}
	err = relay.Upload(context.Background(), "big.pdf", PDFMimeType, MaxFileSize+1, strings.NewReader("x"))
	if err == nil {
		t.Fatal("Expected validation error")
	}

	if n := requests.Load(); n != 0 {
		t.Errorf("Validation failures must not issue network calls, saw %d", n)
	}
}

func TestUploadSendsMultipartFile(t *testing.T) {
	content := []byte("%PDF-1.4 fake body")
	var gotName string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/upload-pdf/") {
			http.NotFound(w, r)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("Missing multipart file field: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotName = header.Filename
		gotBody, _ = io.ReadAll(file)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	relay := newTestRelay(server.URL)

	err := relay.Upload(context.Background(), "syllabus.pdf", PDFMimeType,
		int64(len(content)), bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if gotName != "syllabus.pdf" {
		t.Errorf("Expected filename syllabus.pdf, got %q", gotName)
	}
	if !bytes.Equal(gotBody, content) {
		t.Error("Uploaded body does not match source content")
	}
}

func TestUploadServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	relay := newTestRelay(server.URL)

	err := relay.Upload(context.Background(), "doc.pdf", PDFMimeType, 4, strings.NewReader("body"))
	if err == nil {
		t.Fatal("Expected upload error")
	}

	var uploadErr *domain.UploadError
	if !errors.As(err, &uploadErr) {
		t.Fatalf("Expected *domain.UploadError, got %T", err)
	}
	if uploadErr.Status != http.StatusInternalServerError {
		t.Errorf("Expected status 500 in error, got %d", uploadErr.Status)
	}
}
