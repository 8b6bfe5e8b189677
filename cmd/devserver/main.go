package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/questly/voicebridge/adapters/audio"
	"github.com/questly/voicebridge/domain"
)

// devserver is a stub agent backend for local development. It implements
// the three endpoints the bridge talks to and answers every completed
// user turn with a canned fragmented reply.
func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	hub := newHub(logger)

	e.GET("/events/:sessionId", hub.handleEvents)
	e.POST("/send/:sessionId", hub.handleSend)
	e.POST("/upload-pdf/:sessionId", hub.handleUpload)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Dev stub backend started", zap.String("port", port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}
}

// hub holds per-session outboxes. Sessions are created lazily on first
// contact with any endpoint, matching the real backend.
type hub struct {
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]chan domain.StreamEvent
}

func newHub(logger *zap.Logger) *hub {
	return &hub{
		logger:   logger,
		sessions: make(map[string]chan domain.StreamEvent),
	}
}

func (h *hub) outbox(sessionID string) chan domain.StreamEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	outbox, ok := h.sessions[sessionID]
	if !ok {
		outbox = make(chan domain.StreamEvent, 64)
		h.sessions[sessionID] = outbox
		h.logger.Info("Session created", zap.String("sessionID", sessionID))
	}
	return outbox
}

// handleEvents streams the session outbox as server-sent events until the
// client goes away.
func (h *hub) handleEvents(c echo.Context) error {
	sessionID := c.Param("sessionId")
	outbox := h.outbox(sessionID)

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	h.logger.Info("Event stream attached", zap.String("sessionID", sessionID))

	enc := func(event domain.StreamEvent) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(resp, "data: %s\n\n", payload); err != nil {
			return err
		}
		resp.Flush()
		return nil
	}

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-c.Request().Context().Done():
			h.logger.Info("Event stream detached", zap.String("sessionID", sessionID))
			return nil
		case event := <-outbox:
			if err := enc(event); err != nil {
				return nil
			}
		case <-keepalive.C:
			if _, err := fmt.Fprint(resp, ": keepalive\n\n"); err != nil {
				return nil
			}
			resp.Flush()
		}
	}
}

// handleSend accepts one envelope. Text and the audio end-of-stream
// sentinel complete a user turn and trigger the canned reply; raw audio
// chunks are swallowed.
func (h *hub) handleSend(c echo.Context) error {
	sessionID := c.Param("sessionId")

	var envelope domain.Envelope
	if err := c.Bind(&envelope); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed envelope"})
	}

	switch {
	case envelope.MimeType == domain.MimeText:
		h.logger.Info("Text received",
			zap.String("sessionID", sessionID),
			zap.Int("length", len(envelope.Data)))
		h.reply(sessionID, fmt.Sprintf("You said %d characters. ", len(envelope.Data)))
	case envelope.MimeType == domain.MimeAudioPCM && envelope.EndOfStream:
		h.logger.Info("Audio turn completed", zap.String("sessionID", sessionID))
		h.reply(sessionID, "I heard your recording. ")
	case envelope.MimeType == domain.MimeAudioPCM:
		// Accumulating audio is out of scope for the stub.
	default:
		return c.JSON(http.StatusUnsupportedMediaType, map[string]string{"error": "unsupported mime_type"})
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "sent"})
}

// handleUpload accepts a multipart PDF and acknowledges it.
func (h *hub) handleUpload(c echo.Context) error {
	sessionID := c.Param("sessionId")
	h.outbox(sessionID)

	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing file field"})
	}

	h.logger.Info("Upload received",
		zap.String("sessionID", sessionID),
		zap.String("filename", file.Filename),
		zap.Int64("size", file.Size))

	return c.JSON(http.StatusOK, map[string]string{"filename": file.Filename})
}

// reply pushes a canned response split into fragments so clients exercise
// their assembly path, then a short beep and the turn boundary.
func (h *hub) reply(sessionID, text string) {
	outbox := h.outbox(sessionID)
	for _, fragment := range splitFragments(text+"Anything else?", 12) {
		h.push(outbox, sessionID, domain.StreamEvent{MimeType: domain.MimeText, Data: fragment})
	}
	h.push(outbox, sessionID, domain.StreamEvent{
		MimeType: domain.MimeAudioPCM,
		Data:     audio.ToTransportText(audio.EncodeFrame(beepFrame())),
	})
	h.push(outbox, sessionID, domain.StreamEvent{TurnComplete: true})
}

func (h *hub) push(outbox chan domain.StreamEvent, sessionID string, event domain.StreamEvent) {
	select {
	case outbox <- event:
	default:
		h.logger.Warn("Outbox full, dropping event", zap.String("sessionID", sessionID))
	}
}

// beepFrame is one 4096-sample frame of a quiet 440 Hz tone.
func beepFrame() []float32 {
	frame := make([]float32, audio.FrameSize)
	for i := range frame {
		frame[i] = 0.1 * float32(math.Sin(2*math.Pi*440*float64(i)/float64(audio.SampleRate)))
	}
	return frame
}

func splitFragments(text string, size int) []string {
	var fragments []string
	for len(text) > size {
		fragments = append(fragments, text[:size])
		text = text[size:]
	}
	if text != "" {
		fragments = append(fragments, text)
	}
	return fragments
}
