package main

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/questly/voicebridge/adapters/audio"
	"github.com/questly/voicebridge/adapters/stream"
	"github.com/questly/voicebridge/adapters/upload"
	"github.com/questly/voicebridge/domain/entities"
	"github.com/questly/voicebridge/domain/repositories"
	"github.com/questly/voicebridge/internal/metrics"
	"github.com/questly/voicebridge/usecase"
)

// Config holds configuration for the CLI client
type Config struct {
	BackendURL string
	// PCMInput is a raw 16 kHz mono PCM16 file used as the microphone
	// source. Empty falls back to a generated tone.
	PCMInput string
	// WavOutput is where agent audio is written as a WAV file.
	WavOutput string
}

// NewConfigFromEnv creates a new Config from environment variables
func NewConfigFromEnv() Config {
	config := Config{
		BackendURL: os.Getenv("VOICEBRIDGE_BACKEND_URL"),
		PCMInput:   os.Getenv("VOICEBRIDGE_PCM_INPUT"),
		WavOutput:  os.Getenv("VOICEBRIDGE_WAV_OUTPUT"),
	}
	if config.BackendURL == "" {
		config.BackendURL = "http://localhost:8000"
	}
	if config.WavOutput == "" {
		config.WavOutput = "agent-audio.wav"
	}
	return config
}

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded", zap.Error(err))
	}

	config := NewConfigFromEnv()

	session := entities.NewSession()
	logger.Info("Session created",
		zap.String("sessionID", session.ID),
		zap.String("backend", config.BackendURL))

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	streamClient := stream.NewClient(stream.Config{BaseURL: config.BackendURL}, session, m, logger)

	wavFile, err := os.Create(config.WavOutput)
	if err != nil {
		logger.Fatal("Cannot create audio output file", zap.Error(err))
	}
	sink := audio.NewWavOutput(wavFile, logger)

	input := microphoneSource(config, logger)

	assembler := usecase.NewAssembler(sink, logger)
	capture := usecase.NewCaptureController(input, streamClient, m, logger)
	relay := upload.NewRelay(upload.Config{BaseURL: config.BackendURL}, session, m, logger)
	service := usecase.NewBridgeService(session, streamClient, assembler, capture, relay, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := service.Run(ctx); err != nil {
			logger.Error("Bridge stopped", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	fmt.Println("Connected as session", session.ID)
	fmt.Println("Type a message, or /record, /stop, /upload <file.pdf>, /transcript, /status, /quit")

	for {
		select {
		case <-quit:
			logger.Info("Shutting down")
			service.Close()
			return
		case line, ok := <-lines:
			if !ok {
				service.Close()
				return
			}
			if done := handleLine(ctx, service, line); done {
				service.Close()
				return
			}
		}
	}
}

func handleLine(ctx context.Context, service *usecase.BridgeService, line string) bool {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false
	case line == "/quit":
		return true
	case line == "/record":
		if err := service.StartRecording(ctx); err != nil {
			fmt.Println("record failed:", err)
		} else {
			fmt.Println("recording...")
		}
	case line == "/stop":
		if err := service.StopRecording(ctx); err != nil {
			fmt.Println("stop failed:", err)
		} else {
			fmt.Println("recording stopped")
		}
	case line == "/transcript":
		for _, turn := range service.Transcript() {
			fmt.Printf("[%s] %s\n", turn.Speaker, turn.Content)
		}
	case line == "/status":
		fmt.Printf("connection=%s agent=%s\n", service.ConnectionStatus(), service.AgentState())
	case strings.HasPrefix(line, "/upload "):
		uploadFile(ctx, service, strings.TrimSpace(strings.TrimPrefix(line, "/upload ")))
	case strings.HasPrefix(line, "/"):
		fmt.Println("unknown command:", line)
	default:
		if err := service.SendText(ctx, line); err != nil {
			fmt.Println("send failed:", err)
		}
	}
	return false
}

func uploadFile(ctx context.Context, service *usecase.BridgeService, path string) {
	file, err := os.Open(path)
	if err != nil {
		fmt.Println("upload failed:", err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		fmt.Println("upload failed:", err)
		return
	}

	name := filepath.Base(path)
	if err := service.UploadFile(ctx, name, upload.PDFMimeType, info.Size(), file); err != nil {
		fmt.Println("upload failed:", err)
		return
	}
	fmt.Println("uploaded", name)
}

// microphoneSource picks the capture device: a raw PCM file when
// configured, otherwise a scripted one-second 440 Hz tone.
func microphoneSource(config Config, logger *zap.Logger) repositories.AudioInput {
	if config.PCMInput != "" {
		file, err := os.Open(config.PCMInput)
		if err != nil {
			logger.Fatal("Cannot open PCM input file", zap.Error(err))
		}
		return audio.NewReaderInput(file, logger)
	}

	input := audio.NewMockAudioInput(logger)
	input.Script = toneScript(audio.SampleRate, audio.FrameSize)
	return input
}

func toneScript(sampleRate, frameSize int) [][]float32 {
	frames := sampleRate / frameSize
	script := make([][]float32, 0, frames)
	n := 0
	for i := 0; i < frames; i++ {
		frame := make([]float32, frameSize)
		for j := range frame {
			frame[j] = 0.2 * float32(math.Sin(2*math.Pi*440*float64(n)/float64(sampleRate)))
			n++
		}
		script = append(script, frame)
	}
	return script
}
