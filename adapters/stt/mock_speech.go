package stt

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/repositories"
)

// MockSpeechToText recognizes a fixed script, one word per streamed chunk.
// It stands in for Google Cloud Speech when no credentials are configured.
type MockSpeechToText struct {
	logger *zap.Logger
	words  []string
}

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(script string, logger *zap.Logger) *MockSpeechToText {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MockSpeechToText{
		logger: logger,
		words:  strings.Fields(script),
	}
}

// InitTranscribeStreaming creates a new mock streaming session
func (s *MockSpeechToText) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	s.logger.Debug("Initializing mock streaming transcription",
		zap.Int("sampleRate", config.SampleRate),
		zap.String("encoding", config.Encoding),
		zap.String("language", config.Language))

	return &MockSpeechToTextStream{
		words:   s.words,
		interim: config.InterimResults,
		results: make(chan repositories.Transcript, len(s.words)+1),
	}, nil
}

// MockSpeechToTextStream is a mock implementation of streaming speech recognition
type MockSpeechToTextStream struct {
	words   []string
	interim bool
	results chan repositories.Transcript

	mu     sync.Mutex
	heard  int
	closed bool
}

// Stream implements repositories.SpeechToTextStreaming
func (m *MockSpeechToTextStream) Stream(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.heard >= len(m.words) {
		return nil
	}
	m.heard++
	if m.interim {
		m.results <- repositories.Transcript{Text: strings.Join(m.words[:m.heard], " ")}
	}
	return nil
}

// Results implements repositories.SpeechToTextStreaming
func (m *MockSpeechToTextStream) Results() <-chan repositories.Transcript {
	return m.results
}

// End returns the words recognized so far
func (m *MockSpeechToTextStream) End() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", repositories.ErrNoSpeech
	}
	m.closed = true
	defer close(m.results)

	if m.heard == 0 {
		return "", repositories.ErrNoSpeech
	}
	text := strings.Join(m.words[:m.heard], " ")
	m.results <- repositories.Transcript{Text: text, IsFinal: true}
	return text, nil
}
