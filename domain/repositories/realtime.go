package repositories

import (
	"context"
	"errors"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/entities"
)

// ErrChannelClosed is returned by sends on a closed realtime channel
var ErrChannelClosed = errors.New("realtime channel closed")

// Modality is the response modality requested from the model
type Modality string

const (
	ModalityAudio Modality = "AUDIO"
	ModalityText  Modality = "TEXT"
)

// RealtimeConfig holds everything declared when a realtime channel opens
type RealtimeConfig struct {
	Model               string
	Voice               string
	SystemInstruction   string
	ResponseModality    Modality
	InputTranscription  bool
	OutputTranscription bool
	Tools               []entities.ToolDeclaration
}

// RealtimeModel abstracts a bidirectional conversational endpoint
type RealtimeModel interface {
	// Connect opens a channel. It returns once the channel is usable for sends.
	Connect(ctx context.Context, config RealtimeConfig) (RealtimeChannel, error)
}

// RealtimeChannel is an open bidirectional session with the model.
// Send methods must not be called concurrently with each other.
type RealtimeChannel interface {
	// SendAudio transmits PCM16 little-endian mono samples at the given rate
	SendAudio(pcm []byte, sampleRate int) error
	// SendVideo transmits a single JPEG still
	SendVideo(jpeg []byte) error
	// SendToolResponses answers a tool-call batch
	SendToolResponses(results []ToolResponse) error
	// Events streams decoded server events in arrival order. The channel is
	// closed after a CloseEvent or ErrorEvent.
	Events() <-chan domain.ServerEvent
	// Close closes the channel
	Close() error
}

// ToolResponse is the wire form of a ToolResult. The payload must be an
// object; bare scalars are rejected by the transport.
type ToolResponse struct {
	ID       string
	Name     string
	Response map[string]any
}
