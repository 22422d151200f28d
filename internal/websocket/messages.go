package websocket

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/entities"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Outbound message types
const (
	MessageTypeState         MessageType = "state"
	MessageTypeVolume        MessageType = "volume"
	MessageTypeCaption       MessageType = "caption"
	MessageTypeToolCall      MessageType = "tool_call"
	MessageTypeReminderFired MessageType = "reminder_fired"
	MessageTypeTranscript    MessageType = "transcript"
	MessageTypeListening     MessageType = "listening"
	MessageTypeSpeaking      MessageType = "speaking"
	MessageTypeFrame         MessageType = "frame"
	MessageTypePong          MessageType = "pong"
	MessageTypeError         MessageType = "error"
)

// Inbound message types
const (
	MessageTypePing           MessageType = "ping"
	MessageTypeDictationChunk MessageType = "dictation_chunk"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp"`
	MessageID string      `json:"message_id,omitempty"`
}

func newBase(t MessageType) BaseMessage {
	return BaseMessage{Type: t, Timestamp: time.Now().Format(time.RFC3339Nano)}
}

// StateMessage reports a connection state transition
type StateMessage struct {
	BaseMessage
	State entities.ConnectionState `json:"state"`
}

// VolumeMessage carries the user and model levels in [0, 1]
type VolumeMessage struct {
	BaseMessage
	User  float64 `json:"user"`
	Model float64 `json:"model"`
}

// CaptionMessage carries one transcription update of the live session
type CaptionMessage struct {
	BaseMessage
	entities.Caption
}

// ToolCallMessage reports a tool call and its result
type ToolCallMessage struct {
	BaseMessage
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Args   map[string]any `json:"args,omitempty"`
	Result string         `json:"result"`
}

// ReminderFiredMessage announces a due reminder
type ReminderFiredMessage struct {
	BaseMessage
	ID   string `json:"id"`
	Task string `json:"task"`
}

// TranscriptMessage carries a dictation result
type TranscriptMessage struct {
	BaseMessage
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// FlagMessage reports a boolean activity such as listening or speaking
type FlagMessage struct {
	BaseMessage
	Active bool `json:"active"`
}

// FrameMessage carries the last JPEG still sent to the model
type FrameMessage struct {
	BaseMessage
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"` // base64 encoded
}

// PongMessage represents a pong response
type PongMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

// PingMessage represents a ping message for connection health check
type PingMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// DictationChunkMessage carries microphone audio captured by the UI
type DictationChunkMessage struct {
	BaseMessage
	AudioData  string `json:"audio_data"` // base64 PCM16 little-endian mono
	SampleRate int    `json:"sample_rate"`
}

// PCM decodes the chunk payload
func (m *DictationChunkMessage) PCM() ([]byte, error) {
	return base64.StdEncoding.DecodeString(m.AudioData)
}

// MessageValidator provides validation for inbound WebSocket messages
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage parses and validates an inbound message
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid ping message: %w", err)
		}
		return &msg, nil

	case MessageTypeDictationChunk:
		var msg DictationChunkMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid dictation chunk message: %w", err)
		}
		if err := v.validateDictationChunk(&msg); err != nil {
			return nil, err
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

func (v *MessageValidator) validateDictationChunk(msg *DictationChunkMessage) error {
	if msg.AudioData == "" {
		return fmt.Errorf("audio_data is required")
	}
	if msg.SampleRate != 0 && (msg.SampleRate < 8000 || msg.SampleRate > 48000) {
		return fmt.Errorf("sample_rate must be between 8000 and 48000")
	}
	if _, err := msg.PCM(); err != nil {
		return fmt.Errorf("audio_data is not valid base64: %w", err)
	}
	return nil
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{BaseMessage: newBase(MessageTypeError), Code: code, Message: message}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(data string) *PongMessage {
	return &PongMessage{BaseMessage: newBase(MessageTypePong), Data: data}
}

func NewStateMessage(state entities.ConnectionState) *StateMessage {
	return &StateMessage{BaseMessage: newBase(MessageTypeState), State: state}
}

func NewVolumeMessage(user, model float64) *VolumeMessage {
	return &VolumeMessage{BaseMessage: newBase(MessageTypeVolume), User: user, Model: model}
}

func NewCaptionMessage(caption entities.Caption) *CaptionMessage {
	return &CaptionMessage{BaseMessage: newBase(MessageTypeCaption), Caption: caption}
}

func NewToolCallMessage(call entities.ToolCall, result string) *ToolCallMessage {
	return &ToolCallMessage{
		BaseMessage: newBase(MessageTypeToolCall),
		ID:          call.ID,
		Name:        call.Name,
		Args:        call.Args,
		Result:      result,
	}
}

func NewReminderFiredMessage(r *entities.Reminder) *ReminderFiredMessage {
	return &ReminderFiredMessage{BaseMessage: newBase(MessageTypeReminderFired), ID: r.ID, Task: r.Task}
}

func NewTranscriptMessage(text string, final bool) *TranscriptMessage {
	return &TranscriptMessage{BaseMessage: newBase(MessageTypeTranscript), Text: text, Final: final}
}

func NewFlagMessage(t MessageType, active bool) *FlagMessage {
	return &FlagMessage{BaseMessage: newBase(t), Active: active}
}

func NewFrameMessage(mimeType string, jpeg []byte) *FrameMessage {
	return &FrameMessage{
		BaseMessage: newBase(MessageTypeFrame),
		MIMEType:    mimeType,
		Data:        base64.StdEncoding.EncodeToString(jpeg),
	}
}
