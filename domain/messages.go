package domain

import (
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/entities"
)

// ServerEvent is one decoded unit of an inbound realtime message. A single
// server message may decode into several events; adapters emit them in
// dispatch precedence: audio, interruption, input transcription, output
// transcription, tool calls.
type ServerEvent interface {
	serverEvent()
}

// AudioEvent carries one inline PCM16 payload from the model
type AudioEvent struct {
	Data     []byte
	MIMEType string
}

// InterruptionEvent signals that the model turn was cut off
type InterruptionEvent struct{}

// TranscriptionEvent carries transcription text for either speaker
type TranscriptionEvent struct {
	Speaker  entities.Speaker
	Text     string
	Complete bool
}

// ToolCallEvent carries a batch of tool calls that must be answered together
type ToolCallEvent struct {
	Calls []entities.ToolCall
}

// CloseEvent reports a clean close of the remote channel. It is always the
// last event of a channel.
type CloseEvent struct {
	Code   int
	Reason string
}

// ErrorEvent reports a transport fault. It is always the last event of a
// channel.
type ErrorEvent struct {
	Err error
}

func (AudioEvent) serverEvent()         {}
func (InterruptionEvent) serverEvent()  {}
func (TranscriptionEvent) serverEvent() {}
func (ToolCallEvent) serverEvent()      {}
func (CloseEvent) serverEvent()         {}
func (ErrorEvent) serverEvent()         {}

// IsTerminal reports whether ev ends the channel
func IsTerminal(ev ServerEvent) bool {
	switch ev.(type) {
	case CloseEvent, *CloseEvent, ErrorEvent, *ErrorEvent:
		return true
	}
	return false
}
