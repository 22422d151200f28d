package api

import (
	"time"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/entities"
)

// AuthRequest represents the request payload for panel authentication
type AuthRequest struct {
	Secret   string `json:"secret"`
	ClientID string `json:"client_id,omitempty"`
}

// AuthResponse represents the response payload for panel authentication
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	ClientID  string    `json:"client_id"`
}

// SpeakRequest asks the assistant to say text out loud
type SpeakRequest struct {
	Text string `json:"text"`
}

// DictationResponse reports the dictation state
type DictationResponse struct {
	Listening  bool   `json:"listening"`
	Transcript string `json:"transcript,omitempty"`
}

// RemindersResponse lists stored reminders
type RemindersResponse struct {
	Reminders []*entities.Reminder `json:"reminders"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
