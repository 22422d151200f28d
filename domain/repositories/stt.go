package repositories

import (
	"context"
	"errors"
)

// ErrNoSpeech is returned when a recognition stream ends without any speech
var ErrNoSpeech = errors.New("no speech detected")

// SpeechToText abstracts speech recognition services
type SpeechToText interface {
	// InitTranscribeStreaming initializes a streaming transcription session
	InitTranscribeStreaming(ctx context.Context, config AudioConfig) (SpeechToTextStreaming, error)
}

// AudioConfig represents audio configuration for speech recognition
type AudioConfig struct {
	SampleRate     int    `json:"sample_rate"`
	Encoding       string `json:"encoding"`
	Language       string `json:"language"`
	InterimResults bool   `json:"interim_results"`
}

// Transcript is one recognition update
type Transcript struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
}

type SpeechToTextStreaming interface {
	Stream(data []byte) error
	// Results delivers interim and final transcripts while audio is streamed.
	// It is closed when recognition ends.
	Results() <-chan Transcript
	// End closes the audio stream and returns the final transcription
	End() (string, error)
}
