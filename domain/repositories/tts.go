package repositories

import "context"

// TextToSpeech abstracts speech synthesis services. The returned channel
// carries PCM16 little-endian mono audio and is closed when synthesis ends.
type TextToSpeech interface {
	ConvertTextToSpeech(ctx context.Context, text string) (<-chan []byte, error)
	// SampleRate reports the rate of the produced PCM
	SampleRate() int
}
