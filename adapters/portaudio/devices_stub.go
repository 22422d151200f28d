//go:build !portaudio

package portaudio

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/repositories"
)

// Devices reports every device as unavailable in builds without PortAudio
type Devices struct {
	logger *zap.Logger
}

// New returns devices that cannot be opened
func New(logger *zap.Logger) (*Devices, error) {
	logger.Warn("Built without PortAudio, local audio devices are unavailable")
	return &Devices{logger: logger}, nil
}

// Close is a no-op
func (d *Devices) Close() error {
	return nil
}

func (d *Devices) OpenMicrophone(ctx context.Context, config repositories.MicrophoneConfig) (repositories.AudioSource, error) {
	return nil, fmt.Errorf("microphone: %w (rebuild with -tags portaudio)", repositories.ErrDeviceUnavailable)
}

func (d *Devices) OpenSpeaker(ctx context.Context, sampleRate int) (repositories.AudioSink, error) {
	return nil, fmt.Errorf("speaker: %w (rebuild with -tags portaudio)", repositories.ErrDeviceUnavailable)
}
