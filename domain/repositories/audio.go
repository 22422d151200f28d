package repositories

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrPermissionDenied is returned when the user or OS refuses device access
	ErrPermissionDenied = errors.New("device permission denied")
	// ErrDeviceUnavailable is returned when no usable device exists
	ErrDeviceUnavailable = errors.New("device unavailable")
)

// MicrophoneConfig describes the capture stream
type MicrophoneConfig struct {
	SampleRate int
	FrameSize  int
}

// AudioSource is a live microphone stream delivering fixed-size frames
type AudioSource interface {
	// Frames delivers frames of exactly FrameSize mono samples in [-1, 1].
	// The channel is closed when the source is closed.
	Frames() <-chan []float32
	Close() error
}

// Voice is one scheduled buffer on an AudioSink
type Voice interface {
	// Stop silences the voice immediately. Stopping a finished voice is a no-op.
	Stop()
}

// AudioSink is an output device with its own clock
type AudioSink interface {
	// CurrentTime reports the device clock
	CurrentTime() time.Duration
	// SampleRate reports the output rate
	SampleRate() int
	// Play schedules samples to start at the given device time. onEnded is
	// called once when the samples finish naturally, never after Stop.
	Play(samples []float32, at time.Duration, onEnded func()) (Voice, error)
	Close() error
}

// AudioDevices opens the capture and playback devices
type AudioDevices interface {
	OpenMicrophone(ctx context.Context, config MicrophoneConfig) (AudioSource, error)
	OpenSpeaker(ctx context.Context, sampleRate int) (AudioSink, error)
}
