//go:build portaudio

package portaudio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/repositories"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/internal/audio"
)

// Output frames rendered per device callback, 40ms at 24kHz
const outputFramesPerBuffer = 960

// Devices implements repositories.AudioDevices on the default PortAudio devices
type Devices struct {
	logger *zap.Logger
}

// New initializes PortAudio. Call Close when done.
func New(logger *zap.Logger) (*Devices, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", classify(err))
	}
	return &Devices{logger: logger}, nil
}

// Close terminates PortAudio
func (d *Devices) Close() error {
	return portaudio.Terminate()
}

// OpenMicrophone starts a blocking input stream read on its own goroutine
func (d *Devices) OpenMicrophone(ctx context.Context, config repositories.MicrophoneConfig) (repositories.AudioSource, error) {
	buf := make([]float32, config.FrameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(config.SampleRate), config.FrameSize, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to open input stream: %w", classify(err))
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("failed to start input stream: %w", classify(err))
	}

	m := &microphone{
		stream: stream,
		buf:    buf,
		frames: make(chan []float32, frameBuffer),
		done:   make(chan struct{}),
		logger: d.logger,
	}
	m.wg.Add(1)
	go m.readLoop()

	d.logger.Info("Microphone opened",
		zap.Int("sampleRate", config.SampleRate),
		zap.Int("frameSize", config.FrameSize))
	return m, nil
}

// OpenSpeaker starts an output stream pulling from a software mixer
func (d *Devices) OpenSpeaker(ctx context.Context, sampleRate int) (repositories.AudioSink, error) {
	mixer := audio.NewMixer(sampleRate)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), outputFramesPerBuffer, mixer.Render)
	if err != nil {
		mixer.Close()
		return nil, fmt.Errorf("failed to open output stream: %w", classify(err))
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		mixer.Close()
		return nil, fmt.Errorf("failed to start output stream: %w", classify(err))
	}

	d.logger.Info("Speaker opened", zap.Int("sampleRate", sampleRate))
	return &speaker{Mixer: mixer, stream: stream}, nil
}

type microphone struct {
	stream *portaudio.Stream
	buf    []float32
	frames chan []float32
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	logger *zap.Logger
}

func (m *microphone) readLoop() {
	defer m.wg.Done()
	defer close(m.frames)

	for {
		select {
		case <-m.done:
			return
		default:
		}

		if err := m.stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
			select {
			case <-m.done:
			default:
				m.logger.Error("Microphone read failed", zap.Error(err))
			}
			return
		}

		frame := make([]float32, len(m.buf))
		copy(frame, m.buf)
		select {
		case m.frames <- frame:
		default:
			m.logger.Debug("Microphone frame dropped, consumer is behind")
		}
	}
}

func (m *microphone) Frames() <-chan []float32 {
	return m.frames
}

func (m *microphone) Close() error {
	var err error
	m.once.Do(func() {
		close(m.done)
		if stopErr := m.stream.Stop(); stopErr != nil {
			err = fmt.Errorf("failed to stop input stream: %w", stopErr)
		}
		m.wg.Wait()
		if closeErr := m.stream.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close input stream: %w", closeErr)
		}
	})
	return err
}

// speaker is a mixer driven by a PortAudio callback stream
type speaker struct {
	*audio.Mixer
	stream *portaudio.Stream
	once   sync.Once
}

func (s *speaker) Close() error {
	var err error
	s.once.Do(func() {
		if stopErr := s.stream.Stop(); stopErr != nil {
			err = fmt.Errorf("failed to stop output stream: %w", stopErr)
		}
		s.stream.Close()
		s.Mixer.Close()
	})
	return err
}

func classify(err error) error {
	var hostErr portaudio.UnanticipatedHostError
	switch {
	case errors.As(err, &hostErr):
		return fmt.Errorf("%w: %v", repositories.ErrPermissionDenied, err)
	case errors.Is(err, portaudio.NoDefaultInputDevice),
		errors.Is(err, portaudio.NoDefaultOutputDevice),
		errors.Is(err, portaudio.DeviceUnavailable),
		errors.Is(err, portaudio.InvalidDevice):
		return fmt.Errorf("%w: %v", repositories.ErrDeviceUnavailable, err)
	}
	return err
}
