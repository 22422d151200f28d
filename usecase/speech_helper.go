package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/repositories"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/internal/audio"
)

var (
	// ErrSpeechUnsupported is returned when no recognizer or synthesizer is configured
	ErrSpeechUnsupported = errors.New("speech facility not supported")
	// ErrNotListening is returned when dictation audio arrives outside a listening period
	ErrNotListening = errors.New("not listening")
)

// SpeechHelperConfig holds dictation settings and UI callbacks. Callbacks
// must not block.
type SpeechHelperConfig struct {
	Language string
	// UseMicrophone streams the local microphone while listening. Chunks fed
	// by UI clients are accepted either way.
	UseMicrophone bool

	OnInterim    func(text string)
	OnFinal      func(text string)
	OnListening  func(listening bool)
	OnSpeakStart func()
	OnSpeakEnd   func()
}

// SpeechHelper wraps dictation and speech synthesis. It is independent of
// the live session.
type SpeechHelper struct {
	config   SpeechHelperConfig
	stt      repositories.SpeechToText
	tts      repositories.TextToSpeech
	devices  repositories.AudioDevices
	notifier repositories.Notifier
	logger   *zap.Logger

	mu     sync.Mutex
	listen *listening

	// one utterance at a time
	speakMu     sync.Mutex
	speakCancel atomic.Pointer[context.CancelFunc]
}

type listening struct {
	stream   repositories.SpeechToTextStreaming
	mic      repositories.AudioSource
	cancel   context.CancelFunc
	stopping atomic.Bool
	micDone  chan struct{}
	results  chan struct{}
}

// NewSpeechHelper creates a helper. stt, tts, devices and notifier may be
// nil; the matching capability then reports unsupported.
func NewSpeechHelper(
	config SpeechHelperConfig,
	stt repositories.SpeechToText,
	tts repositories.TextToSpeech,
	devices repositories.AudioDevices,
	notifier repositories.Notifier,
	logger *zap.Logger,
) *SpeechHelper {
	if config.Language == "" {
		config.Language = "en-US"
	}
	return &SpeechHelper{
		config:   config,
		stt:      stt,
		tts:      tts,
		devices:  devices,
		notifier: notifier,
		logger:   logger,
	}
}

// ListeningSupported reports whether dictation is available
func (h *SpeechHelper) ListeningSupported() bool {
	return h.stt != nil
}

// SpeakSupported reports whether synthesis is available
func (h *SpeechHelper) SpeakSupported() bool {
	return h.tts != nil && h.devices != nil
}

// Listening reports whether a dictation period is open
func (h *SpeechHelper) Listening() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.listen != nil
}

// StartListening opens a recognition stream. It is a no-op while listening.
func (h *SpeechHelper) StartListening(ctx context.Context) error {
	if !h.ListeningSupported() {
		return ErrSpeechUnsupported
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listen != nil {
		return nil
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	stream, err := h.stt.InitTranscribeStreaming(streamCtx, repositories.AudioConfig{
		SampleRate:     audio.CaptureSampleRate,
		Encoding:       "LINEAR16",
		Language:       h.config.Language,
		InterimResults: true,
	})
	if err != nil {
		cancel()
		return fmt.Errorf("failed to start recognition: %w", err)
	}

	l := &listening{
		stream:  stream,
		cancel:  cancel,
		micDone: make(chan struct{}),
		results: make(chan struct{}),
	}

	if h.config.UseMicrophone && h.devices != nil {
		mic, err := h.devices.OpenMicrophone(ctx, repositories.MicrophoneConfig{
			SampleRate: audio.CaptureSampleRate,
			FrameSize:  audio.CaptureFrameSize,
		})
		if err != nil {
			// UI clients can still feed audio
			h.logger.Warn("Dictation microphone unavailable", zap.Error(err))
		} else {
			l.mic = mic
		}
	}

	h.listen = l
	if l.mic != nil {
		go h.pumpMicrophone(l)
	} else {
		close(l.micDone)
	}
	go h.forwardResults(l)

	h.logger.Info("Dictation started")
	h.listeningChanged(true)
	return nil
}

// FeedDictation streams PCM16 audio from a UI client into the open
// recognition stream.
func (h *SpeechHelper) FeedDictation(pcm []byte, sampleRate int) error {
	if sampleRate != audio.CaptureSampleRate {
		return fmt.Errorf("dictation sample rate %d not supported, want %d", sampleRate, audio.CaptureSampleRate)
	}
	h.mu.Lock()
	l := h.listen
	h.mu.Unlock()
	if l == nil || l.stopping.Load() {
		return ErrNotListening
	}
	return l.stream.Stream(pcm)
}

// StopListening ends dictation and returns the final transcript. Transient
// recognition errors yield an empty transcript; other errors are logged.
func (h *SpeechHelper) StopListening() string {
	h.mu.Lock()
	l := h.listen
	h.mu.Unlock()
	if l == nil {
		return ""
	}
	return h.stop(l)
}

func (h *SpeechHelper) stop(l *listening) string {
	h.mu.Lock()
	if h.listen != l || l.stopping.Swap(true) {
		h.mu.Unlock()
		return ""
	}
	h.mu.Unlock()

	if l.mic != nil {
		l.mic.Close()
	}
	<-l.micDone

	text, err := l.stream.End()
	l.cancel()
	<-l.results

	h.mu.Lock()
	h.listen = nil
	h.mu.Unlock()

	if err != nil && !isTransientRecognitionError(err) {
		h.logger.Error("Dictation failed", zap.Error(err))
	}
	h.logger.Info("Dictation stopped", zap.Int("transcriptLength", len(text)))
	h.listeningChanged(false)
	return text
}

func (h *SpeechHelper) pumpMicrophone(l *listening) {
	defer close(l.micDone)
	for frame := range l.mic.Frames() {
		if l.stopping.Load() {
			continue
		}
		if err := l.stream.Stream(audio.FloatToPCM16(frame)); err != nil {
			h.logger.Debug("Failed to stream dictation frame", zap.Error(err))
		}
	}
}

// forwardResults relays transcripts until the stream closes. A stream that
// closes on its own ends the listening period.
func (h *SpeechHelper) forwardResults(l *listening) {
	for t := range l.stream.Results() {
		if t.IsFinal {
			if h.config.OnFinal != nil {
				h.config.OnFinal(t.Text)
			}
		} else if h.config.OnInterim != nil {
			h.config.OnInterim(t.Text)
		}
		if h.notifier != nil {
			h.notifier.NotifyTranscript(t.Text, t.IsFinal)
		}
	}
	close(l.results)

	if !l.stopping.Load() {
		go h.stop(l)
	}
}

func (h *SpeechHelper) listeningChanged(listening bool) {
	if h.config.OnListening != nil {
		h.config.OnListening(listening)
	}
	if h.notifier != nil {
		h.notifier.NotifyListening(listening)
	}
}

// isTransientRecognitionError matches no-speech and aborted recognitions
func isTransientRecognitionError(err error) bool {
	if errors.Is(err, repositories.ErrNoSpeech) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Canceled, codes.Aborted, codes.OutOfRange:
			return true
		}
	}
	return false
}

// Speak synthesizes text and plays it through its own speaker. It returns
// when playback ends, ctx is cancelled or StopSpeaking is called.
func (h *SpeechHelper) Speak(ctx context.Context, text string) error {
	if !h.SpeakSupported() {
		return ErrSpeechUnsupported
	}

	h.speakMu.Lock()
	defer h.speakMu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	h.speakCancel.Store(&cancel)
	defer h.speakCancel.Store(nil)

	chunks, err := h.tts.ConvertTextToSpeech(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to synthesize speech: %w", err)
	}

	speaker, err := h.devices.OpenSpeaker(ctx, h.tts.SampleRate())
	if err != nil {
		// drain so the synthesizer goroutine can exit
		cancel()
		for range chunks {
		}
		return fmt.Errorf("failed to open speaker: %w", err)
	}
	defer speaker.Close()

	scheduler := audio.NewScheduler(speaker)
	idle := make(chan struct{}, 1)
	scheduler.OnChunkEnd = func(audio.PlaybackChunk) {
		select {
		case idle <- struct{}{}:
		default:
		}
	}

	h.speakingChanged(true)
	defer h.speakingChanged(false)

	for chunk := range chunks {
		samples, err := audio.PCM16ToFloat(chunk)
		if err != nil {
			h.logger.Debug("Dropping undecodable speech chunk", zap.Error(err))
			continue
		}
		if _, err := scheduler.Enqueue(samples); err != nil {
			h.logger.Debug("Failed to schedule speech chunk", zap.Error(err))
		}
	}

	for scheduler.InFlight() > 0 {
		select {
		case <-idle:
		case <-ctx.Done():
			scheduler.Flush()
			return ctx.Err()
		}
	}
	return ctx.Err()
}

// StopSpeaking cuts off the current utterance, if any
func (h *SpeechHelper) StopSpeaking() {
	if cancel := h.speakCancel.Load(); cancel != nil {
		(*cancel)()
	}
}

func (h *SpeechHelper) speakingChanged(speaking bool) {
	if speaking && h.config.OnSpeakStart != nil {
		h.config.OnSpeakStart()
	}
	if !speaking && h.config.OnSpeakEnd != nil {
		h.config.OnSpeakEnd()
	}
	if h.notifier != nil {
		h.notifier.NotifySpeaking(speaking)
	}
}
