package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/entities"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/repositories"
)

type fakeOpener struct {
	mu     sync.Mutex
	opened []string
	err    error
}

func (o *fakeOpener) Open(ctx context.Context, url string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.opened = append(o.opened, url)
	return nil
}

func (o *fakeOpener) urls() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}

type fakeNotifier struct {
	mu          sync.Mutex
	toolCalls   []string
	fired       []string
	transcripts []repositories.Transcript
	listening   []bool
	speaking    []bool
}

func (n *fakeNotifier) NotifyToolCall(call entities.ToolCall, result string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toolCalls = append(n.toolCalls, call.Name+": "+result)
}

func (n *fakeNotifier) NotifyReminderFired(r *entities.Reminder) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fired = append(n.fired, r.Task)
}

func (n *fakeNotifier) NotifyTranscript(text string, isFinal bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.transcripts = append(n.transcripts, repositories.Transcript{Text: text, IsFinal: isFinal})
}

func (n *fakeNotifier) NotifyListening(listening bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listening = append(n.listening, listening)
}

func (n *fakeNotifier) NotifySpeaking(speaking bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.speaking = append(n.speaking, speaking)
}

func (n *fakeNotifier) firedTasks() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.fired...)
}

func (n *fakeNotifier) toolLog() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.toolCalls...)
}

func (n *fakeNotifier) speakingLog() []bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]bool(nil), n.speaking...)
}

func (n *fakeNotifier) listeningLog() []bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]bool(nil), n.listening...)
}

type fakeReminderSpeaker struct {
	mu     sync.Mutex
	spoken []string
}

func (s *fakeReminderSpeaker) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, text)
	return nil
}

func (s *fakeReminderSpeaker) SpeakSupported() bool { return true }

func (s *fakeReminderSpeaker) said() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

type fakeVoice struct {
	mu      sync.Mutex
	stopped bool
}

func (v *fakeVoice) Stop() {
	v.mu.Lock()
	v.stopped = true
	v.mu.Unlock()
}

func (v *fakeVoice) isStopped() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stopped
}

// fakeSink finishes every voice right away unless hold is set
type fakeSink struct {
	rate int
	hold bool

	mu     sync.Mutex
	voices []*fakeVoice
	played int
	closed bool
}

func (s *fakeSink) CurrentTime() time.Duration { return 0 }

func (s *fakeSink) SampleRate() int { return s.rate }

func (s *fakeSink) Play(samples []float32, at time.Duration, onEnded func()) (repositories.Voice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := &fakeVoice{}
	s.voices = append(s.voices, v)
	s.played += len(samples)
	if !s.hold {
		go onEnded()
	}
	return v, nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSink) scheduled() []*fakeVoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeVoice(nil), s.voices...)
}

type fakeMic struct {
	frames chan []float32
	once   sync.Once
}

func (m *fakeMic) Frames() <-chan []float32 { return m.frames }

func (m *fakeMic) Close() error {
	m.once.Do(func() { close(m.frames) })
	return nil
}

type fakeDevices struct {
	sink     *fakeSink
	mic      *fakeMic
	micErr   error
	sinkRate int
}

func (d *fakeDevices) OpenMicrophone(ctx context.Context, config repositories.MicrophoneConfig) (repositories.AudioSource, error) {
	if d.micErr != nil {
		return nil, d.micErr
	}
	if d.mic == nil {
		return nil, repositories.ErrDeviceUnavailable
	}
	return d.mic, nil
}

func (d *fakeDevices) OpenSpeaker(ctx context.Context, sampleRate int) (repositories.AudioSink, error) {
	d.sinkRate = sampleRate
	if d.sink == nil {
		return nil, repositories.ErrDeviceUnavailable
	}
	return d.sink, nil
}

// fakeTTS emits the given PCM chunks, stopping early on cancellation
type fakeTTS struct {
	chunks [][]byte
	err    error
}

func (t *fakeTTS) SampleRate() int { return 24000 }

func (t *fakeTTS) ConvertTextToSpeech(ctx context.Context, text string) (<-chan []byte, error) {
	if t.err != nil {
		return nil, t.err
	}
	out := make(chan []byte)
	go func() {
		defer close(out)
		for _, c := range t.chunks {
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// failingSTT produces streams that die on their own
type failingSTT struct{}

type failingStream struct {
	results chan repositories.Transcript
}

func (failingSTT) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	s := &failingStream{results: make(chan repositories.Transcript)}
	close(s.results)
	return s, nil
}

func (s *failingStream) Stream(data []byte) error { return errors.New("stream broken") }

func (s *failingStream) Results() <-chan repositories.Transcript { return s.results }

func (s *failingStream) End() (string, error) { return "", errors.New("recognizer unavailable") }
