package live

import (
	"context"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/entities"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/repositories"
)

type sentAudio struct {
	pcm  []byte
	rate int
}

type fakeChannel struct {
	events chan domain.ServerEvent

	mu      sync.Mutex
	audio   []sentAudio
	video   [][]byte
	tools   [][]repositories.ToolResponse
	closed  bool
	sendErr error
	once    sync.Once

	// videoGate, when set, holds every SendVideo until it is closed
	videoGate    chan struct{}
	videoStarted atomic.Int32
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{events: make(chan domain.ServerEvent, 32)}
}

func (f *fakeChannel) SendAudio(pcm []byte, rate int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return repositories.ErrChannelClosed
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	f.audio = append(f.audio, sentAudio{pcm: pcm, rate: rate})
	return nil
}

func (f *fakeChannel) SendVideo(jpeg []byte) error {
	f.videoStarted.Add(1)
	if f.videoGate != nil {
		<-f.videoGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return repositories.ErrChannelClosed
	}
	f.video = append(f.video, jpeg)
	return nil
}

func (f *fakeChannel) SendToolResponses(results []repositories.ToolResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return repositories.ErrChannelClosed
	}
	f.tools = append(f.tools, results)
	return nil
}

func (f *fakeChannel) Events() <-chan domain.ServerEvent {
	return f.events
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.once.Do(func() { close(f.events) })
	return nil
}

func (f *fakeChannel) push(ev domain.ServerEvent) {
	f.events <- ev
}

func (f *fakeChannel) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeChannel) audioSent() []sentAudio {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentAudio(nil), f.audio...)
}

func (f *fakeChannel) videoSent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.video)
}

func (f *fakeChannel) toolBatches() [][]repositories.ToolResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]repositories.ToolResponse(nil), f.tools...)
}

type fakeModel struct {
	mu       sync.Mutex
	channel  *fakeChannel
	err      error
	config   repositories.RealtimeConfig
	connects int
}

func (m *fakeModel) Connect(ctx context.Context, config repositories.RealtimeConfig) (repositories.RealtimeChannel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connects++
	m.config = config
	if m.err != nil {
		return nil, m.err
	}
	return m.channel, nil
}

func (m *fakeModel) connectCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connects
}

type fakeVoice struct {
	mu      sync.Mutex
	stopped bool
	onEnded func()
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

type fakeSpeaker struct {
	mu     sync.Mutex
	now    time.Duration
	voices []*fakeVoice
	closed bool
}

func (s *fakeSpeaker) CurrentTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *fakeSpeaker) SampleRate() int { return 24000 }

func (s *fakeSpeaker) Play(samples []float32, at time.Duration, onEnded func()) (repositories.Voice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := &fakeVoice{onEnded: onEnded}
	s.voices = append(s.voices, v)
	return v, nil
}

func (s *fakeSpeaker) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSpeaker) scheduled() []*fakeVoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeVoice(nil), s.voices...)
}

func (s *fakeSpeaker) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeMic struct {
	frames chan []float32
	once   sync.Once
	mu     sync.Mutex
	closed bool
}

func newFakeMic() *fakeMic {
	return &fakeMic{frames: make(chan []float32, 8)}
}

func (m *fakeMic) Frames() <-chan []float32 { return m.frames }

func (m *fakeMic) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.once.Do(func() { close(m.frames) })
	return nil
}

func (m *fakeMic) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

type fakeDevices struct {
	speaker *fakeSpeaker
	mic     *fakeMic
	micErr  error
}

func (d *fakeDevices) OpenMicrophone(ctx context.Context, config repositories.MicrophoneConfig) (repositories.AudioSource, error) {
	if d.micErr != nil {
		return nil, d.micErr
	}
	return d.mic, nil
}

func (d *fakeDevices) OpenSpeaker(ctx context.Context, sampleRate int) (repositories.AudioSink, error) {
	return d.speaker, nil
}

// fakeDispatcher resolves calls in reverse order
type fakeDispatcher struct {
	results func(call entities.ToolCall) string
}

func (d *fakeDispatcher) Declarations() []entities.ToolDeclaration {
	return []entities.ToolDeclaration{{
		Name:   "set_reminder",
		Params: []entities.ToolParam{{Name: "task", Type: entities.ParamString, Required: true}},
	}}
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, calls []entities.ToolCall) ([]entities.ToolResult, error) {
	results := make([]entities.ToolResult, 0, len(calls))
	for i := len(calls) - 1; i >= 0; i-- {
		results = append(results, entities.ToolResult{
			ID:     calls[i].ID,
			Name:   calls[i].Name,
			Result: d.results(calls[i]),
		})
	}
	return results, nil
}

type fakeVideo struct {
	mu    sync.Mutex
	ready bool
}

func (v *fakeVideo) Ready() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ready
}

func (v *fakeVideo) Frame() (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	img.Set(1, 1, color.White)
	return img, nil
}

// recorder keeps every callback in one ordered log
type recorder struct {
	mu       sync.Mutex
	log      []string
	states   []entities.ConnectionState
	captions []entities.Caption
	volumes  [][2]float64
}

func (r *recorder) config() SessionConfig {
	return SessionConfig{
		Model: "test-model",
		OnStateChange: func(state entities.ConnectionState) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.log = append(r.log, "state:"+string(state))
			r.states = append(r.states, state)
		},
		OnCaption: func(text string, isUser, isComplete bool) {
			r.mu.Lock()
			defer r.mu.Unlock()
			speaker := entities.SpeakerModel
			if isUser {
				speaker = entities.SpeakerUser
			}
			r.log = append(r.log, "caption:"+text)
			r.captions = append(r.captions, entities.Caption{Text: text, Speaker: speaker, Complete: isComplete})
		},
		OnVolumeChange: func(user, model float64) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.volumes = append(r.volumes, [2]float64{user, model})
		},
	}
}

func (r *recorder) stateLog() []entities.ConnectionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entities.ConnectionState(nil), r.states...)
}

func (r *recorder) captionLog() []entities.Caption {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entities.Caption(nil), r.captions...)
}

func (r *recorder) eventLog() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.log...)
}

func (r *recorder) volumeLog() [][2]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][2]float64(nil), r.volumes...)
}
