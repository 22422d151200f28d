// Package live runs one realtime voice conversation: it owns the model
// channel, the microphone and speaker, and routes events between them.
package live

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/entities"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/repositories"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/internal/audio"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/internal/metrics"
)

const (
	// InterruptedCaption is emitted as a model caption when a turn is cut off
	InterruptedCaption = "[Interrupted]"

	// Model volume reported while a playback chunk is playing
	playbackVolume = 0.5

	missingToolResult = "error: no result"
)

// ErrStopped is returned by Connect when Stop wins the race against it
var ErrStopped = errors.New("session stopped while connecting")

// SessionConfig holds the conversation settings and UI callbacks. Callbacks
// may run on different goroutines and must not block. State changes are
// delivered in order, and captions in the order the server sent them.
type SessionConfig struct {
	Model             string
	Voice             string
	SystemInstruction string

	// FrameInterval is the video sampling period, DefaultFrameInterval if zero
	FrameInterval time.Duration

	OnStateChange  func(state entities.ConnectionState)
	OnVolumeChange func(user, model float64)
	OnCaption      func(text string, isUser, isComplete bool)
	// OnToolCall observes each batch before it is dispatched
	OnToolCall func(calls []entities.ToolCall)
	// OnFrame receives every JPEG still sent to the model
	OnFrame func(jpeg []byte)
}

// Dependencies are the ports a Session drives
type Dependencies struct {
	Model   repositories.RealtimeModel
	Devices repositories.AudioDevices
	Tools   repositories.ToolDispatcher
	Metrics *metrics.Session
}

// Session is the orchestrator of a single live conversation. At most one
// connection is alive at a time.
type Session struct {
	config  SessionConfig
	model   repositories.RealtimeModel
	devices repositories.AudioDevices
	tools   repositories.ToolDispatcher
	metrics *metrics.Session
	logger  *zap.Logger

	// emitMu orders state transitions with their callbacks
	emitMu sync.Mutex

	mu    sync.Mutex
	state entities.ConnectionState
	conn  *connection
}

// connection holds everything acquired by one Connect call
type connection struct {
	id          string
	ctx         context.Context
	cancel      context.CancelFunc
	connectedAt time.Time

	speaker   repositories.AudioSink
	mic       repositories.AudioSource
	channel   repositories.RealtimeChannel
	scheduler *audio.Scheduler
	pump      *outbound
	sampler   *sampler

	volume volumeMeter
}

// NewSession creates a disconnected session
func NewSession(config SessionConfig, deps Dependencies, logger *zap.Logger) *Session {
	if config.FrameInterval <= 0 {
		config.FrameInterval = DefaultFrameInterval
	}
	return &Session{
		config:  config,
		model:   deps.Model,
		devices: deps.Devices,
		tools:   deps.Tools,
		metrics: deps.Metrics,
		logger:  logger,
		state:   entities.StateDisconnected,
	}
}

// Connect opens the speaker, the microphone and the model channel, in that
// order, then starts streaming. It is a no-op while a connection exists.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		return nil
	}
	c := &connection{id: uuid.NewString()}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	s.conn = c
	s.mu.Unlock()

	if !s.transition(c, entities.StateConnecting) {
		return ErrStopped
	}
	s.logger.Info("Connecting live session", zap.String("sessionID", c.id))

	speaker, err := s.devices.OpenSpeaker(ctx, audio.PlaybackSampleRate)
	if err != nil {
		return s.fail(c, fmt.Errorf("failed to open speaker: %w", err))
	}
	scheduler := audio.NewScheduler(speaker)
	scheduler.OnChunkStart = func(audio.PlaybackChunk) {
		s.metrics.PlaybackChunk("scheduled")
		s.volumeChanged(c.volume.setModel(playbackVolume))
	}
	scheduler.OnChunkEnd = func(audio.PlaybackChunk) {
		s.volumeChanged(c.volume.setModel(0))
	}
	if !s.attach(c, func() {
		c.speaker = speaker
		c.scheduler = scheduler
	}) {
		speaker.Close()
		return ErrStopped
	}

	mic, err := s.devices.OpenMicrophone(ctx, repositories.MicrophoneConfig{
		SampleRate: audio.CaptureSampleRate,
		FrameSize:  audio.CaptureFrameSize,
	})
	if err != nil {
		return s.fail(c, fmt.Errorf("failed to open microphone: %w", err))
	}
	if !s.attach(c, func() { c.mic = mic }) {
		mic.Close()
		return ErrStopped
	}

	channel, err := s.model.Connect(ctx, s.realtimeConfig())
	if err != nil {
		return s.fail(c, fmt.Errorf("failed to open realtime channel: %w", err))
	}
	pump := newOutbound(channel, func(err error) {
		s.teardown(c, entities.StateError)
	}, s.logger.With(zap.String("sessionID", c.id)))
	if !s.attach(c, func() {
		c.channel = channel
		c.pump = pump
		c.connectedAt = time.Now()
	}) {
		channel.Close()
		return ErrStopped
	}

	if !s.transition(c, entities.StateConnected) {
		return ErrStopped
	}
	s.metrics.Connection("connected")
	s.logger.Info("Live session connected", zap.String("sessionID", c.id))

	pump.start()
	go s.capture(c)
	go s.dispatch(c)
	return nil
}

// StartVideo begins sampling source. It reports false when no channel is
// open or sampling is already running.
func (s *Session) StartVideo(source repositories.VideoSource) bool {
	s.mu.Lock()
	c := s.conn
	if c == nil || c.pump == nil || c.sampler != nil {
		s.mu.Unlock()
		return false
	}
	sm := newSampler(source, c.pump, s.config.FrameInterval, s.config.OnFrame, s.metrics,
		s.logger.With(zap.String("sessionID", c.id)))
	c.sampler = sm
	s.mu.Unlock()

	s.logger.Info("Video sampling started", zap.String("sessionID", c.id))
	go sm.run()
	return true
}

// StopVideo cancels sampling. It is safe to call when not sampling.
func (s *Session) StopVideo() {
	s.mu.Lock()
	var sm *sampler
	if s.conn != nil {
		sm = s.conn.sampler
		s.conn.sampler = nil
	}
	s.mu.Unlock()

	if sm != nil {
		sm.stop()
		s.logger.Info("Video sampling stopped")
	}
}

// Stop releases every resource and leaves the session Disconnected. It is
// safe to call repeatedly and before Connect.
func (s *Session) Stop() {
	s.mu.Lock()
	c := s.conn
	s.mu.Unlock()

	if c != nil && s.teardown(c, entities.StateDisconnected) {
		return
	}
	s.transition(nil, entities.StateDisconnected)
}

// State returns the current connection state
func (s *Session) State() entities.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Active reports whether a connection attempt or connection is alive
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// ID returns the id of the current connection, empty when inactive
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ""
	}
	return s.conn.id
}

// Info returns a snapshot of the session
func (s *Session) Info() entities.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := entities.SessionInfo{
		State:  s.state,
		Active: s.conn != nil,
	}
	if c := s.conn; c != nil {
		info.ID = c.id
		info.Video = c.sampler != nil
		if !c.connectedAt.IsZero() {
			at := c.connectedAt
			info.ConnectedAt = &at
		}
	}
	return info
}

func (s *Session) realtimeConfig() repositories.RealtimeConfig {
	var decls []entities.ToolDeclaration
	if s.tools != nil {
		decls = s.tools.Declarations()
	}
	return repositories.RealtimeConfig{
		Model:               s.config.Model,
		Voice:               s.config.Voice,
		SystemInstruction:   s.config.SystemInstruction,
		ResponseModality:    repositories.ModalityAudio,
		InputTranscription:  true,
		OutputTranscription: true,
		Tools:               decls,
	}
}

// attach runs fn under the lock if c is still the live connection
func (s *Session) attach(c *connection, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != c {
		return false
	}
	fn()
	return true
}

func (s *Session) fail(c *connection, err error) error {
	s.logger.Error("Live session failed to connect",
		zap.String("sessionID", c.id),
		zap.Error(err))
	s.metrics.Connection("failed")
	s.teardown(c, entities.StateError)
	return err
}

// transition moves to state and reports it. With a non-nil c it only applies
// while c is the live connection.
func (s *Session) transition(c *connection, state entities.ConnectionState) bool {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if c != nil && s.conn != c {
		s.mu.Unlock()
		return false
	}
	prev := s.state
	s.state = state
	s.mu.Unlock()

	if prev == state {
		return true
	}
	s.metrics.SetState(state)
	if s.config.OnStateChange != nil {
		s.config.OnStateChange(state)
	}
	return true
}

// teardown releases c and reports final. Only the first call for the live
// connection has any effect. It never waits on the dispatch goroutine.
func (s *Session) teardown(c *connection, final entities.ConnectionState) bool {
	s.mu.Lock()
	if s.conn != c {
		s.mu.Unlock()
		return false
	}
	s.conn = nil
	sm := c.sampler
	c.sampler = nil
	s.mu.Unlock()

	c.cancel()
	if sm != nil {
		sm.stop()
	}
	if c.scheduler != nil {
		c.scheduler.Flush()
	}
	if c.pump != nil {
		c.pump.close()
	}
	if c.mic != nil {
		if err := c.mic.Close(); err != nil {
			s.logger.Warn("Failed to close microphone", zap.Error(err))
		}
	}
	if c.speaker != nil {
		if err := c.speaker.Close(); err != nil {
			s.logger.Warn("Failed to close speaker", zap.Error(err))
		}
	}
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			s.logger.Warn("Failed to close realtime channel", zap.Error(err))
		}
	}

	s.logger.Info("Live session closed",
		zap.String("sessionID", c.id),
		zap.String("state", string(final)))
	s.transition(nil, final)
	return true
}

// dispatch handles server events in arrival order
func (s *Session) dispatch(c *connection) {
	for ev := range c.channel.Events() {
		if c.ctx.Err() != nil {
			return
		}

		switch e := ev.(type) {
		case domain.AudioEvent:
			s.playAudio(c, e)

		case domain.InterruptionEvent:
			n := c.scheduler.Flush()
			s.metrics.Interruption()
			s.logger.Debug("Model turn interrupted", zap.Int("flushed", n))
			s.volumeChanged(c.volume.setModel(0))
			s.caption(InterruptedCaption, false, true)

		case domain.TranscriptionEvent:
			s.caption(e.Text, e.Speaker == entities.SpeakerUser, e.Complete)

		case domain.ToolCallEvent:
			go s.answerTools(c, e.Calls)

		case domain.CloseEvent:
			s.logger.Info("Realtime channel closed by server",
				zap.Int("code", e.Code),
				zap.String("reason", e.Reason))
			s.teardown(c, entities.StateDisconnected)
			return

		case domain.ErrorEvent:
			s.logger.Error("Realtime channel failed", zap.Error(e.Err))
			s.teardown(c, entities.StateError)
			return
		}
	}

	s.teardown(c, entities.StateDisconnected)
}

func (s *Session) playAudio(c *connection, e domain.AudioEvent) {
	samples, err := audio.PCM16ToFloat(e.Data)
	if err != nil {
		s.metrics.PlaybackChunk("dropped")
		s.logger.Warn("Dropped undecodable audio chunk",
			zap.String("mimeType", e.MIMEType),
			zap.Error(err))
		return
	}
	if len(samples) == 0 {
		return
	}
	if rate, ok := audio.ParseRate(e.MIMEType); ok && rate != c.speaker.SampleRate() {
		s.logger.Debug("Audio chunk rate differs from speaker",
			zap.Int("chunkRate", rate),
			zap.Int("speakerRate", c.speaker.SampleRate()))
	}

	if _, err := c.scheduler.Enqueue(samples); err != nil {
		s.metrics.PlaybackChunk("dropped")
		s.logger.Warn("Failed to schedule audio chunk", zap.Error(err))
	}
}

// answerTools dispatches a batch and sends exactly one response per call,
// in request order
func (s *Session) answerTools(c *connection, calls []entities.ToolCall) {
	started := time.Now()
	if s.config.OnToolCall != nil {
		s.config.OnToolCall(calls)
	}

	var results []entities.ToolResult
	if s.tools != nil {
		var err error
		results, err = s.tools.Dispatch(c.ctx, calls)
		if err != nil {
			s.logger.Error("Tool dispatch failed", zap.Error(err))
		}
	}

	responses := ToolResponses(calls, results)
	if err := c.pump.sendTools(c.ctx, responses); err != nil {
		s.logger.Warn("Failed to send tool responses",
			zap.Int("calls", len(calls)),
			zap.Error(err))
		return
	}
	s.metrics.ToolBatch(calls, time.Since(started))
}

// ToolResponses pairs results with calls. Results already in call order are
// paired by position; otherwise each result answers the first unanswered call
// with the same id. The response batch always has one entry per call, in call
// order, with each result wrapped in an object.
func ToolResponses(calls []entities.ToolCall, results []entities.ToolResult) []repositories.ToolResponse {
	answers := make([]string, len(calls))
	if aligned(calls, results) {
		for i, r := range results {
			answers[i] = r.Result
		}
	} else {
		byID := make(map[string][]string, len(results))
		for _, r := range results {
			byID[r.ID] = append(byID[r.ID], r.Result)
		}
		for i, call := range calls {
			queue := byID[call.ID]
			if len(queue) == 0 {
				answers[i] = missingToolResult
				continue
			}
			answers[i] = queue[0]
			byID[call.ID] = queue[1:]
		}
	}

	responses := make([]repositories.ToolResponse, len(calls))
	for i, call := range calls {
		responses[i] = repositories.ToolResponse{
			ID:       call.ID,
			Name:     call.Name,
			Response: map[string]any{"result": answers[i]},
		}
	}
	return responses
}

func aligned(calls []entities.ToolCall, results []entities.ToolResult) bool {
	if len(calls) != len(results) {
		return false
	}
	for i := range calls {
		if calls[i].ID != results[i].ID || calls[i].Name != results[i].Name {
			return false
		}
	}
	return true
}

func (s *Session) caption(text string, isUser, isComplete bool) {
	if s.config.OnCaption != nil {
		s.config.OnCaption(text, isUser, isComplete)
	}
}

func (s *Session) volumeChanged(user, model float64) {
	if s.config.OnVolumeChange != nil {
		s.config.OnVolumeChange(user, model)
	}
}
