package gemini

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/repositories"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/internal/audio"
)

const (
	// DefaultModel is the native-audio Live model
	DefaultModel = "gemini-2.5-flash-native-audio-preview-09-2025"
	// DefaultAPIVersion is required by the Live endpoint on the Gemini API backend
	DefaultAPIVersion = "v1beta"

	setupTimeout = 10 * time.Second
	eventBuffer  = 64
)

// Config configures the Gemini Live adapter
type Config struct {
	APIKey     string
	APIVersion string
	// BaseURL overrides the API endpoint, mainly for tests
	BaseURL string
}

// LiveModel implements repositories.RealtimeModel using the Gemini Live API
type LiveModel struct {
	client *genai.Client
	logger *zap.Logger
}

var _ repositories.RealtimeModel = (*LiveModel)(nil)

// NewLiveModel creates a new Gemini Live client
func NewLiveModel(ctx context.Context, config Config, logger *zap.Logger) (*LiveModel, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if config.APIVersion == "" {
		config.APIVersion = DefaultAPIVersion
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			APIVersion: config.APIVersion,
			BaseURL:    config.BaseURL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &LiveModel{
		client: client,
		logger: logger,
	}, nil
}

// Connect opens a Live session and waits for the server to acknowledge the
// setup message
func (m *LiveModel) Connect(ctx context.Context, config repositories.RealtimeConfig) (repositories.RealtimeChannel, error) {
	model := config.Model
	if model == "" {
		model = DefaultModel
	}

	connectConfig, err := ConnectConfig(config)
	if err != nil {
		return nil, err
	}

	session, err := m.client.Live.Connect(ctx, model, connectConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Gemini Live: %w", err)
	}

	ch := newLiveChannel(session, m.logger.With(zap.String("model", model)))
	if err := ch.awaitSetup(ctx); err != nil {
		session.Close()
		return nil, err
	}

	m.logger.Info("Gemini Live session opened", zap.String("model", model))
	go ch.receiveLoop()
	return ch, nil
}

// liveChannel implements repositories.RealtimeChannel over a genai session
type liveChannel struct {
	session *genai.Session
	events  chan domain.ServerEvent
	done    chan struct{}

	mu     sync.Mutex
	closed bool

	logger *zap.Logger
}

func newLiveChannel(session *genai.Session, logger *zap.Logger) *liveChannel {
	return &liveChannel{
		session: session,
		events:  make(chan domain.ServerEvent, eventBuffer),
		done:    make(chan struct{}),
		logger:  logger,
	}
}

type receiveResult struct {
	msg *genai.LiveServerMessage
	err error
}

// awaitSetup reads the setup acknowledgement. Content arriving before it is
// decoded and queued.
func (c *liveChannel) awaitSetup(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, setupTimeout)
	defer cancel()

	for {
		result := make(chan receiveResult, 1)
		go func() {
			msg, err := c.session.Receive()
			result <- receiveResult{msg: msg, err: err}
		}()

		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to receive setup response: %w", ctx.Err())
		case r := <-result:
			if r.err != nil {
				return fmt.Errorf("failed to receive setup response: %w", r.err)
			}
			if r.msg.SetupComplete != nil {
				return nil
			}
			if err := c.queueEarly(ctx, Decode(r.msg)); err != nil {
				return err
			}
		}
	}
}

// queueEarly buffers events received before setup completed. It gives up
// when ctx ends, since nobody drains the channel until Connect returns.
func (c *liveChannel) queueEarly(ctx context.Context, events []domain.ServerEvent) error {
	for _, ev := range events {
		select {
		case c.events <- ev:
		case <-ctx.Done():
			return fmt.Errorf("failed to receive setup response: %w", ctx.Err())
		}
	}
	return nil
}

func (c *liveChannel) receiveLoop() {
	defer close(c.events)

	for {
		msg, err := c.session.Receive()
		if err != nil {
			if c.isClosed() {
				return
			}
			c.emit(ClassifyReceiveError(err))
			return
		}

		if msg.GoAway != nil {
			c.logger.Warn("Gemini Live session ending soon", zap.Duration("timeLeft", msg.GoAway.TimeLeft))
		}
		if msg.ToolCallCancellation != nil {
			c.logger.Debug("Tool calls cancelled by server", zap.Strings("ids", msg.ToolCallCancellation.IDs))
		}

		for _, ev := range Decode(msg) {
			if !c.emit(ev) {
				return
			}
		}
	}
}

func (c *liveChannel) emit(ev domain.ServerEvent) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

// ClassifyReceiveError turns a read failure into the terminal event of a
// channel. Normal and going-away closes are clean; everything else is a fault.
func ClassifyReceiveError(err error) domain.ServerEvent {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) &&
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return domain.CloseEvent{Code: closeErr.Code, Reason: closeErr.Text}
	}
	return domain.ErrorEvent{Err: fmt.Errorf("gemini live receive failed: %w", err)}
}

func (c *liveChannel) SendAudio(pcm []byte, sampleRate int) error {
	if c.isClosed() {
		return repositories.ErrChannelClosed
	}
	return c.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{Data: pcm, MIMEType: audio.PCMMIMEType(sampleRate)},
	})
}

func (c *liveChannel) SendVideo(jpeg []byte) error {
	if c.isClosed() {
		return repositories.ErrChannelClosed
	}
	return c.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Video: &genai.Blob{Data: jpeg, MIMEType: "image/jpeg"},
	})
}

func (c *liveChannel) SendToolResponses(results []repositories.ToolResponse) error {
	if c.isClosed() {
		return repositories.ErrChannelClosed
	}
	return c.session.SendToolResponse(genai.LiveToolResponseInput{
		FunctionResponses: FunctionResponses(results),
	})
}

func (c *liveChannel) Events() <-chan domain.ServerEvent {
	return c.events
}

func (c *liveChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	if err := c.session.Close(); err != nil {
		return fmt.Errorf("failed to close Gemini Live session: %w", err)
	}
	return nil
}

func (c *liveChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
