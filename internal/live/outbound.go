package live

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/repositories"
)

const (
	// Outbound messages buffered ahead of the writer
	outboundQueueSize = 64
)

var (
	// ErrNotReady is returned for sends issued before the channel opened or
	// after it closed
	ErrNotReady = errors.New("realtime channel not ready")
	// ErrQueueFull is returned when realtime media is dropped
	ErrQueueFull = errors.New("outbound queue full")
)

type outboundKind int

const (
	outboundAudio outboundKind = iota
	outboundVideo
	outboundTools
)

type outboundMessage struct {
	kind  outboundKind
	data  []byte
	rate  int
	tools []repositories.ToolResponse
	// written, if set, reports the outcome once the writer is done with the
	// message
	written func(error)
}

// outbound is the single writer of a realtime channel. Capture, sampler and
// tool paths enqueue; only writePump touches the channel.
type outbound struct {
	channel repositories.RealtimeChannel
	queue   chan outboundMessage
	done    chan struct{}
	ready   atomic.Bool

	mu     sync.Mutex
	closed bool

	// onError is called when a send fails for a reason other than closure
	onError func(error)

	logger *zap.Logger
}

func newOutbound(channel repositories.RealtimeChannel, onError func(error), logger *zap.Logger) *outbound {
	return &outbound{
		channel: channel,
		queue:   make(chan outboundMessage, outboundQueueSize),
		done:    make(chan struct{}),
		onError: onError,
		logger:  logger,
	}
}

// start opens the gate and begins writing. It is a no-op after close.
func (o *outbound) start() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.ready.Store(true)
	go o.writePump()
}

// close drops every pending send. It does not wait for a write in progress.
func (o *outbound) close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	o.ready.Store(false)
	close(o.done)
}

// sendAudio enqueues a PCM16 frame, dropping it when the queue is full
func (o *outbound) sendAudio(pcm []byte, rate int) error {
	return o.offer(outboundMessage{kind: outboundAudio, data: pcm, rate: rate})
}

// sendVideo enqueues a JPEG still, dropping it when the queue is full.
// written runs on the writer after the channel send returns.
func (o *outbound) sendVideo(jpeg []byte, written func(error)) error {
	return o.offer(outboundMessage{kind: outboundVideo, data: jpeg, written: written})
}

// sendTools enqueues a tool response batch, waiting for room
func (o *outbound) sendTools(ctx context.Context, responses []repositories.ToolResponse) error {
	if !o.ready.Load() {
		return ErrNotReady
	}
	select {
	case o.queue <- outboundMessage{kind: outboundTools, tools: responses}:
		return nil
	case <-o.done:
		return ErrNotReady
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *outbound) offer(msg outboundMessage) error {
	if !o.ready.Load() {
		return ErrNotReady
	}
	select {
	case o.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

func (o *outbound) writePump() {
	for {
		select {
		case <-o.done:
			return
		case msg := <-o.queue:
			select {
			case <-o.done:
				msg.finish(ErrNotReady)
				return
			default:
			}

			err := o.write(msg)
			msg.finish(err)
			if err != nil {
				if errors.Is(err, repositories.ErrChannelClosed) {
					o.logger.Debug("Dropped send on closed channel", zap.Error(err))
					continue
				}
				o.logger.Error("Realtime send failed", zap.Error(err))
				if o.onError != nil {
					o.onError(err)
				}
				return
			}
		}
	}
}

func (m outboundMessage) finish(err error) {
	if m.written != nil {
		m.written(err)
	}
}

func (o *outbound) write(msg outboundMessage) error {
	switch msg.kind {
	case outboundAudio:
		if err := o.channel.SendAudio(msg.data, msg.rate); err != nil {
			return fmt.Errorf("failed to send audio: %w", err)
		}
	case outboundVideo:
		if err := o.channel.SendVideo(msg.data); err != nil {
			return fmt.Errorf("failed to send video: %w", err)
		}
	case outboundTools:
		if err := o.channel.SendToolResponses(msg.tools); err != nil {
			return fmt.Errorf("failed to send tool responses: %w", err)
		}
	}
	return nil
}
