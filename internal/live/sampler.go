package live

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/repositories"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/internal/metrics"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/internal/video"
)

// DefaultFrameInterval samples video at 2 frames per second
const DefaultFrameInterval = 500 * time.Millisecond

// sampler is a fixed-rate timer, not a queue: a tick that finds the previous
// frame still in flight is skipped. A frame stays in flight until the channel
// write returns.
type sampler struct {
	source   repositories.VideoSource
	pump     *outbound
	interval time.Duration
	onFrame  func(jpeg []byte)

	inFlight atomic.Bool
	stopCh   chan struct{}
	once     sync.Once

	metrics *metrics.Session
	logger  *zap.Logger
}

func newSampler(source repositories.VideoSource, pump *outbound, interval time.Duration, onFrame func([]byte), m *metrics.Session, logger *zap.Logger) *sampler {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &sampler{
		source:   source,
		pump:     pump,
		interval: interval,
		onFrame:  onFrame,
		stopCh:   make(chan struct{}),
		metrics:  m,
		logger:   logger,
	}
}

func (sm *sampler) run() {
	ticker := time.NewTicker(sm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-sm.stopCh:
			return
		case <-ticker.C:
			sm.tick()
		}
	}
}

func (sm *sampler) stop() {
	sm.once.Do(func() { close(sm.stopCh) })
}

func (sm *sampler) tick() {
	if !sm.source.Ready() {
		sm.metrics.VideoFrame("skipped")
		return
	}
	if !sm.inFlight.CompareAndSwap(false, true) {
		sm.metrics.VideoFrame("skipped")
		return
	}

	go func() {
		if !sm.sample() {
			sm.inFlight.Store(false)
		}
	}()
}

// sample reports whether the frame was handed to the writer, which then
// clears inFlight
func (sm *sampler) sample() bool {
	img, err := sm.source.Frame()
	if err != nil {
		sm.metrics.VideoFrame("failed")
		sm.logger.Warn("Failed to read video frame", zap.Error(err))
		return false
	}

	data, err := video.Compress(img)
	if err != nil {
		sm.metrics.VideoFrame("failed")
		sm.logger.Warn("Failed to compress video frame", zap.Error(err))
		return false
	}

	select {
	case <-sm.stopCh:
		return false
	default:
	}

	if err := sm.pump.sendVideo(data, func(err error) { sm.written(data, err) }); err != nil {
		sm.metrics.VideoFrame("dropped")
		sm.logger.Debug("Dropped video frame", zap.Error(err))
		return false
	}
	return true
}

func (sm *sampler) written(data []byte, err error) {
	defer sm.inFlight.Store(false)
	if err != nil {
		sm.metrics.VideoFrame("dropped")
		sm.logger.Debug("Video frame not delivered", zap.Error(err))
		return
	}
	sm.metrics.VideoFrame("sent")
	if sm.onFrame != nil {
		sm.onFrame(data)
	}
}
