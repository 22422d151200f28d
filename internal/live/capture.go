package live

import (
	"math"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/internal/audio"
)

// volumeMeter keeps the last reported level of each speaker
type volumeMeter struct {
	user  atomic.Uint64
	model atomic.Uint64
}

func (v *volumeMeter) setUser(level float64) (user, model float64) {
	v.user.Store(math.Float64bits(level))
	return level, v.Model()
}

func (v *volumeMeter) setModel(level float64) (user, model float64) {
	v.model.Store(math.Float64bits(level))
	return v.User(), level
}

func (v *volumeMeter) User() float64 {
	return math.Float64frombits(v.user.Load())
}

func (v *volumeMeter) Model() float64 {
	return math.Float64frombits(v.model.Load())
}

// capture forwards microphone frames to the model until the source closes.
// Send failures drop the frame and never stop the loop.
func (s *Session) capture(c *connection) {
	for frame := range c.mic.Frames() {
		if c.ctx.Err() != nil {
			return
		}

		s.volumeChanged(c.volume.setUser(audio.RMS(frame)))

		pcm := audio.FloatToPCM16(frame)
		if err := c.pump.sendAudio(pcm, audio.CaptureSampleRate); err != nil {
			s.metrics.AudioFrame("dropped")
			s.logger.Debug("Dropped microphone frame",
				zap.String("sessionID", c.id),
				zap.Error(err))
			continue
		}
		s.metrics.AudioFrame("sent")
	}
}
