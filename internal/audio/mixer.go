package audio

import (
	"errors"
	"sync"
	"time"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/repositories"
)

// ErrMixerClosed is returned by Play after Close
var ErrMixerClosed = errors.New("mixer closed")

// Mixer is a software AudioSink. Its clock is the number of frames rendered,
// so time only advances while a device pulls audio through Render.
type Mixer struct {
	rate int

	mu     sync.Mutex
	frame  int64
	voices []*mixVoice
	closed bool

	notify chan func()
	done   chan struct{}
}

type mixVoice struct {
	mixer   *Mixer
	samples []float32
	start   int64
	stopped bool
	onEnded func()
}

var _ repositories.AudioSink = (*Mixer)(nil)

// NewMixer creates a mixer rendering at rate
func NewMixer(rate int) *Mixer {
	m := &Mixer{
		rate:   rate,
		notify: make(chan func(), 256),
		done:   make(chan struct{}),
	}
	go m.notifyLoop()
	return m
}

func (m *Mixer) notifyLoop() {
	for {
		select {
		case fn := <-m.notify:
			fn()
		case <-m.done:
			return
		}
	}
}

// SampleRate implements repositories.AudioSink
func (m *Mixer) SampleRate() int {
	return m.rate
}

// CurrentTime implements repositories.AudioSink
func (m *Mixer) CurrentTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return FrameTime(m.frame, m.rate)
}

// Play implements repositories.AudioSink. A start time in the past plays
// immediately.
func (m *Mixer) Play(samples []float32, at time.Duration, onEnded func()) (repositories.Voice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrMixerClosed
	}

	start := FrameAt(at, m.rate)
	if start < m.frame {
		start = m.frame
	}
	v := &mixVoice{
		mixer:   m,
		samples: samples,
		start:   start,
		onEnded: onEnded,
	}
	m.voices = append(m.voices, v)
	return v, nil
}

// Render mixes every active voice into out and advances the clock by
// len(out) frames.
func (m *Mixer) Render(out []float32) {
	for i := range out {
		out[i] = 0
	}

	m.mu.Lock()
	from := m.frame
	to := from + int64(len(out))
	var ended []func()
	active := m.voices[:0]
	for _, v := range m.voices {
		if v.stopped {
			continue
		}
		end := v.start + int64(len(v.samples))
		lo, hi := max(v.start, from), min(end, to)
		for f := lo; f < hi; f++ {
			out[f-from] += v.samples[f-v.start]
		}
		if end <= to {
			if v.onEnded != nil {
				ended = append(ended, v.onEnded)
			}
			continue
		}
		active = append(active, v)
	}
	for i := len(active); i < len(m.voices); i++ {
		m.voices[i] = nil
	}
	m.voices = active
	m.frame = to
	m.mu.Unlock()

	for i, s := range out {
		if s > 1 {
			out[i] = 1
		} else if s < -1 {
			out[i] = -1
		}
	}

	for _, fn := range ended {
		select {
		case m.notify <- fn:
		default:
			go fn()
		}
	}
}

// Active returns the number of voices not yet finished or stopped
func (m *Mixer) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.voices {
		if !v.stopped {
			n++
		}
	}
	return n
}

// Close stops all voices and the notifier. It is safe to call twice.
func (m *Mixer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for _, v := range m.voices {
		v.stopped = true
	}
	m.voices = nil
	close(m.done)
	return nil
}

// Stop implements repositories.Voice
func (v *mixVoice) Stop() {
	v.mixer.mu.Lock()
	v.stopped = true
	v.mixer.mu.Unlock()
}
