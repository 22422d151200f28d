package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/repositories"
)

// PlaybackChunk is one decoded buffer placed on the device timeline
type PlaybackChunk struct {
	ID       uint64
	Start    time.Duration
	Duration time.Duration
}

// End returns the device time the chunk finishes
func (c PlaybackChunk) End() time.Duration {
	return c.Start + c.Duration
}

// Scheduler plays chunks back-to-back on a sink. Each chunk starts at
// max(previous end, device time); a starved cursor snaps forward to the
// device clock rather than catching up. The cursor counts sample frames at
// the sink rate and is converted to device time only at the sink.
type Scheduler struct {
	sink repositories.AudioSink

	mu       sync.Mutex
	cursor   int64
	nextID   uint64
	inFlight map[uint64]repositories.Voice

	// OnChunkStart fires after a chunk is scheduled
	OnChunkStart func(PlaybackChunk)
	// OnChunkEnd fires when a chunk finishes naturally
	OnChunkEnd func(PlaybackChunk)
}

// NewScheduler creates a scheduler on sink
func NewScheduler(sink repositories.AudioSink) *Scheduler {
	return &Scheduler{
		sink:     sink,
		inFlight: make(map[uint64]repositories.Voice),
	}
}

// Enqueue schedules samples right after everything already queued
func (s *Scheduler) Enqueue(samples []float32) (PlaybackChunk, error) {
	if len(samples) == 0 {
		return PlaybackChunk{}, fmt.Errorf("empty playback chunk")
	}

	s.mu.Lock()
	rate := s.sink.SampleRate()
	if now := FrameAt(s.sink.CurrentTime(), rate); s.cursor < now {
		s.cursor = now
	}
	end := s.cursor + int64(len(samples))
	s.nextID++
	chunk := PlaybackChunk{
		ID:       s.nextID,
		Start:    FrameTime(s.cursor, rate),
		Duration: FrameTime(end, rate) - FrameTime(s.cursor, rate),
	}

	voice, err := s.sink.Play(samples, chunk.Start, func() { s.finished(chunk) })
	if err != nil {
		s.mu.Unlock()
		return PlaybackChunk{}, fmt.Errorf("failed to schedule chunk: %w", err)
	}
	s.cursor = end
	s.inFlight[chunk.ID] = voice
	onStart := s.OnChunkStart
	s.mu.Unlock()

	if onStart != nil {
		onStart(chunk)
	}
	return chunk, nil
}

func (s *Scheduler) finished(chunk PlaybackChunk) {
	s.mu.Lock()
	_, tracked := s.inFlight[chunk.ID]
	delete(s.inFlight, chunk.ID)
	onEnd := s.OnChunkEnd
	s.mu.Unlock()

	if tracked && onEnd != nil {
		onEnd(chunk)
	}
}

// Flush stops every in-flight chunk and resets the cursor to zero. The next
// Enqueue clamps the cursor to the device clock.
func (s *Scheduler) Flush() int {
	s.mu.Lock()
	voices := s.inFlight
	s.inFlight = make(map[uint64]repositories.Voice)
	s.cursor = 0
	s.mu.Unlock()

	for _, v := range voices {
		v.Stop()
	}
	return len(voices)
}

// Cursor returns the time the next chunk would start if the device were idle
func (s *Scheduler) Cursor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FrameTime(s.cursor, s.sink.SampleRate())
}

// InFlight returns the number of scheduled chunks that have not finished
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}
