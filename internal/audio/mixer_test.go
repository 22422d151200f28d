package audio

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func constant(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func expectSamples(t *testing.T, want, got []float32) {
	t.Helper()
	if !slices.Equal(want, got) {
		t.Errorf("Expected samples %v, got %v", want, got)
	}
}

func TestMixer_ClockAdvancesWithRender(t *testing.T) {
	m := NewMixer(1000)
	defer m.Close()

	if got := m.CurrentTime(); got != 0 {
		t.Errorf("Expected clock to start at 0, got %v", got)
	}
	m.Render(make([]float32, 500))
	if got := m.CurrentTime(); got != 500*time.Millisecond {
		t.Errorf("Expected clock at 500ms, got %v", got)
	}
}

func TestMixer_PlaysAtScheduledFrame(t *testing.T) {
	m := NewMixer(1000)
	defer m.Close()

	ended := make(chan struct{})
	if _, err := m.Play(constant(4, 0.5), 2*time.Millisecond, func() { close(ended) }); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	out := make([]float32, 8)
	m.Render(out)
	expectSamples(t, []float32{0, 0, 0.5, 0.5, 0.5, 0.5, 0, 0}, out)

	select {
	case <-ended:
	case <-time.After(time.Second):
		t.Fatal("onEnded was not called")
	}
	if n := m.Active(); n != 0 {
		t.Errorf("Expected no active voices, got %d", n)
	}
}

func TestMixer_SpansRenders(t *testing.T) {
	m := NewMixer(1000)
	defer m.Close()

	if _, err := m.Play(constant(6, 0.25), 0, nil); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	out := make([]float32, 4)
	m.Render(out)
	expectSamples(t, []float32{0.25, 0.25, 0.25, 0.25}, out)
	if n := m.Active(); n != 1 {
		t.Errorf("Expected 1 active voice, got %d", n)
	}

	m.Render(out)
	expectSamples(t, []float32{0.25, 0.25, 0, 0}, out)
	if n := m.Active(); n != 0 {
		t.Errorf("Expected no active voices, got %d", n)
	}
}

func TestMixer_PastStartPlaysImmediately(t *testing.T) {
	m := NewMixer(1000)
	defer m.Close()

	m.Render(make([]float32, 10))
	if _, err := m.Play(constant(2, 0.5), 0, nil); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	out := make([]float32, 3)
	m.Render(out)
	expectSamples(t, []float32{0.5, 0.5, 0}, out)
}

func TestMixer_StopSilencesVoice(t *testing.T) {
	m := NewMixer(1000)
	defer m.Close()

	called := make(chan struct{}, 1)
	v, err := m.Play(constant(4, 0.5), 0, func() { called <- struct{}{} })
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	v.Stop()
	v.Stop()

	out := make([]float32, 4)
	m.Render(out)
	expectSamples(t, []float32{0, 0, 0, 0}, out)

	select {
	case <-called:
		t.Fatal("stopped voice reported onEnded")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMixer_ClampsSum(t *testing.T) {
	m := NewMixer(1000)
	defer m.Close()

	_, _ = m.Play(constant(2, 0.75), 0, nil)
	_, _ = m.Play(constant(2, 0.75), 0, nil)

	out := make([]float32, 2)
	m.Render(out)
	expectSamples(t, []float32{1, 1}, out)
}

func TestMixer_Close(t *testing.T) {
	m := NewMixer(1000)
	if err := m.Close(); err != nil {
		t.Fatalf("Unexpected error on close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Second close should be a no-op, got: %v", err)
	}

	if _, err := m.Play(constant(2, 0.5), 0, nil); !errors.Is(err, ErrMixerClosed) {
		t.Errorf("Expected ErrMixerClosed, got %v", err)
	}
}

func TestMixer_SchedulerChunksAreGapless(t *testing.T) {
	m := NewMixer(24000)
	defer m.Close()
	s := NewScheduler(m)

	// 100 samples is not a whole number of nanoseconds at 24 kHz
	if _, err := s.Enqueue(constant(100, 0.25)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second, err := s.Enqueue(constant(100, 0.5))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if f := FrameAt(second.Start, 24000); f != 100 {
		t.Errorf("Expected second chunk to start at frame 100, got %d", f)
	}

	out := make([]float32, 300)
	m.Render(out)
	for i, v := range out {
		want := float32(0)
		switch {
		case i < 100:
			want = 0.25
		case i < 200:
			want = 0.5
		}
		if v != want {
			t.Fatalf("out[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestFrameTimeRoundTrip(t *testing.T) {
	for _, rate := range []int{8000, 16000, 24000, 44100, 48000} {
		for _, f := range []int64{0, 1, 99, 100, 101, 23999, 24000, 1<<40 + 7} {
			if got := FrameAt(FrameTime(f, rate), rate); got != f {
				t.Errorf("Rate %d: frame %d came back as %d", rate, f, got)
			}
		}
	}
}

func TestFrameAt_LongDeviceTime(t *testing.T) {
	// 200 hours of device time
	at := 200 * time.Hour
	want := int64(200*3600) * 24000
	if got := FrameAt(at, 24000); got != want {
		t.Errorf("Expected frame %d, got %d", want, got)
	}
	if got := FrameTime(want, 24000); got != at {
		t.Errorf("Expected %v, got %v", at, got)
	}
}
