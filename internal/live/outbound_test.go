package live

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/repositories"
)

func TestOutbound_NotReadyBeforeStart(t *testing.T) {
	o := newOutbound(newFakeChannel(), nil, zap.NewNop())

	assert.ErrorIs(t, o.sendAudio([]byte{0, 0}, 16000), ErrNotReady)
	assert.ErrorIs(t, o.sendVideo([]byte{1}, nil), ErrNotReady)
	assert.ErrorIs(t, o.sendTools(t.Context(), nil), ErrNotReady)
}

func TestOutbound_DropsWhenFull(t *testing.T) {
	o := newOutbound(newFakeChannel(), nil, zap.NewNop())
	// open the gate without a writer so the queue fills up
	o.ready.Store(true)

	for i := 0; i < outboundQueueSize; i++ {
		require.NoError(t, o.sendAudio([]byte{0, 0}, 16000))
	}
	assert.ErrorIs(t, o.sendAudio([]byte{0, 0}, 16000), ErrQueueFull)
	assert.ErrorIs(t, o.sendVideo([]byte{1}, nil), ErrQueueFull)
}

func TestOutbound_WritesInOrder(t *testing.T) {
	channel := newFakeChannel()
	o := newOutbound(channel, nil, zap.NewNop())
	o.start()
	defer o.close()

	require.NoError(t, o.sendAudio([]byte{1, 0}, 16000))
	require.NoError(t, o.sendAudio([]byte{2, 0}, 16000))
	require.NoError(t, o.sendTools(t.Context(), []repositories.ToolResponse{{ID: "x"}}))

	require.Eventually(t, func() bool { return len(channel.toolBatches()) == 1 }, time.Second, time.Millisecond)
	sent := channel.audioSent()
	require.Len(t, sent, 2)
	assert.Equal(t, byte(1), sent[0].pcm[0])
	assert.Equal(t, byte(2), sent[1].pcm[0])
}

func TestOutbound_CloseIsFinal(t *testing.T) {
	o := newOutbound(newFakeChannel(), nil, zap.NewNop())
	o.close()
	o.close()
	o.start()

	assert.ErrorIs(t, o.sendAudio([]byte{0, 0}, 16000), ErrNotReady)
}

func TestOutbound_SendFailureReported(t *testing.T) {
	channel := newFakeChannel()
	channel.sendErr = errors.New("broken pipe")

	failed := make(chan error, 1)
	o := newOutbound(channel, func(err error) { failed <- err }, zap.NewNop())
	o.start()
	defer o.close()

	require.NoError(t, o.sendAudio([]byte{0, 0}, 16000))
	select {
	case err := <-failed:
		assert.ErrorIs(t, err, channel.sendErr)
	case <-time.After(time.Second):
		t.Fatal("send failure was not reported")
	}
}

func TestOutbound_VideoWrittenCallback(t *testing.T) {
	channel := newFakeChannel()
	o := newOutbound(channel, nil, zap.NewNop())
	o.start()
	defer o.close()

	done := make(chan error, 1)
	require.NoError(t, o.sendVideo([]byte{1}, func(err error) { done <- err }))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("written callback was not called")
	}
	assert.Equal(t, 1, channel.videoSent())
}

func TestSampler_OneFrameInFlightBehindSlowSend(t *testing.T) {
	channel := newFakeChannel()
	channel.videoGate = make(chan struct{})
	pump := newOutbound(channel, nil, zap.NewNop())
	pump.start()
	defer pump.close()

	var frames atomic.Int32
	sm := newSampler(&fakeVideo{ready: true}, pump, 2*time.Millisecond,
		func([]byte) { frames.Add(1) }, nil, zap.NewNop())
	go sm.run()
	defer sm.stop()

	require.Eventually(t, func() bool { return channel.videoStarted.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), channel.videoStarted.Load())
	assert.Empty(t, pump.queue)
	assert.Equal(t, int32(0), frames.Load())

	close(channel.videoGate)
	require.Eventually(t, func() bool { return frames.Load() >= 2 }, time.Second, time.Millisecond)
}
