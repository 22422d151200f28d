package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/entities"
)

type dictationChunk struct {
	pcm  []byte
	rate int
}

type fakeDictation struct {
	mu     sync.Mutex
	chunks []dictationChunk
	err    error
}

func (f *fakeDictation) FeedDictation(pcm []byte, sampleRate int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.chunks = append(f.chunks, dictationChunk{pcm: pcm, rate: sampleRate})
	return nil
}

func (f *fakeDictation) received() []dictationChunk {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dictationChunk(nil), f.chunks...)
}

type testHub struct {
	hub    *Hub
	server *httptest.Server
	cancel context.CancelFunc
}

func setupTestHub(t *testing.T) *testHub {
	t.Helper()
	logger := zap.NewNop()
	hub := NewHub(logger)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/ws", func(c echo.Context) error {
		return HandleWebSocket(hub, c, c.QueryParam("id"), logger)
	})
	server := httptest.NewServer(e)

	t.Cleanup(func() {
		cancel()
		server.Close()
	})
	return &testHub{hub: hub, server: server, cancel: cancel}
}

func (th *testHub) dial(t *testing.T, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(th.server.URL, "http") + "/ws?id=" + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	th := setupTestHub(t)
	a := th.dial(t, "a")
	b := th.dial(t, "b")
	require.Eventually(t, func() bool { return th.hub.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	th.hub.PublishState(entities.StateConnected)

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readJSON(t, conn)
		assert.Equal(t, "state", msg["type"])
		assert.Equal(t, "connected", msg["state"])
	}
}

func TestHub_EventShapes(t *testing.T) {
	th := setupTestHub(t)
	conn := th.dial(t, "a")
	require.Eventually(t, func() bool { return th.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	th.hub.PublishCaption("hello", true, false)
	msg := readJSON(t, conn)
	assert.Equal(t, "caption", msg["type"])
	assert.Equal(t, "hello", msg["text"])
	assert.Equal(t, "user", msg["speaker"])
	assert.Equal(t, false, msg["complete"])

	th.hub.NotifyToolCall(entities.ToolCall{ID: "1", Name: "open_url", Args: map[string]any{"url": "x.com"}}, "Opened https://x.com")
	msg = readJSON(t, conn)
	assert.Equal(t, "tool_call", msg["type"])
	assert.Equal(t, "open_url", msg["name"])
	assert.Equal(t, "Opened https://x.com", msg["result"])

	th.hub.PublishFrame([]byte{0xFF, 0xD8})
	msg = readJSON(t, conn)
	assert.Equal(t, "frame", msg["type"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{0xFF, 0xD8}), msg["data"])

	th.hub.NotifySpeaking(true)
	msg = readJSON(t, conn)
	assert.Equal(t, "speaking", msg["type"])
	assert.Equal(t, true, msg["active"])

	th.hub.NotifyReminderFired(&entities.Reminder{ID: "r1", Task: "stretch"})
	msg = readJSON(t, conn)
	assert.Equal(t, "reminder_fired", msg["type"])
	assert.Equal(t, "stretch", msg["task"])
}

func TestHub_PingPong(t *testing.T) {
	th := setupTestHub(t)
	conn := th.dial(t, "a")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping","data":"42"}`)))
	msg := readJSON(t, conn)
	assert.Equal(t, "pong", msg["type"])
	assert.Equal(t, "42", msg["data"])
}

func TestHub_InvalidMessage(t *testing.T) {
	th := setupTestHub(t)
	conn := th.dial(t, "a")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"teleport"}`)))
	msg := readJSON(t, conn)
	assert.Equal(t, "error", msg["type"])
	assert.Equal(t, "invalid_message", msg["error_code"])
}

func TestHub_Dictation(t *testing.T) {
	th := setupTestHub(t)
	sink := &fakeDictation{}
	th.hub.SetDictationSink(sink)
	conn := th.dial(t, "a")

	chunk := base64.StdEncoding.EncodeToString([]byte{1, 0, 2, 0})
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"dictation_chunk","audio_data":"`+chunk+`","sample_rate":48000}`)))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{3, 0}))

	require.Eventually(t, func() bool { return len(sink.received()) == 2 }, 2*time.Second, 10*time.Millisecond)
	got := sink.received()
	assert.Equal(t, dictationChunk{pcm: []byte{1, 0, 2, 0}, rate: 48000}, got[0])
	assert.Equal(t, dictationChunk{pcm: []byte{3, 0}, rate: 16000}, got[1])

	sink.mu.Lock()
	sink.err = errors.New("not listening")
	sink.mu.Unlock()
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{3, 0}))
	msg := readJSON(t, conn)
	assert.Equal(t, "dictation_rejected", msg["error_code"])
}

func TestHub_DictationWithoutSink(t *testing.T) {
	th := setupTestHub(t)
	conn := th.dial(t, "a")

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{1, 0}))
	msg := readJSON(t, conn)
	assert.Equal(t, "dictation_unavailable", msg["error_code"])
}

func TestHub_ClientDisconnectUnregisters(t *testing.T) {
	th := setupTestHub(t)
	conn := th.dial(t, "a")
	require.Eventually(t, func() bool { return th.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return th.hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	th := setupTestHub(t)
	conn := th.dial(t, "a")
	require.Eventually(t, func() bool { return th.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	th.cancel()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	// broadcasting after shutdown must not block
	th.hub.PublishState(entities.StateDisconnected)
}

func TestMessageValidator(t *testing.T) {
	v := NewMessageValidator()

	tests := []struct {
		name    string
		message string
		wantErr bool
	}{
		{"ping", `{"type":"ping"}`, false},
		{"dictation", `{"type":"dictation_chunk","audio_data":"AQA=","sample_rate":16000}`, false},
		{"dictation default rate", `{"type":"dictation_chunk","audio_data":"AQA="}`, false},
		{"missing audio", `{"type":"dictation_chunk","sample_rate":16000}`, true},
		{"bad rate", `{"type":"dictation_chunk","audio_data":"AQA=","sample_rate":100000}`, true},
		{"bad base64", `{"type":"dictation_chunk","audio_data":"***"}`, true},
		{"unknown type", `{"type":"state"}`, true},
		{"not json", `{`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateMessage([]byte(tt.message))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
