package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/entities"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/repositories"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/internal/audio"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for dictation chunks

	clientBuffer    = 256
	broadcastBuffer = 512
)

var upgrader = websocket.Upgrader{
	// The panel is served from the same loopback origin; the token query
	// parameter is the access check.
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// DictationSink receives PCM16 audio captured by a UI client
type DictationSink interface {
	FeedDictation(pcm []byte, sampleRate int) error
}

// Hub maintains the set of active panel clients and broadcasts assistant
// events to them. Slow clients are dropped rather than blocking the
// broadcaster.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	dictationMu sync.RWMutex
	dictation   DictationSink

	validator *MessageValidator
	logger    *zap.Logger
}

var _ repositories.Notifier = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, broadcastBuffer),
		done:       make(chan struct{}),
		validator:  NewMessageValidator(),
		logger:     logger,
	}
}

// SetDictationSink routes dictation chunks from clients to sink
func (h *Hub) SetDictationSink(sink DictationSink) {
	h.dictationMu.Lock()
	h.dictation = sink
	h.dictationMu.Unlock()
}

// Run starts the hub's main loop. It disconnects every client and returns
// when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		h.mu.Lock()
		for id, client := range h.clients {
			delete(h.clients, id)
			client.closeSend()
		}
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("clientID", client.id))

		case client := <-h.unregister:
			h.mu.Lock()
			if existing, ok := h.clients[client.id]; ok && existing == client {
				delete(h.clients, client.id)
			}
			h.mu.Unlock()
			client.closeSend()
			h.logger.Info("Client unregistered", zap.String("clientID", client.id))

		case payload := <-h.broadcast:
			h.mu.Lock()
			for id, client := range h.clients {
				if !client.trySend(payload) {
					delete(h.clients, id)
					client.closeSend()
					h.logger.Warn("Dropping slow client", zap.String("clientID", id))
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every client. It never blocks; messages are
// dropped when the queue is full.
func (h *Hub) Broadcast(msg interface{}) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- payload:
	case <-h.done:
	default:
		h.logger.Debug("Broadcast queue full, dropping message")
	}
}

func (h *Hub) PublishState(state entities.ConnectionState) {
	h.Broadcast(NewStateMessage(state))
}

func (h *Hub) PublishVolume(user, model float64) {
	h.Broadcast(NewVolumeMessage(user, model))
}

func (h *Hub) PublishCaption(text string, isUser, isComplete bool) {
	speaker := entities.SpeakerModel
	if isUser {
		speaker = entities.SpeakerUser
	}
	h.Broadcast(NewCaptionMessage(entities.Caption{Text: text, Speaker: speaker, Complete: isComplete}))
}

func (h *Hub) PublishFrame(jpeg []byte) {
	h.Broadcast(NewFrameMessage("image/jpeg", jpeg))
}

// NotifyToolCall implements repositories.Notifier
func (h *Hub) NotifyToolCall(call entities.ToolCall, result string) {
	h.Broadcast(NewToolCallMessage(call, result))
}

// NotifyReminderFired implements repositories.Notifier
func (h *Hub) NotifyReminderFired(reminder *entities.Reminder) {
	h.Broadcast(NewReminderFiredMessage(reminder))
}

// NotifyTranscript implements repositories.Notifier
func (h *Hub) NotifyTranscript(text string, isFinal bool) {
	h.Broadcast(NewTranscriptMessage(text, isFinal))
}

// NotifyListening implements repositories.Notifier
func (h *Hub) NotifyListening(listening bool) {
	h.Broadcast(NewFlagMessage(MessageTypeListening, listening))
}

// NotifySpeaking implements repositories.Notifier
func (h *Hub) NotifySpeaking(speaking bool) {
	h.Broadcast(NewFlagMessage(MessageTypeSpeaking, speaking))
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte

	mu     sync.Mutex
	closed bool

	id     string
	logger *zap.Logger
}

// HandleWebSocket upgrades an authenticated panel request
func HandleWebSocket(hub *Hub, c echo.Context, clientID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, clientBuffer),
		id:     clientID,
		logger: logger.With(zap.String("clientID", clientID)),
	}

	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return nil
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

func (c *Client) trySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) reply(msg interface{}) {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Failed to marshal reply", zap.Error(err))
		return
	}
	if !c.trySend(payload) {
		c.logger.Debug("Reply dropped")
	}
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		case websocket.BinaryMessage:
			// raw PCM16 at the capture rate
			c.feedDictation(message, audio.CaptureSampleRate)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processMessage processes incoming JSON messages from the panel
func (c *Client) processMessage(message []byte) {
	parsed, err := c.hub.validator.ValidateMessage(message)
	if err != nil {
		c.logger.Debug("Rejected client message", zap.Error(err))
		c.reply(CreateErrorMessage("invalid_message", err.Error()))
		return
	}

	switch msg := parsed.(type) {
	case *PingMessage:
		c.reply(CreatePongMessage(msg.Data))
	case *DictationChunkMessage:
		pcm, _ := msg.PCM()
		rate := msg.SampleRate
		if rate == 0 {
			rate = audio.CaptureSampleRate
		}
		c.feedDictation(pcm, rate)
	}
}

func (c *Client) feedDictation(pcm []byte, sampleRate int) {
	c.hub.dictationMu.RLock()
	sink := c.hub.dictation
	c.hub.dictationMu.RUnlock()

	if sink == nil {
		c.reply(CreateErrorMessage("dictation_unavailable", "dictation is not configured"))
		return
	}
	if err := sink.FeedDictation(pcm, sampleRate); err != nil {
		c.logger.Debug("Dictation chunk rejected", zap.Error(err))
		c.reply(CreateErrorMessage("dictation_rejected", err.Error()))
	}
}
