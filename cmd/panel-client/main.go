// Command panel-client is a terminal control panel for the assistant. It
// authenticates, prints the event stream and can dictate a raw 16 kHz PCM
// file.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/internal/api"
)

// 100 ms of 16 kHz mono PCM16
const dictationChunk = 3200

type client struct {
	base   string
	token  string
	http   *http.Client
	logger *zap.Logger
}

func main() {
	godotenv.Load()

	host := flag.String("host", "localhost:8080", "assistant control server")
	secret := flag.String("secret", os.Getenv("PANEL_SECRET"), "panel secret")
	connect := flag.Bool("connect", false, "start the live session after authenticating")
	pcmPath := flag.String("dictate", "", "raw 16 kHz PCM16 file to dictate")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	c := &client{
		base:   "http://" + *host,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
	if err := c.authenticate(*secret); err != nil {
		logger.Fatal("Failed to authenticate", zap.Error(err))
	}

	u := url.URL{Scheme: "ws", Host: *host, Path: "/ws", RawQuery: url.Values{"token": {c.token}}.Encode()}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		logger.Fatal("Failed to dial event stream", zap.Error(err))
	}
	defer conn.Close()

	done := make(chan struct{})
	go c.printEvents(conn, done)

	if *connect {
		if err := c.post("/api/v1/session/connect", nil, nil); err != nil {
			logger.Error("Failed to connect session", zap.Error(err))
		}
	}
	if *pcmPath != "" {
		if err := c.dictate(conn, *pcmPath); err != nil {
			logger.Error("Dictation failed", zap.Error(err))
		}
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	select {
	case <-done:
	case <-interrupt:
		// Cleanly close the connection by sending a close message and then
		// waiting (with timeout) for the server to close the connection.
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		if err != nil {
			logger.Warn("Failed to write close", zap.Error(err))
			return
		}
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}

func (c *client) authenticate(secret string) error {
	hostname, _ := os.Hostname()
	var resp api.AuthResponse
	if err := c.post("/api/v1/auth", api.AuthRequest{Secret: secret, ClientID: hostname}, &resp); err != nil {
		return err
	}
	c.token = resp.Token
	c.logger.Info("Authenticated", zap.String("clientID", resp.ClientID), zap.Time("expiresAt", resp.ExpiresAt))
	return nil
}

func (c *client) post(path string, body, out interface{}) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequest(http.MethodPost, c.base+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s: %s: %s", path, resp.Status, bytes.TrimSpace(data))
	}
	if out != nil && len(data) > 0 {
		return json.Unmarshal(data, out)
	}
	return nil
}

// dictate opens a listening period, streams the file as binary frames at
// real-time pace and prints the final transcript.
func (c *client) dictate(conn *websocket.Conn, path string) error {
	pcm, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := c.post("/api/v1/dictation/start", nil, nil); err != nil {
		return err
	}

	for start := 0; start < len(pcm); start += dictationChunk {
		end := min(start+dictationChunk, len(pcm)&^1)
		if end <= start {
			break
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, pcm[start:end]); err != nil {
			return fmt.Errorf("failed to send dictation chunk: %w", err)
		}
		time.Sleep(100 * time.Millisecond)
	}

	var resp api.DictationResponse
	if err := c.post("/api/v1/dictation/stop", nil, &resp); err != nil {
		return err
	}
	c.logger.Info("Dictation finished", zap.String("transcript", resp.Transcript))
	return nil
}

func (c *client) printEvents(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			c.logger.Info("Event stream closed", zap.Error(err))
			return
		}

		var msg map[string]interface{}
		if err := json.Unmarshal(message, &msg); err != nil {
			c.logger.Warn("Undecodable event", zap.Error(err))
			continue
		}

		switch msg["type"] {
		case "frame", "volume":
			// too chatty for a terminal
		default:
			c.logger.Info("Event", zap.Any("message", msg))
		}
	}
}
