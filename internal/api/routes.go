package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/entities"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/repositories"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/internal/auth"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/internal/websocket"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/usecase"
)

const claimsKey = "claims"

// SessionController is the live session as seen by the control API
type SessionController interface {
	Connect(ctx context.Context) error
	Stop()
	StartVideo(source repositories.VideoSource) bool
	StopVideo()
	Info() entities.SessionInfo
}

// ReminderController lists and cancels reminders
type ReminderController interface {
	List(ctx context.Context) ([]*entities.Reminder, error)
	Cancel(ctx context.Context, id string) (*entities.Reminder, error)
}

// SpeechController drives dictation and speech synthesis
type SpeechController interface {
	StartListening(ctx context.Context) error
	StopListening() string
	Listening() bool
	Speak(ctx context.Context, text string) error
	SpeakSupported() bool
}

// Dependencies wires the control API. Video and Speech may be nil.
type Dependencies struct {
	Session   SessionController
	Video     repositories.VideoSource
	Reminders ReminderController
	Speech    SpeechController
	Hub       *websocket.Hub
	Issuer    *auth.Issuer
	Metrics   http.Handler
}

type handlers struct {
	deps   Dependencies
	logger *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies, logger *zap.Logger) {
	h := &handlers{deps: deps, logger: logger}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "mini-alexa",
			"state":   string(deps.Session.Info().State),
		})
	})
	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(deps.Metrics))
	}

	// API v1 routes
	v1 := e.Group("/api/v1")
	v1.POST("/auth", h.authenticate)

	protected := v1.Group("", requireToken(deps.Issuer, logger))

	protected.GET("/session", h.sessionInfo)
	protected.POST("/session/connect", h.connect)
	protected.POST("/session/stop", h.stop)

	protected.POST("/video/start", h.startVideo)
	protected.POST("/video/stop", h.stopVideo)

	protected.GET("/reminders", h.listReminders)
	protected.DELETE("/reminders/:id", h.cancelReminder)

	protected.POST("/dictation/start", h.startDictation)
	protected.POST("/dictation/stop", h.stopDictation)
	protected.POST("/speak", h.speak)

	// WebSocket endpoint; browsers cannot set headers on upgrade requests
	e.GET("/ws", h.streamEvents)
}

// requireToken validates the bearer token of every request in the group
func requireToken(issuer *auth.Issuer, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
			if !ok || token == "" {
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "missing_token",
					Message: "JWT token is required in Authorization header",
				})
			}

			claims, err := issuer.ValidateToken(token)
			if err != nil {
				logger.Warn("Request rejected: invalid token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "invalid_token",
					Message: "Invalid or expired JWT token",
				})
			}

			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

func (h *handlers) authenticate(c echo.Context) error {
	var req AuthRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Error("Failed to bind auth request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.Secret == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Secret is required",
		})
	}
	if req.ClientID == "" {
		req.ClientID = uuid.NewString()
	}

	token, err := h.deps.Issuer.Exchange(req.Secret, req.ClientID)
	if errors.Is(err, auth.ErrInvalidSecret) {
		h.logger.Warn("Panel authentication failed", zap.String("clientID", req.ClientID))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "authentication_failed",
			Message: "Invalid panel secret",
		})
	}
	if err != nil {
		h.logger.Error("Failed to generate panel token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	h.logger.Info("Panel authenticated", zap.String("clientID", req.ClientID))
	return c.JSON(http.StatusOK, AuthResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.deps.Issuer.TTL()),
		ClientID:  req.ClientID,
	})
}

func (h *handlers) sessionInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, h.deps.Session.Info())
}

func (h *handlers) connect(c echo.Context) error {
	if err := h.deps.Session.Connect(c.Request().Context()); err != nil {
		h.logger.Error("Failed to connect live session", zap.Error(err))
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, repositories.ErrPermissionDenied):
			status = http.StatusForbidden
		case errors.Is(err, repositories.ErrDeviceUnavailable):
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, ErrorResponse{
			Error:   "connect_failed",
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusOK, h.deps.Session.Info())
}

func (h *handlers) stop(c echo.Context) error {
	h.deps.Session.Stop()
	return c.JSON(http.StatusOK, h.deps.Session.Info())
}

func (h *handlers) startVideo(c echo.Context) error {
	if h.deps.Video == nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "video_unavailable",
			Message: "No camera is configured",
		})
	}
	if !h.deps.Session.StartVideo(h.deps.Video) {
		return c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "video_not_started",
			Message: "Session is not connected or video is already running",
		})
	}
	return c.JSON(http.StatusOK, h.deps.Session.Info())
}

func (h *handlers) stopVideo(c echo.Context) error {
	h.deps.Session.StopVideo()
	return c.JSON(http.StatusOK, h.deps.Session.Info())
}

func (h *handlers) listReminders(c echo.Context) error {
	reminders, err := h.deps.Reminders.List(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to list reminders", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to list reminders",
		})
	}
	if reminders == nil {
		reminders = []*entities.Reminder{}
	}
	return c.JSON(http.StatusOK, RemindersResponse{Reminders: reminders})
}

func (h *handlers) cancelReminder(c echo.Context) error {
	reminder, err := h.deps.Reminders.Cancel(c.Request().Context(), c.Param("id"))
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Reminder not found"})
	case errors.Is(err, usecase.ErrReminderNotPending):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "not_pending", Message: err.Error()})
	case err != nil:
		h.logger.Error("Failed to cancel reminder", zap.String("reminderID", c.Param("id")), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "Failed to cancel reminder"})
	}
	return c.JSON(http.StatusOK, reminder)
}

func (h *handlers) startDictation(c echo.Context) error {
	if h.deps.Speech == nil {
		return speechUnavailable(c)
	}
	err := h.deps.Speech.StartListening(c.Request().Context())
	if errors.Is(err, usecase.ErrSpeechUnsupported) {
		return speechUnavailable(c)
	}
	if err != nil {
		h.logger.Error("Failed to start dictation", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: "dictation_failed", Message: err.Error()})
	}
	return c.JSON(http.StatusOK, DictationResponse{Listening: true})
}

func (h *handlers) stopDictation(c echo.Context) error {
	if h.deps.Speech == nil {
		return speechUnavailable(c)
	}
	text := h.deps.Speech.StopListening()
	return c.JSON(http.StatusOK, DictationResponse{Listening: h.deps.Speech.Listening(), Transcript: text})
}

// speak returns once synthesis is queued; playback outlives the request
func (h *handlers) speak(c echo.Context) error {
	if h.deps.Speech == nil || !h.deps.Speech.SpeakSupported() {
		return speechUnavailable(c)
	}
	var req SpeakRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Text is required",
		})
	}

	go func() {
		if err := h.deps.Speech.Speak(context.Background(), req.Text); err != nil && !errors.Is(err, context.Canceled) {
			h.logger.Warn("Speak request failed", zap.Error(err))
		}
	}()
	return c.NoContent(http.StatusAccepted)
}

func (h *handlers) streamEvents(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		if bearer, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer "); ok {
			token = bearer
		}
	}
	if token == "" {
		h.logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required",
		})
	}

	claims, err := h.deps.Issuer.ValidateToken(token)
	if err != nil {
		h.logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		})
	}

	h.logger.Info("WebSocket connection authenticated", zap.String("clientID", claims.ClientID))
	return websocket.HandleWebSocket(h.deps.Hub, c, claims.ClientID, h.logger)
}

func speechUnavailable(c echo.Context) error {
	return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
		Error:   "speech_unavailable",
		Message: "Speech facility not configured",
	})
}
