package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/adapters"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/adapters/browser"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/adapters/camera"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/adapters/gemini"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/adapters/mongo"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/adapters/portaudio"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/adapters/stt"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/adapters/tts"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/entities"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/repositories"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/internal/api"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/internal/auth"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/internal/config"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/internal/live"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/internal/metrics"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/internal/websocket"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/usecase"
)

const (
	reminderCleanupInterval = time.Hour
	reminderRetention       = 7 * 24 * time.Hour
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Assistant stopped", zap.Error(err))
	}
	logger.Info("Server exited")
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionMetrics := metrics.New(cfg.Metrics.Namespace)

	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.PanelSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	if err != nil {
		return err
	}

	// Initialize adapters
	devices, err := portaudio.New(logger)
	if err != nil {
		return err
	}
	defer devices.Close()

	model, err := gemini.NewLiveModel(ctx, gemini.Config{
		APIKey:     cfg.Gemini.APIKey,
		APIVersion: cfg.Gemini.APIVersion,
		BaseURL:    cfg.Gemini.BaseURL,
	}, logger)
	if err != nil {
		return err
	}

	reminderRepo, closeRepo, err := newReminderRepository(ctx, cfg.MongoDB, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	var video repositories.VideoSource
	if cfg.Camera.FramePath != "" {
		video = camera.NewFileSource(cfg.Camera.FramePath, logger)
	}

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	speech := usecase.NewSpeechHelper(usecase.SpeechHelperConfig{
		Language:      cfg.STT.Language,
		UseMicrophone: true,
	}, newSpeechToText(cfg.STT, logger), newTextToSpeech(cfg.TTS, logger), devices, hub, logger)
	if speech.ListeningSupported() {
		hub.SetDictationSink(speech)
	}

	// Initialize usecase services
	reminders := usecase.NewReminderService(reminderRepo, hub, speech, sessionMetrics, logger)
	defer reminders.Close()
	if n, err := reminders.Restore(ctx); err != nil {
		logger.Error("Failed to restore reminders", zap.Error(err))
	} else {
		logger.Info("Reminders restored", zap.Int("count", n))
	}

	cleanup := usecase.NewReminderCleanupService(reminderRepo, reminderCleanupInterval, reminderRetention, logger)
	cleanup.Start()
	defer cleanup.Stop()

	tools := usecase.NewToolDispatcher(browser.NewOpener(logger), reminders, hub, logger)

	session := live.NewSession(live.SessionConfig{
		Model:             cfg.Gemini.Model,
		Voice:             cfg.Gemini.Voice,
		SystemInstruction: cfg.Gemini.SystemInstruction,
		FrameInterval:     time.Duration(cfg.Camera.FrameIntervalMS) * time.Millisecond,
		OnStateChange: func(state entities.ConnectionState) {
			sessionMetrics.SetState(state)
			hub.PublishState(state)
		},
		OnVolumeChange: hub.PublishVolume,
		OnCaption:      hub.PublishCaption,
		OnToolCall: func(calls []entities.ToolCall) {
			logger.Debug("Tool batch received", zap.Int("count", len(calls)))
		},
		OnFrame: hub.PublishFrame,
	}, live.Dependencies{
		Model:   model,
		Devices: devices,
		Tools:   tools,
		Metrics: sessionMetrics,
	}, logger)
	defer session.Stop()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("Request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status))
			return nil
		},
	}))

	api.InitRoutes(e, api.Dependencies{
		Session:   session,
		Video:     video,
		Reminders: reminders,
		Speech:    speech,
		Hub:       hub,
		Issuer:    issuer,
		Metrics:   sessionMetrics.Handler(),
	}, logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	logger.Info("Assistant control server started", zap.String("addr", cfg.Addr()))

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("control server failed: %w", err)
	}

	logger.Info("Server is shutting down...")
	speech.StopSpeaking()
	speech.StopListening()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// newReminderRepository uses MongoDB when configured and memory otherwise
func newReminderRepository(ctx context.Context, cfg config.MongoConfig, logger *zap.Logger) (repositories.ReminderRepository, func(), error) {
	if cfg.URI == "" {
		logger.Info("MONGODB_URI not set, reminders are kept in memory")
		return adapters.NewMemoryReminderRepository(), func() {}, nil
	}

	client, err := mongo.NewClient(ctx, mongo.Config{URI: cfg.URI, Database: cfg.Database}, logger)
	if err != nil {
		return nil, nil, err
	}
	repo := mongo.NewReminderRepository(client.Database, logger)
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Warn("Failed to ensure reminder indexes", zap.Error(err))
	}

	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client.Close(ctx)
	}
	return repo, closeFn, nil
}

func newSpeechToText(cfg config.STTConfig, logger *zap.Logger) repositories.SpeechToText {
	switch cfg.Provider {
	case "google":
		return stt.NewGoogleSpeechToText(logger)
	case "mock":
		return stt.NewMockSpeechToText(cfg.MockScript, logger)
	default:
		return nil
	}
}

func newTextToSpeech(cfg config.TTSConfig, logger *zap.Logger) repositories.TextToSpeech {
	if cfg.APIKey == "" {
		return nil
	}
	synth, err := tts.NewElevenLabsTTS(elevenLabsConfig(cfg), logger)
	if err != nil {
		logger.Warn("Speech synthesis disabled", zap.Error(err))
		return nil
	}
	return synth
}

func elevenLabsConfig(cfg config.TTSConfig) tts.ElevenLabsConfig {
	return tts.ElevenLabsConfig{
		APIKey:       cfg.APIKey,
		APIBaseURL:   cfg.APIBaseURL,
		VoiceID:      cfg.VoiceID,
		ModelID:      cfg.ModelID,
		OutputFormat: cfg.OutputFormat,
		Stability:    cfg.Stability,
		Clarity:      cfg.Clarity,
	}
}
