// Package config loads the assistant configuration from defaults, an optional
// YAML file, a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the variable holding the YAML path when no flag is given
const EnvConfigPath = "ASSISTANT_CONFIG"

type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type GeminiConfig struct {
	APIKey            string `yaml:"api_key"`
	APIVersion        string `yaml:"api_version"`
	BaseURL           string `yaml:"base_url"`
	Model             string `yaml:"model"`
	Voice             string `yaml:"voice"`
	SystemInstruction string `yaml:"system_instruction"`
}

type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	PanelSecret   string `yaml:"panel_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type CameraConfig struct {
	FramePath       string `yaml:"frame_path"`
	FrameIntervalMS int    `yaml:"frame_interval_ms"`
}

type STTConfig struct {
	Provider   string `yaml:"provider"` // google, mock or none
	Language   string `yaml:"language"`
	MockScript string `yaml:"mock_script"`
}

type TTSConfig struct {
	APIKey       string  `yaml:"api_key"`
	APIBaseURL   string  `yaml:"api_base_url"`
	VoiceID      string  `yaml:"voice_id"`
	ModelID      string  `yaml:"model_id"`
	OutputFormat string  `yaml:"output_format"`
	Stability    float64 `yaml:"stability"`
	Clarity      float64 `yaml:"clarity"`
}

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Gemini  GeminiConfig  `yaml:"gemini"`
	Auth    AuthConfig    `yaml:"auth"`
	MongoDB MongoConfig   `yaml:"mongodb"`
	Camera  CameraConfig  `yaml:"camera"`
	STT     STTConfig     `yaml:"stt"`
	TTS     TTSConfig     `yaml:"tts"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
}

const defaultSystemInstruction = "You are a concise, friendly voice assistant. " +
	"Use the available tools to search YouTube, open websites and set reminders when the user asks."

func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 8080,
		},
		Log: LogConfig{Level: "info"},
		Gemini: GeminiConfig{
			APIVersion:        "v1beta",
			Model:             "gemini-2.5-flash-native-audio-preview-09-2025",
			Voice:             "Zephyr",
			SystemInstruction: defaultSystemInstruction,
		},
		Auth: AuthConfig{TokenTTLHours: 24},
		MongoDB: MongoConfig{
			Database: "assistant",
		},
		Camera: CameraConfig{FrameIntervalMS: 500},
		STT: STTConfig{
			Provider: "none",
			Language: "en-US",
		},
		TTS:     TTSConfig{OutputFormat: "pcm_24000"},
		Metrics: MetricsConfig{Namespace: "assistant"},
	}
}

// Load builds the configuration. A missing .env file is not an error; a
// missing YAML file is, when a path was given.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("failed to load .env: %w", err)
	}

	applyEnvOverrides(&cfg)

	if cfg.Auth.JWTSecret == "" {
		// tokens will not survive a restart
		cfg.Auth.JWTSecret = uuid.NewString()
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Server.Bind, "BIND")
	overrideInt(&cfg.Server.Port, "PORT")
	overrideString(&cfg.Log.Level, "LOG_LEVEL")
	overrideString(&cfg.Gemini.APIKey, "GEMINI_API_KEY")
	overrideString(&cfg.Gemini.Model, "GEMINI_MODEL")
	overrideString(&cfg.Gemini.Voice, "GEMINI_VOICE")
	overrideString(&cfg.Gemini.APIVersion, "GEMINI_API_VERSION")
	overrideString(&cfg.Gemini.BaseURL, "GEMINI_BASE_URL")
	overrideString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	overrideString(&cfg.Auth.PanelSecret, "PANEL_SECRET")
	overrideInt(&cfg.Auth.TokenTTLHours, "TOKEN_TTL_HOURS")
	overrideString(&cfg.MongoDB.URI, "MONGODB_URI")
	overrideString(&cfg.MongoDB.Database, "MONGODB_DATABASE")
	overrideString(&cfg.Camera.FramePath, "CAMERA_FRAME_PATH")
	overrideInt(&cfg.Camera.FrameIntervalMS, "CAMERA_FRAME_INTERVAL_MS")
	overrideString(&cfg.STT.Provider, "STT_PROVIDER")
	overrideString(&cfg.STT.Language, "GOOGLE_STT_LANGUAGE")
	overrideString(&cfg.TTS.APIKey, "ELEVEN_LABS_API_KEY")
	overrideString(&cfg.TTS.APIBaseURL, "ELEVEN_LABS_API_BASE_URL")
	overrideString(&cfg.TTS.VoiceID, "ELEVEN_LABS_VOICE_ID")
	overrideString(&cfg.TTS.ModelID, "ELEVEN_LABS_MODEL_ID")
	overrideString(&cfg.TTS.OutputFormat, "ELEVEN_LABS_OUTPUT_FORMAT")
	overrideFloat(&cfg.TTS.Stability, "ELEVEN_LABS_STABILITY")
	overrideFloat(&cfg.TTS.Clarity, "ELEVEN_LABS_CLARITY")
}

func overrideString(target *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*target = strings.TrimSpace(v)
	}
}

func overrideInt(target *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*target = n
		}
	}
}

func overrideFloat(target *float64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			*target = f
		}
	}
}

// Validate reports the first unusable setting
func (c Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return errors.New("gemini.api_key (GEMINI_API_KEY) is required")
	}
	if c.Gemini.Model == "" {
		return errors.New("gemini.model is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Auth.PanelSecret == "" {
		return errors.New("auth.panel_secret (PANEL_SECRET) is required")
	}
	if c.Auth.TokenTTLHours <= 0 {
		return fmt.Errorf("auth.token_ttl_hours must be positive, got %d", c.Auth.TokenTTLHours)
	}
	if c.Camera.FrameIntervalMS <= 0 {
		return fmt.Errorf("camera.frame_interval_ms must be positive, got %d", c.Camera.FrameIntervalMS)
	}
	switch c.STT.Provider {
	case "google", "mock", "none", "":
	default:
		return fmt.Errorf("stt.provider must be google, mock or none, got %q", c.STT.Provider)
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Addr is the listen address of the control server
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// NewLogger builds a production logger, or a development logger at debug level
func (l LogConfig) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(l.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if level.Level() == zap.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}
