// Command tts-probe checks the ElevenLabs setup: it lists voices, speaks a
// sentence through the local speaker or saves the raw PCM to a file.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/adapters/portaudio"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/adapters/tts"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/usecase"
)

func main() {
	text := flag.String("text", "Hello! This is a test of the assistant voice.", "sentence to synthesize")
	out := flag.String("out", "", "write raw PCM here instead of playing it")
	listVoices := flag.Bool("voices", false, "list the voices of the account and exit")
	flag.Parse()

	godotenv.Load()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if os.Getenv("ELEVEN_LABS_API_KEY") == "" {
		logger.Fatal("ELEVEN_LABS_API_KEY environment variable is required")
	}

	synth, err := tts.NewElevenLabsTTS(tts.ElevenLabsConfig{
		APIKey:       os.Getenv("ELEVEN_LABS_API_KEY"),
		VoiceID:      os.Getenv("ELEVEN_LABS_VOICE_ID"),
		ModelID:      os.Getenv("ELEVEN_LABS_MODEL_ID"),
		OutputFormat: os.Getenv("ELEVEN_LABS_OUTPUT_FORMAT"),
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create TTS service", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	if *listVoices {
		voices, err := synth.ListVoices(ctx)
		if err != nil {
			logger.Fatal("Failed to list voices", zap.Error(err))
		}
		for _, v := range voices {
			logger.Info("Voice", zap.String("id", v.VoiceID), zap.String("name", v.Name), zap.String("category", v.Category))
		}
		return
	}

	if *out != "" {
		saveToFile(ctx, synth, *text, *out, logger)
		return
	}

	devices, err := portaudio.New(logger)
	if err != nil {
		logger.Fatal("Failed to initialize audio devices", zap.Error(err))
	}
	defer devices.Close()

	speaker := usecase.NewSpeechHelper(usecase.SpeechHelperConfig{}, nil, synth, devices, nil, logger)
	start := time.Now()
	if err := speaker.Speak(ctx, *text); err != nil {
		logger.Fatal("Playback failed", zap.Error(err))
	}
	logger.Info("Playback finished", zap.Duration("took", time.Since(start)))
}

func saveToFile(ctx context.Context, synth *tts.ElevenLabsTTS, text, path string, logger *zap.Logger) {
	audioChan, err := synth.ConvertTextToSpeech(ctx, text)
	if err != nil {
		logger.Fatal("Failed to convert text to speech", zap.Error(err))
	}

	file, err := os.Create(path)
	if err != nil {
		logger.Fatal("Failed to create output file", zap.Error(err))
	}
	defer file.Close()

	totalBytes := 0
	chunkCount := 0
	for chunk := range audioChan {
		n, err := file.Write(chunk)
		if err != nil {
			logger.Error("Failed to write audio chunk", zap.Error(err))
			break
		}
		totalBytes += n
		chunkCount++
	}

	logger.Info("Audio saved",
		zap.String("file", path),
		zap.Int("chunks", chunkCount),
		zap.Int("bytes", totalBytes),
		zap.Int("sampleRate", synth.SampleRate()),
		zap.Float64("seconds", float64(totalBytes)/2/float64(synth.SampleRate())))
}
