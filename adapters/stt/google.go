package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/repositories"
)

const resultsBuffer = 32

// recognizeStream is the subset of the gRPC stream the recognizer uses
type recognizeStream interface {
	Send(*speechpb.StreamingRecognizeRequest) error
	Recv() (*speechpb.StreamingRecognizeResponse, error)
	CloseSend() error
}

// GoogleSpeechToText implements SpeechToText for Google Cloud
type GoogleSpeechToText struct {
	logger *zap.Logger
}

// NewGoogleSpeechToText creates a recognizer using application default credentials
func NewGoogleSpeechToText(logger *zap.Logger) *GoogleSpeechToText {
	return &GoogleSpeechToText{logger: logger}
}

func (g *GoogleSpeechToText) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create streaming recognize: %w", err)
	}

	s, err := newStream(ctx, stream, config, g.logger)
	if err != nil {
		stream.CloseSend()
		client.Close()
		return nil, err
	}
	s.closer = client.Close
	return s, nil
}

func newStream(ctx context.Context, stream recognizeStream, config repositories.AudioConfig, logger *zap.Logger) (*GoogleSpeechToTextStream, error) {
	encoding, err := getAudioEncoding(config.Encoding)
	if err != nil {
		return nil, err
	}

	recognitionConfig := &speechpb.RecognitionConfig{
		Encoding:                   encoding,
		SampleRateHertz:            int32(config.SampleRate),
		LanguageCode:               config.Language,
		EnableAutomaticPunctuation: true,
	}

	// Dictation keeps listening across pauses; one-shot transcription stops
	// at the first utterance.
	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config:          recognitionConfig,
				InterimResults:  config.InterimResults,
				SingleUtterance: !config.InterimResults,
			},
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to send streaming config: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	s := &GoogleSpeechToTextStream{
		stream:  stream,
		ctx:     ctx,
		results: make(chan repositories.Transcript, resultsBuffer),
		done:    make(chan struct{}),
		logger:  logger,
	}
	go s.receiveResults()
	return s, nil
}

// GoogleSpeechToTextStream is one streaming recognition request
type GoogleSpeechToTextStream struct {
	stream recognizeStream
	ctx    context.Context
	closer func() error
	logger *zap.Logger

	results chan repositories.Transcript
	done    chan struct{}

	mu            sync.Mutex
	audioReceived bool
	ended         bool
	finals        []string
	err           error
}

func (g *GoogleSpeechToTextStream) Stream(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	g.mu.Lock()
	if g.ended {
		g.mu.Unlock()
		return errors.New("stream already ended")
	}
	g.audioReceived = true
	g.mu.Unlock()

	if err := g.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: data,
		},
	}); err != nil {
		return fmt.Errorf("failed to send audio data: %w", err)
	}
	return nil
}

// Results implements repositories.SpeechToTextStreaming
func (g *GoogleSpeechToTextStream) Results() <-chan repositories.Transcript {
	return g.results
}

func (g *GoogleSpeechToTextStream) End() (string, error) {
	defer g.cleanup()

	g.mu.Lock()
	already := g.ended
	g.ended = true
	received := g.audioReceived
	g.mu.Unlock()

	if !already {
		if err := g.stream.CloseSend(); err != nil {
			return "", fmt.Errorf("failed to close send stream: %w", err)
		}
	}
	if !received {
		return "", repositories.ErrNoSpeech
	}

	select {
	case <-g.ctx.Done():
		return "", fmt.Errorf("context cancelled while waiting for result: %w", g.ctx.Err())
	case <-g.done:
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	text := strings.TrimSpace(strings.Join(g.finals, " "))
	if text == "" {
		return "", repositories.ErrNoSpeech
	}
	return text, nil
}

func (g *GoogleSpeechToTextStream) receiveResults() {
	defer close(g.done)
	defer close(g.results)

	for {
		resp, err := g.stream.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			g.mu.Lock()
			g.err = fmt.Errorf("failed to receive response: %w", err)
			g.mu.Unlock()
			return
		}

		for _, result := range resp.GetResults() {
			if len(result.GetAlternatives()) == 0 {
				continue
			}
			// Take the best alternative
			t := repositories.Transcript{
				Text:    result.GetAlternatives()[0].GetTranscript(),
				IsFinal: result.GetIsFinal(),
			}
			if t.IsFinal {
				g.mu.Lock()
				g.finals = append(g.finals, strings.TrimSpace(t.Text))
				g.mu.Unlock()
			}
			g.publish(t)
		}
	}
}

// publish drops interim updates when nobody is reading; finals wait for
// the reader or the context.
func (g *GoogleSpeechToTextStream) publish(t repositories.Transcript) {
	if !t.IsFinal {
		select {
		case g.results <- t:
		default:
			g.logger.Debug("Dropping interim transcript", zap.String("text", t.Text))
		}
		return
	}
	select {
	case g.results <- t:
	case <-g.ctx.Done():
	}
}

func (g *GoogleSpeechToTextStream) cleanup() {
	if g.closer != nil {
		g.closer()
		g.closer = nil
	}
}

// TranscribeAudio converts audio data to text using Google Cloud Speech-to-Text (non-streaming)
func (g *GoogleSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	config.InterimResults = false
	stream, err := g.InitTranscribeStreaming(ctx, config)
	if err != nil {
		return "", fmt.Errorf("failed to initialize streaming: %w", err)
	}

	if err := stream.Stream(audioData); err != nil {
		stream.End()
		return "", fmt.Errorf("failed to stream audio data: %w", err)
	}

	return stream.End()
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch encoding {
	case "WAV", "LINEAR16", "":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
