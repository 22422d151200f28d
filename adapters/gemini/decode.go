package gemini

import (
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/entities"
	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/repositories"
)

// Decode converts one server message into events, in dispatch order:
// audio, interruption, input transcription, output transcription, tool calls.
func Decode(msg *genai.LiveServerMessage) []domain.ServerEvent {
	if msg == nil {
		return nil
	}

	var events []domain.ServerEvent
	if content := msg.ServerContent; content != nil {
		if turn := content.ModelTurn; turn != nil {
			for _, part := range turn.Parts {
				if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
					continue
				}
				if !strings.HasPrefix(part.InlineData.MIMEType, "audio/") {
					continue
				}
				events = append(events, domain.AudioEvent{
					Data:     part.InlineData.Data,
					MIMEType: part.InlineData.MIMEType,
				})
			}
		}

		if content.Interrupted {
			events = append(events, domain.InterruptionEvent{})
		}
		if t := content.InputTranscription; t != nil && t.Text != "" {
			events = append(events, domain.TranscriptionEvent{
				Speaker:  entities.SpeakerUser,
				Text:     t.Text,
				Complete: t.Finished,
			})
		}
		if t := content.OutputTranscription; t != nil && t.Text != "" {
			events = append(events, domain.TranscriptionEvent{
				Speaker:  entities.SpeakerModel,
				Text:     t.Text,
				Complete: t.Finished,
			})
		}
	}

	if msg.ToolCall != nil && len(msg.ToolCall.FunctionCalls) > 0 {
		calls := make([]entities.ToolCall, 0, len(msg.ToolCall.FunctionCalls))
		for _, fc := range msg.ToolCall.FunctionCalls {
			if fc == nil {
				continue
			}
			calls = append(calls, entities.ToolCall{
				ID:   fc.ID,
				Name: fc.Name,
				Args: fc.Args,
			})
		}
		events = append(events, domain.ToolCallEvent{Calls: calls})
	}

	return events
}

// ConnectConfig builds the Live setup for a realtime config
func ConnectConfig(config repositories.RealtimeConfig) (*genai.LiveConnectConfig, error) {
	modality := config.ResponseModality
	if modality == "" {
		modality = repositories.ModalityAudio
	}

	out := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.Modality(modality)},
	}
	if config.SystemInstruction != "" {
		out.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: config.SystemInstruction}},
		}
	}
	if config.Voice != "" {
		out.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: config.Voice},
			},
		}
	}
	if config.InputTranscription {
		out.InputAudioTranscription = &genai.AudioTranscriptionConfig{}
	}
	if config.OutputTranscription {
		out.OutputAudioTranscription = &genai.AudioTranscriptionConfig{}
	}

	if len(config.Tools) > 0 {
		tool, err := Tool(config.Tools)
		if err != nil {
			return nil, err
		}
		out.Tools = []*genai.Tool{tool}
	}
	return out, nil
}

// Tool converts declarations into one genai tool with a function per
// declaration
func Tool(decls []entities.ToolDeclaration) (*genai.Tool, error) {
	tool := &genai.Tool{}
	for _, d := range decls {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("invalid tool declaration: %w", err)
		}

		schema := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema, len(d.Params)),
		}
		for _, p := range d.Params {
			schema.Properties[p.Name] = &genai.Schema{
				Type:        schemaType(p.Type),
				Description: p.Description,
			}
			if p.Required {
				schema.Required = append(schema.Required, p.Name)
			}
		}

		tool.FunctionDeclarations = append(tool.FunctionDeclarations, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  schema,
		})
	}
	return tool, nil
}

func schemaType(t entities.ParamType) genai.Type {
	if t == entities.ParamNumber {
		return genai.TypeNumber
	}
	return genai.TypeString
}

// FunctionResponses converts a response batch, keeping its order
func FunctionResponses(results []repositories.ToolResponse) []*genai.FunctionResponse {
	out := make([]*genai.FunctionResponse, len(results))
	for i, r := range results {
		out[i] = &genai.FunctionResponse{
			ID:       r.ID,
			Name:     r.Name,
			Response: r.Response,
		}
	}
	return out
}
