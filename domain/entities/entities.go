package entities

import (
	"errors"
	"fmt"
)

// Speaker identifies who a caption belongs to
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerModel Speaker = "model"
)

// Caption is one transcription update destined for the UI
type Caption struct {
	Text     string  `json:"text"`
	Speaker  Speaker `json:"speaker"`
	Complete bool    `json:"complete"`
}

// IsUser reports whether the caption was spoken by the user
func (c Caption) IsUser() bool {
	return c.Speaker == SpeakerUser
}

// ToolCall is a structured request from the model to run a client-side action
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// StringArg returns a required string argument
func (c ToolCall) StringArg(name string) (string, error) {
	v, ok := c.Args[name]
	if !ok {
		return "", fmt.Errorf("missing argument %q", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", name)
	}
	return s, nil
}

// NumberArg returns a required numeric argument. JSON numbers decode as
// float64, but integers are accepted for calls built in code.
func (c ToolCall) NumberArg(name string) (float64, error) {
	v, ok := c.Args[name]
	if !ok {
		return 0, fmt.Errorf("missing argument %q", name)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("argument %q must be a number", name)
	}
}

// ToolResult pairs a ToolCall with its human-readable outcome
type ToolResult struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Result string `json:"result"`
}

// ParamType is the schema type of a tool parameter
type ParamType string

const (
	ParamString ParamType = "string"
	ParamNumber ParamType = "number"
)

// ToolParam describes a single tool argument
type ToolParam struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description"`
	Required    bool      `json:"required"`
}

// ToolDeclaration describes a tool the model may call
type ToolDeclaration struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []ToolParam `json:"params"`
}

// Validate checks the declaration is usable by the remote endpoint
func (d ToolDeclaration) Validate() error {
	if d.Name == "" {
		return errors.New("tool name is required")
	}
	seen := make(map[string]bool, len(d.Params))
	for _, p := range d.Params {
		if p.Name == "" {
			return fmt.Errorf("tool %s: parameter name is required", d.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("tool %s: duplicate parameter %s", d.Name, p.Name)
		}
		seen[p.Name] = true
		if p.Type != ParamString && p.Type != ParamNumber {
			return fmt.Errorf("tool %s: unsupported parameter type %q", d.Name, p.Type)
		}
	}
	return nil
}
