package repositories

import (
	"context"

	"github.com/alok-yd/Mini-Alexa-Gemini-powered/domain/entities"
)

// ToolDispatcher executes client-side tools on behalf of the model
type ToolDispatcher interface {
	// Declarations lists the tools offered to the model
	Declarations() []entities.ToolDeclaration
	// Dispatch executes a batch and returns one result per call
	Dispatch(ctx context.Context, calls []entities.ToolCall) ([]entities.ToolResult, error)
}

// Opener opens a URL in the user's browser
type Opener interface {
	Open(ctx context.Context, url string) error
}
