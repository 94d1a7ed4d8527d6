package llm

import (
	"context"
	"encoding/base64"
	"fmt"
)

// Provider defines the interface for the structured-extraction / decision
// model backend. One request, one response; retry is the delivery
// substrate's job, not ours.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// Complete performs a single chat completion and returns the raw text.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// CompleteWithTools performs a single chat completion with invocable
	// capabilities offered to the model. The model may answer with text,
	// with tool calls, or both.
	CompleteWithTools(ctx context.Context, req CompletionRequest, tools []ToolDefinition) (*ToolCompletion, error)

	// Embed returns the embedding vector for one text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CompletionRequest contains the input for one model call.
type CompletionRequest struct {
	// System is the system instruction.
	System string

	// User is the user instruction with interpolated content.
	User string

	// Images carries optional inline image data for vision calls.
	Images []ImageInput

	// Temperature controls sampling. The decision engine always passes 0
	// so identical inputs reproduce identical outputs.
	Temperature float32

	// MaxTokens limits the response length (0 = provider default).
	MaxTokens int
}

// ImageInput is one inline image attached to a completion.
type ImageInput struct {
	MimeType string // image/jpeg, image/png, ...
	Data     []byte
}

// DataURL encodes the image as a data: URL for inline submission.
func (i ImageInput) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", i.MimeType, base64.StdEncoding.EncodeToString(i.Data))
}

// ToolDefinition describes one capability offered to the model.
type ToolDefinition struct {
	Name        string
	Description string
	// Parameters is a JSON-schema object describing the arguments.
	Parameters map[string]any
}

// ToolCall is one invocation the model asked for.
type ToolCall struct {
	Name string
	// Arguments is the raw JSON argument object as emitted by the model.
	Arguments string
}

// ToolCompletion is the outcome of a tool-enabled completion.
type ToolCompletion struct {
	Text  string
	Calls []ToolCall
}
