package domain

import "context"

// MaxCompletionTokens is the hard ceiling accepted by the completion service.
const MaxCompletionTokens = 8000

// CompletionRequest is a single prompt sent to the language model.
// Zero MaxTokens and Temperature mean "use the provider defaults".
type CompletionRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature *float32
}

// Completer is the language model contract shared by intent extraction,
// answer generation, schema analysis and completion-based embeddings.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Temperature returns a pointer for CompletionRequest.Temperature.
func Temperature(t float32) *float32 { return &t }
