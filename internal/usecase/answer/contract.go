package answer

import "context"

// Prompt is a single structured multimodal request: system instruction,
// question, and the ordered caption/image pairs of the context window.
type Prompt struct {
	System    string
	Question  string
	MaxTokens int
	Images    []PromptImage
}

// PromptImage is one caption-and-image entry of the user turn.
type PromptImage struct {
	Caption   string
	PNGBase64 string
}

// Generator invokes the multimodal generative capability.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}
