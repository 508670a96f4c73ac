// Package answer synthesizes the final response: it builds the multimodal
// prompt from the question and the context window, invokes the generative
// model, and repairs the math delimiters in its output.
package answer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mkraev/mathnotes/internal/domain"
)

// NoNotesAnswer is the fixed response when retrieval yields nothing. The
// model is never invoked in that case: with zero grounding it could only
// hallucinate, and the call would cost tokens for nothing.
const NoNotesAnswer = "I couldn't find any relevant notes."

// DefaultMaxTokens bounds the length of a generated answer.
const DefaultMaxTokens = 1500

const systemPrompt = `You are an expert math tutor.

FORMATTING RULES:
1. Use LaTeX for ALL math.
2. Inline math: $...$
3. Block math: $$...$$
4. Do NOT use \[ or \(.

INSTRUCTIONS:
1. Analyze the provided images first.
2. ALWAYS start your response with a section called "**Analysis of Notes**".
   - In this section, identify the SINGLE most relevant formula, definition, or theorem found in the images.
   - Quote which file/page it came from.
   - If the images are irrelevant to the user's question, clearly state: "The retrieved notes discuss [Topic X], which is not directly related to your question."

3. Then, provide the **Answer**:
   - **Scenario A:** If the answer IS in the notes, explain it step-by-step using the notes.
   - **Scenario B:** If the answer is NOT in the notes, solve the problem using your own expert knowledge, but append this warning at the end:
     "**Note:** This solution was derived from general mathematical principles because the specific answer was not found in the retrieved documents."`

// Service produces the answer for one query.
type Service struct {
	gen       Generator
	maxTokens int
	logger    *zap.Logger
}

// New creates an answer service.
func New(gen Generator, logger *zap.Logger) *Service {
	return &Service{gen: gen, maxTokens: DefaultMaxTokens, logger: logger}
}

// WithMaxTokens overrides the output-length budget.
func (s *Service) WithMaxTokens(n int) *Service {
	if n > 0 {
		s.maxTokens = n
	}
	return s
}

// Answer synthesizes a response from the question and its context window.
// The returned images and captions are the context window's, unchanged in
// order and count, so the display layer can show the sources alongside the
// text. A generative failure is terminal for this query only: it comes back
// as answer text, never as an error that could poison the index or session.
func (s *Service) Answer(ctx context.Context, question string, pages []domain.ContextPage) domain.Answer {
	if len(pages) == 0 {
		return domain.Answer{Text: NoNotesAnswer, Images: []string{}, Captions: []string{}}
	}

	images := make([]string, len(pages))
	captions := make([]string, len(pages))
	prompt := Prompt{
		System:    systemPrompt,
		Question:  question,
		MaxTokens: s.maxTokens,
		Images:    make([]PromptImage, len(pages)),
	}
	for i, p := range pages {
		images[i] = p.ImageB64
		captions[i] = p.Caption
		prompt.Images[i] = PromptImage{Caption: p.Caption, PNGBase64: p.ImageB64}
	}

	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("Generative call failed", zap.Error(err))
		return domain.Answer{
			Text:     fmt.Sprintf("Error contacting OpenAI: %v", err),
			Images:   []string{},
			Captions: []string{},
		}
	}

	return domain.Answer{
		Text:     RepairDelimiters(text),
		Images:   images,
		Captions: captions,
	}
}
