package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/mkraev/mathnotes/internal/domain"
	"github.com/mkraev/mathnotes/internal/usecase/answer"
)

// chatRequest mirrors the OpenAI chat completion request with multimodal content.
type chatRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

type chatContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL    string `json:"url"`
		Detail string `json:"detail"`
	} `json:"image_url,omitempty"`
}

func newTestChatClient(baseURL string) *ChatClient {
	return NewChatClient(&ChatConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})
}

func chatCompletionBody(text string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "test-model",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": text},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{"prompt_tokens": 100, "completion_tokens": 50, "total_tokens": 150},
	}
}

func TestChatClient_Generate_RequestShape(t *testing.T) {
	var got chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletionBody("the answer"))
	}))
	defer server.Close()

	prompt := answer.Prompt{
		System:    "you are a tutor",
		Question:  "what is a limit?",
		MaxTokens: 1500,
		Images: []answer.PromptImage{
			{Caption: "From calc.pdf, Page 3", PNGBase64: "aW1hZ2Ux"},
			{Caption: "From calc.pdf, Page 4", PNGBase64: "aW1hZ2Uy"},
		},
	}

	text, err := newTestChatClient(server.URL).Generate(context.Background(), prompt)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "the answer" {
		t.Errorf("text = %q", text)
	}

	if got.Model != "test-model" || got.MaxTokens != 1500 {
		t.Errorf("model/max_tokens = %q/%d", got.Model, got.MaxTokens)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("got %d messages, want system + user", len(got.Messages))
	}
	if got.Messages[0].Role != "system" {
		t.Errorf("first message role = %q", got.Messages[0].Role)
	}

	var parts []chatContentPart
	if err := json.Unmarshal(got.Messages[1].Content, &parts); err != nil {
		t.Fatalf("user content is not multimodal parts: %v", err)
	}
	// Question, then per image a caption part and an image part.
	if len(parts) != 5 {
		t.Fatalf("got %d content parts, want 5", len(parts))
	}
	if parts[0].Type != "text" || parts[0].Text != "what is a limit?" {
		t.Errorf("first part = %+v, want the question", parts[0])
	}
	if !strings.Contains(parts[1].Text, "Context Image 1") || !strings.Contains(parts[1].Text, "From calc.pdf, Page 3") {
		t.Errorf("caption part = %q", parts[1].Text)
	}
	if parts[2].ImageURL == nil || parts[2].ImageURL.URL != "data:image/png;base64,aW1hZ2Ux" {
		t.Errorf("image part = %+v", parts[2])
	}
	if !strings.Contains(parts[3].Text, "Context Image 2") {
		t.Errorf("second caption part = %q", parts[3].Text)
	}
	if parts[4].ImageURL == nil || parts[4].ImageURL.URL != "data:image/png;base64,aW1hZ2Uy" {
		t.Errorf("second image part = %+v", parts[4])
	}
}

func TestChatClient_Generate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "overloaded", "type": "server_error"},
		})
	}))
	defer server.Close()

	_, err := newTestChatClient(server.URL).Generate(context.Background(), answer.Prompt{Question: "q"})
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
	if !errors.Is(err, domain.ErrChatProviderError) {
		t.Errorf("error not classified as provider error: %v", err)
	}
}

func TestChatClient_Generate_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"model":   "test-model",
			"choices": []any{},
		})
	}))
	defer server.Close()

	_, err := newTestChatClient(server.URL).Generate(context.Background(), answer.Prompt{Question: "q"})
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
	if !errors.Is(err, domain.ErrChatProviderError) {
		t.Errorf("error not classified as provider error: %v", err)
	}
}
