package domain

import "errors"

var (
	// ErrMissingAPIKey signals that no OpenAI credential is available.
	// This is a fatal initialization error: nothing can be indexed or
	// queried without the embedding and chat capabilities.
	ErrMissingAPIKey = errors.New("OPENAI_API_KEY not found")
	// ErrDocumentNotFound signals a missing document in the index.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrChatProviderError signals a chat completion provider failure.
	ErrChatProviderError = errors.New("chat provider error")
)
