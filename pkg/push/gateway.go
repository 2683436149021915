package push

import (
	"context"
)

// Payload is the platform-neutral rendered notification handed to the
// gateway; the gateway translates it to the provider's wire format.
type Payload struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	ImageURL string            `json:"image_url,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
}

// Result is the outcome for a single token.
type Result struct {
	Token     string
	Success   bool
	MessageID string
	// Invalid marks tokens the provider reports as unregistered or
	// malformed; callers should deactivate them.
	Invalid bool
	Err     error
}

// BatchResult aggregates per-token outcomes across all chunks of one batch.
type BatchResult struct {
	SentCount     int
	FailedCount   int
	InvalidTokens []string
	Results       []Result
}

// Gateway delivers rendered notifications to device tokens. Implementations
// must chunk batch sends to the provider's per-call token limit and report
// per-token results; a chunk-level transport failure counts every token in
// that chunk as failed without aborting sibling chunks.
type Gateway interface {
	SendOne(ctx context.Context, token string, payload *Payload) (*Result, error)
	SendBatch(ctx context.Context, tokens []string, payload *Payload) (*BatchResult, error)
}

// ChunkTokens splits tokens into slices of at most size. Used by gateway
// implementations to respect the provider's tokens-per-call limit.
func ChunkTokens(tokens []string, size int) [][]string {
	if size <= 0 || len(tokens) == 0 {
		return nil
	}

	chunks := make([][]string, 0, (len(tokens)+size-1)/size)
	for start := 0; start < len(tokens); start += size {
		end := start + size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, tokens[start:end])
	}
	return chunks
}
