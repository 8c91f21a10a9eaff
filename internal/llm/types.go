package llm

import (
	"context"
	"strings"
)

// Role is the message role used in chat exchanges.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockText is the only block type whose text contributes to a reply.
const BlockText = "text"

// ContentBlock is one typed piece of message content.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	// Name labels attached documents (e.g. the merged input file).
	Name string `json:"name,omitempty"`
}

// ChatMessage represents a single message exchanged with the model.
// Content carries plain text; Blocks carries typed parts when the backend uses them.
type ChatMessage struct {
	Role    Role           `json:"role"`
	Content string         `json:"content,omitempty"`
	Blocks  []ContentBlock `json:"blocks,omitempty"`
}

// Text returns the textual reply: text-typed blocks concatenated in order when
// blocks are present, otherwise Content.
func (m ChatMessage) Text() string {
	if len(m.Blocks) == 0 {
		return m.Content
	}
	var b strings.Builder
	for _, blk := range m.Blocks {
		if blk.Type == BlockText {
			b.WriteString(blk.Text)
		}
	}
	return b.String()
}

// Flatten joins content and every text block, used by backends without part support.
func (m ChatMessage) Flatten(sep string) string {
	parts := make([]string, 0, len(m.Blocks)+1)
	if m.Content != "" {
		parts = append(parts, m.Content)
	}
	for _, blk := range m.Blocks {
		if blk.Type == BlockText && blk.Text != "" {
			parts = append(parts, blk.Text)
		}
	}
	return strings.Join(parts, sep)
}

// Sampling pins decoding parameters. Zero TopP/TopK mean "provider default".
type Sampling struct {
	Temperature float64
	TopP        float64
	TopK        int
}

// Deterministic returns the most deterministic sampling settings.
func Deterministic() Sampling {
	return Sampling{Temperature: 0, TopP: 1, TopK: 1}
}

// ChatRequest is the input for chat providers.
type ChatRequest struct {
	Model     string
	Messages  []ChatMessage
	MaxTokens int
	Sampling  Sampling
}

// Usage captures token accounting.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatResponse is the result of a chat completion.
type ChatResponse struct {
	Message      ChatMessage
	FinishReason string
	Usage        Usage
	RawResponse  interface{}
	ProviderName string
	Model        string
}

// Provider defines the contract for generative backends.
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}
