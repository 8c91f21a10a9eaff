package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ahnaf005/llm-bug-report/internal/llm"
)

const defaultBaseURL = "http://127.0.0.1:11434"

// Provider runs reports against a local Ollama model. Ollama has no typed
// message parts, so block content is flattened into one string per message.
type Provider struct {
	name    string
	client  *http.Client
	baseURL string
}

// NewProvider constructs an Ollama provider. Local generation over a large
// merged document is slow, hence the generous default timeout.
func NewProvider(name, baseURL string, timeout time.Duration) *Provider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout == 0 {
		timeout = 10 * time.Minute
	}
	return &Provider{
		name:    name,
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// Chat sends one non-streaming /api/chat request.
func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	if req.Model == "" {
		return llm.ChatResponse{}, errors.New("model is required")
	}

	body := chatRequest{
		Model:    req.Model,
		Messages: make([]message, 0, len(req.Messages)),
		Options:  toOptions(req.Sampling, req.MaxTokens),
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, message{Role: string(m.Role), Content: m.Flatten("\n\n")})
	}

	var resp chatResponse
	if err := p.post(ctx, "/api/chat", body, &resp); err != nil {
		return llm.ChatResponse{}, err
	}

	finish := resp.DoneReason
	if finish == "" {
		finish = "stop"
	}
	return llm.ChatResponse{
		Message:      llm.ChatMessage{Role: llm.Role(resp.Message.Role), Content: resp.Message.Content},
		FinishReason: finish,
		Usage: llm.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
		RawResponse:  resp,
		ProviderName: p.name,
		Model:        req.Model,
	}, nil
}

func (p *Provider) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("ollama %s: %w", path, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("ollama: status %d: %s", res.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// toOptions maps sampling onto Ollama's option names; unset values keep the model defaults.
func toOptions(s llm.Sampling, maxTokens int) options {
	o := options{Temperature: s.Temperature}
	if s.TopP > 0 {
		o.TopP = &s.TopP
	}
	if s.TopK > 0 {
		o.TopK = &s.TopK
	}
	if maxTokens > 0 {
		o.NumPredict = &maxTokens
	}
	return o
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  options   `json:"options"`
}

type options struct {
	Temperature float64  `json:"temperature"`
	TopP        *float64 `json:"top_p,omitempty"`
	TopK        *int     `json:"top_k,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Message         message `json:"message"`
	DoneReason      string  `json:"done_reason"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
}
