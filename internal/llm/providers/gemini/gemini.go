package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ahnaf005/llm-bug-report/internal/llm"
)

// Provider implements the Gemini generateContent API.
type Provider struct {
	name    string
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewProvider constructs a Gemini provider.
func NewProvider(name, baseURL, apiKey string, timeout time.Duration) *Provider {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	if timeout == 0 {
		timeout = 300 * time.Second
	}

	return &Provider{
		name:    name,
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// Name returns provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// Chat sends the conversation as contents; system messages become the system instruction.
func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	model := req.Model
	if model == "" {
		return llm.ChatResponse{}, fmt.Errorf("model is required")
	}
	if p.apiKey == "" {
		return llm.ChatResponse{}, fmt.Errorf("gemini: missing API key")
	}

	temperature := req.Sampling.Temperature
	body := geminiRequest{
		GenerationConfig: geminiGenerationConfig{
			Temperature:     &temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if req.Sampling.TopP > 0 {
		topP := req.Sampling.TopP
		body.GenerationConfig.TopP = &topP
	}
	if req.Sampling.TopK > 0 {
		topK := req.Sampling.TopK
		body.GenerationConfig.TopK = &topK
	}
	for _, m := range req.Messages {
		parts := toGeminiParts(m)
		if m.Role == llm.RoleSystem {
			if body.SystemInstruction == nil {
				body.SystemInstruction = &geminiContent{}
			}
			body.SystemInstruction.Parts = append(body.SystemInstruction.Parts, parts...)
			continue
		}
		role := "user"
		if m.Role == llm.RoleAssistant {
			role = "model"
		}
		body.Contents = append(body.Contents, geminiContent{Role: role, Parts: parts})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return llm.ChatResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := p.baseURL + "/v1beta/models/" + url.PathEscape(model) + ":generateContent"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return llm.ChatResponse{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	res, err := p.client.Do(httpReq)
	if err != nil {
		return llm.ChatResponse{}, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(res.Body)
		return llm.ChatResponse{}, fmt.Errorf("gemini: status %d: %s", res.StatusCode, string(b))
	}

	var resp geminiResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return llm.ChatResponse{}, fmt.Errorf("decode response: %w", err)
	}

	if resp.PromptFeedback.BlockReason != "" {
		return llm.ChatResponse{}, fmt.Errorf("gemini: prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return llm.ChatResponse{}, fmt.Errorf("gemini: empty candidates")
	}

	cand := resp.Candidates[0]
	blocks := make([]llm.ContentBlock, 0, len(cand.Content.Parts))
	for _, part := range cand.Content.Parts {
		blocks = append(blocks, fromGeminiPart(part))
	}

	return llm.ChatResponse{
		Message: llm.ChatMessage{
			Role:   llm.RoleAssistant,
			Blocks: blocks,
		},
		FinishReason: strings.ToLower(cand.FinishReason),
		Usage: llm.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		},
		RawResponse:  resp,
		ProviderName: p.name,
		Model:        model,
	}, nil
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text         string          `json:"text,omitempty"`
	Thought      bool            `json:"thought,omitempty"`
	FunctionCall json.RawMessage `json:"functionCall,omitempty"`
	InlineData   json.RawMessage `json:"inlineData,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

func toGeminiParts(m llm.ChatMessage) []geminiPart {
	parts := make([]geminiPart, 0, len(m.Blocks)+1)
	if m.Content != "" {
		parts = append(parts, geminiPart{Text: m.Content})
	}
	for _, b := range m.Blocks {
		if b.Type == llm.BlockText {
			parts = append(parts, geminiPart{Text: b.Text})
		}
	}
	return parts
}

func fromGeminiPart(part geminiPart) llm.ContentBlock {
	switch {
	case part.Thought:
		return llm.ContentBlock{Type: "thought", Text: part.Text}
	case len(part.FunctionCall) > 0:
		return llm.ContentBlock{Type: "function_call"}
	case len(part.InlineData) > 0:
		return llm.ContentBlock{Type: "inline_data"}
	default:
		return llm.ContentBlock{Type: llm.BlockText, Text: part.Text}
	}
}
