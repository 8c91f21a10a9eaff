package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ahnaf005/llm-bug-report/internal/llm"
)

func TestChatSendsPartsAndGenerationConfig(t *testing.T) {
	t.Parallel()

	p := NewProvider("gemini_api", "http://mock", "gem", 0)
	p.client = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			require.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", r.URL.Path)
			require.Equal(t, "gem", r.Header.Get("x-goog-api-key"))

			var body struct {
				SystemInstruction *struct {
					Parts []struct {
						Text string `json:"text"`
					} `json:"parts"`
				} `json:"systemInstruction"`
				Contents []struct {
					Role  string `json:"role"`
					Parts []struct {
						Text string `json:"text"`
					} `json:"parts"`
				} `json:"contents"`
				GenerationConfig map[string]float64 `json:"generationConfig"`
			}
			raw, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(raw, &body))

			require.NotNil(t, body.SystemInstruction)
			require.Equal(t, "be terse", body.SystemInstruction.Parts[0].Text)
			require.Len(t, body.Contents, 1)
			require.Equal(t, "user", body.Contents[0].Role)
			require.Len(t, body.Contents[0].Parts, 2)
			require.Equal(t, "prompt", body.Contents[0].Parts[0].Text)
			require.Equal(t, "merged", body.Contents[0].Parts[1].Text)

			temp, ok := body.GenerationConfig["temperature"]
			require.True(t, ok, "temperature 0 must be sent")
			require.Equal(t, 0.0, temp)
			require.Equal(t, 1.0, body.GenerationConfig["topP"])
			require.Equal(t, 1.0, body.GenerationConfig["topK"])

			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     make(http.Header),
				Body: io.NopCloser(strings.NewReader(`{
					"candidates": [{
						"content": {"role": "model", "parts": [
							{"text": "thinking", "thought": true},
							{"text": "Title: "},
							{"functionCall": {"name": "x"}},
							{"text": "NPE"}
						]},
						"finishReason": "STOP"
					}],
					"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 5, "totalTokenCount": 15}
				}`)),
			}, nil
		}),
	}

	resp, err := p.Chat(context.Background(), llm.ChatRequest{
		Model: "gemini-2.5-flash",
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: "be terse"},
			{Role: llm.RoleUser, Content: "prompt", Blocks: []llm.ContentBlock{{Type: llm.BlockText, Text: "merged"}}},
		},
		Sampling: llm.Deterministic(),
	})
	require.NoError(t, err)
	require.Equal(t, "Title: NPE", resp.Message.Text())
	require.Equal(t, "stop", resp.FinishReason)
	require.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestChatBlockedPrompt(t *testing.T) {
	t.Parallel()

	p := NewProvider("gemini_api", "http://mock", "gem", 0)
	p.client = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     make(http.Header),
				Body:       io.NopCloser(strings.NewReader(`{"promptFeedback":{"blockReason":"SAFETY"}}`)),
			}, nil
		}),
	}

	_, err := p.Chat(context.Background(), llm.ChatRequest{Model: "gemini-2.5-flash"})
	require.ErrorContains(t, err, "SAFETY")
}

func TestChatFailsWithoutKey(t *testing.T) {
	t.Parallel()

	p := NewProvider("gemini_api", "", "", 0)
	_, err := p.Chat(context.Background(), llm.ChatRequest{Model: "gemini-2.5-flash"})
	require.ErrorContains(t, err, "missing API key")
}

type roundTripFunc func(r *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
