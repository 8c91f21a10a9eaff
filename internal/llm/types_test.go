package llm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTextConcatenatesOnlyTextBlocks(t *testing.T) {
	msg := ChatMessage{
		Role: RoleAssistant,
		Blocks: []ContentBlock{
			{Type: "text", Text: "A"},
			{Type: "other"},
			{Type: "text", Text: "B"},
		},
	}
	require.Equal(t, "AB", msg.Text())
}

func TestTextFallsBackToContent(t *testing.T) {
	require.Equal(t, "plain", ChatMessage{Content: "plain"}.Text())
	require.Equal(t, "", ChatMessage{Blocks: []ContentBlock{{Type: "image"}}}.Text())
}

func TestFlatten(t *testing.T) {
	msg := ChatMessage{
		Content: "prompt",
		Blocks:  []ContentBlock{{Type: "text", Text: "doc"}, {Type: "image"}},
	}
	require.Equal(t, "prompt\n\ndoc", msg.Flatten("\n\n"))
}
