package reporter

import (
	"fmt"
	"strings"

	"github.com/ahnaf005/llm-bug-report/internal/llm"
)

// reportSections are the headings every generated report must contain, in order.
var reportSections = []string{
	"Title: Provide a concise title describing the bug.",
	"Steps to Reproduce: List clear, itemized steps.",
	"Triggering Input: Include the input, parameters, or conditions that caused the bug.",
	"Expected Behavior: Describe what the program should do.",
	"Observed Behavior: Describe what actually happens, including error messages.",
	"Relevant Code Snippets: Include relevant code from the diff.",
	"Stack Traces: Include necessary stack trace from the build log.",
	"Patches / Suggested Fixes: Include if available in the diff.",
}

// buildInstructions returns the fixed instruction template sent ahead of the merged document.
func buildInstructions() string {
	var b strings.Builder
	b.WriteString("The attached document contains TWO sections:\n1. BUILD LOG\n2. CODE DIFF\n\n")
	b.WriteString("Both are required for full debugging context.\n\n")
	b.WriteString("You are a software engineer assistant. Based on the build log and code diff, generate a detailed bug report that includes:\n")
	for i, s := range reportSections {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	return strings.TrimSpace(b.String())
}

// buildMessages pairs the instructions with the merged document as a separate text part.
func buildMessages(docName, doc string) []llm.ChatMessage {
	return []llm.ChatMessage{{
		Role: llm.RoleUser,
		Blocks: []llm.ContentBlock{
			{Type: llm.BlockText, Text: buildInstructions()},
			{Type: llm.BlockText, Text: doc, Name: docName},
		},
	}}
}
