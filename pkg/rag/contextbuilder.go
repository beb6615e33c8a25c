package rag

import (
	"fmt"
	"strings"

	"wiki-rag-be/pkg/llm"
)

// Passage is one selected retrieval unit ready for context assembly.
type Passage struct {
	Text     string
	Title    string
	SourceId string
}

// BuildContext concatenates passages under a total character budget. Each
// passage is prefixed with a position marker and its document title.
// Truncation drops whole passages from the end, never mid-passage.
func BuildContext(passages []Passage, charBudget int) string {
	if charBudget <= 0 || len(passages) == 0 {
		return ""
	}

	var sb strings.Builder
	used := 0
	for i, p := range passages {
		block := fmt.Sprintf("[%d] %s\n%s\n\n", i+1, p.Title, p.Text)
		if used+len(block) > charBudget {
			break
		}
		sb.WriteString(block)
		used += len(block)
	}

	return strings.TrimRight(sb.String(), "\n")
}

const systemPromptTemplate = `You are a knowledge assistant answering questions about an internal wiki. Ground every answer in the context passages below. When the context does not contain the answer, say so instead of guessing. Cite passages by their [n] markers where relevant.

Context:
%s`

// BuildMessages assembles the generation prompt: system instruction with the
// assembled context, the prior turns, then the original (not rewritten) user
// query as the final user message.
func BuildMessages(contextBlock string, history []llm.Message, originalQuery string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: fmt.Sprintf(systemPromptTemplate, contextBlock),
	})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: originalQuery})
	return messages
}
