// Package rag holds the retrieval pipeline stages: query rewrite, passage
// selection and bounded context assembly.
package rag

import (
	"context"
	"fmt"
	"log"
	"strings"

	"wiki-rag-be/pkg/llm"
)

const rewritePromptTemplate = `Given the conversation below, rewrite the last user question into a standalone search query. Resolve pronouns and references to earlier turns. If the question is already standalone, return it unchanged. Reply with the query only, no explanation.

Conversation:
%s

Last user question: %s

Standalone query:`

// Rewriter turns a follow-up question into a standalone search query using a
// deterministic generation call.
type Rewriter struct {
	provider llm.Provider
}

func NewRewriter(provider llm.Provider) *Rewriter {
	return &Rewriter{provider: provider}
}

// Rewrite returns the standalone form of input given the prior turns. With no
// history there is nothing to resolve, and any rewrite failure degrades to
// the original input rather than failing retrieval.
func (r *Rewriter) Rewrite(ctx context.Context, history []llm.Message, input string) string {
	if len(history) == 0 {
		return input
	}

	var sb strings.Builder
	for _, msg := range history {
		fmt.Fprintf(&sb, "%s: %s\n", msg.Role, msg.Content)
	}

	prompt := fmt.Sprintf(rewritePromptTemplate, sb.String(), input)
	rewritten, err := r.provider.Generate(ctx, prompt, llm.WithTemperature(0))
	if err != nil {
		log.Printf("[WARN] query rewrite failed, using original input: %v", err)
		return input
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return input
	}
	return rewritten
}
