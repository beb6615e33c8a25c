//go:build ignore

package main

import (
	"context"
	"fmt"
	"log"

	"wiki-rag-be/internal/config"
	"wiki-rag-be/pkg/wiki"
)

// Manual smoke test for the wiki API credentials: lists the corpus and
// fetches the first document. Run with: go run scripts/test_wiki_api.go
func main() {
	cfg := config.Load()

	client := wiki.NewClient(cfg.Wiki.BaseURL, cfg.Wiki.APIToken, cfg.Wiki.PageSize)

	refs, err := client.ListAll(context.Background())
	if err != nil {
		log.Fatalf("ListAll failed: %v", err)
	}
	fmt.Printf("Remote corpus: %d documents\n", len(refs))

	if len(refs) == 0 {
		return
	}

	doc, err := client.Get(context.Background(), refs[0].ID)
	if err != nil {
		log.Fatalf("Get failed for %s: %v", refs[0].ID, err)
	}
	fmt.Printf("First document: %q (updated %s, %d chars)\n", doc.Title, doc.UpdatedAt, len(doc.Content))
}
