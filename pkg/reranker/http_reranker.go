package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"wiki-rag-be/pkg/httpretry"
)

// HTTPReranker calls a hosted rerank endpoint (Jina/Cohere request shape:
// {model, query, documents, top_n}).
type HTTPReranker struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	retry   httpretry.Policy
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewHTTPReranker(baseURL, apiKey, model string) *HTTPReranker {
	return &HTTPReranker{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 30 * time.Second},
		retry:   httpretry.DefaultPolicy(),
	}
}

func (r *HTTPReranker) Rerank(ctx context.Context, query string, passages []string, topN int) ([]Result, error) {
	if len(passages) == 0 {
		return nil, nil
	}
	if topN <= 0 || topN > len(passages) {
		topN = len(passages)
	}

	jsonData, err := json.Marshal(rerankRequest{
		Model:     r.model,
		Query:     query,
		Documents: passages,
		TopN:      topN,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := httpretry.Do(ctx, r.client, r.retry, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(jsonData))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if r.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+r.apiKey)
		}
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank api error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp rerankResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("rerank api returned error: %s", apiResp.Error.Message)
	}

	results := make([]Result, 0, len(apiResp.Results))
	for _, item := range apiResp.Results {
		// An index outside the candidate range would corrupt the context
		// assembly; drop it rather than trust the upstream blindly.
		if item.Index < 0 || item.Index >= len(passages) {
			log.Printf("[WARN] reranker returned out-of-range index %d (candidates: %d), discarding", item.Index, len(passages))
			continue
		}
		results = append(results, Result{Index: item.Index, Score: item.RelevanceScore})
		if len(results) == topN {
			break
		}
	}

	return results, nil
}
