// Package wiki is the client for the remote corpus API (Outline-style JSON
// RPC: documents.list / documents.info / documents.export).
package wiki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"wiki-rag-be/pkg/httpretry"
)

// DocumentRef is one entry of the paginated listing: identity plus the
// source's last-modified marker, kept as the exact string the API returned.
type DocumentRef struct {
	ID        string
	UpdatedAt string
}

// Document is the full payload for one document.
type Document struct {
	ID        string
	Title     string
	Content   string
	URL       string
	UpdatedAt string
}

// Client calls the wiki HTTP API with bounded timeouts and retry on
// transient failures.
type Client struct {
	baseURL  string
	apiToken string
	pageSize int
	client   *http.Client
	retry    httpretry.Policy
}

func NewClient(baseURL, apiToken string, pageSize int) *Client {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Client{
		baseURL:  baseURL,
		apiToken: apiToken,
		pageSize: pageSize,
		client:   &http.Client{Timeout: 30 * time.Second},
		retry:    httpretry.DefaultPolicy(),
	}
}

type listRequest struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

type listResponse struct {
	Data []struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		UpdatedAt string `json:"updatedAt"`
	} `json:"data"`
	Pagination struct {
		Total int `json:"total"`
	} `json:"pagination"`
}

type infoRequest struct {
	ID string `json:"id"`
}

type infoResponse struct {
	Data struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		Text      string `json:"text"`
		URL       string `json:"url"`
		UpdatedAt string `json:"updatedAt"`
	} `json:"data"`
}

type exportResponse struct {
	Data string `json:"data"`
}

// ListAll walks the paginated listing until a short page and returns every
// document reference. A failure on any page fails the whole listing; the
// sync orchestrator treats that as a fatal cycle error.
func (c *Client) ListAll(ctx context.Context) ([]DocumentRef, error) {
	var refs []DocumentRef

	for offset := 0; ; offset += c.pageSize {
		var page listResponse
		err := c.post(ctx, "/api/documents.list", listRequest{Offset: offset, Limit: c.pageSize}, &page)
		if err != nil {
			return nil, fmt.Errorf("list documents at offset %d: %w", offset, err)
		}

		for _, d := range page.Data {
			refs = append(refs, DocumentRef{ID: d.ID, UpdatedAt: d.UpdatedAt})
		}

		if len(page.Data) < c.pageSize {
			return refs, nil
		}
	}
}

// Get fetches metadata and content for one document. When the info payload
// carries no text (content is served separately), it falls back to the
// export endpoint.
func (c *Client) Get(ctx context.Context, id string) (*Document, error) {
	var info infoResponse
	if err := c.post(ctx, "/api/documents.info", infoRequest{ID: id}, &info); err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}

	doc := &Document{
		ID:        info.Data.ID,
		Title:     info.Data.Title,
		Content:   info.Data.Text,
		URL:       info.Data.URL,
		UpdatedAt: info.Data.UpdatedAt,
	}

	if doc.Content == "" {
		content, err := c.Export(ctx, id)
		if err != nil {
			return nil, err
		}
		doc.Content = content
	}

	return doc, nil
}

// Export fetches the markdown content for one document.
func (c *Client) Export(ctx context.Context, id string) (string, error) {
	var export exportResponse
	if err := c.post(ctx, "/api/documents.export", infoRequest{ID: id}, &export); err != nil {
		return "", fmt.Errorf("export document %s: %w", id, err)
	}
	return export.Data, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	resp, err := httpretry.Do(ctx, c.client, c.retry, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wiki api error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
