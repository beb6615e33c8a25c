package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListAllPaginates(t *testing.T) {
	total := 5
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/documents.list", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var req listRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var data []map[string]string
		for i := req.Offset; i < total && i < req.Offset+req.Limit; i++ {
			data = append(data, map[string]string{
				"id":        fmt.Sprintf("doc-%d", i),
				"title":     fmt.Sprintf("Doc %d", i),
				"updatedAt": "2024-01-01T00:00:00Z",
			})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data":       data,
			"pagination": map[string]int{"total": total},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", 2)
	refs, err := c.ListAll(context.Background())

	require.NoError(t, err)
	require.Len(t, refs, total)
	assert.Equal(t, "doc-0", refs[0].ID)
	assert.Equal(t, "doc-4", refs[4].ID)
	assert.Equal(t, "2024-01-01T00:00:00Z", refs[0].UpdatedAt)
}

func TestGetFallsBackToExport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/documents.info":
			// Metadata only, no text.
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]string{
					"id":        "doc-1",
					"title":     "Guide",
					"url":       "/doc/guide",
					"updatedAt": "2024-02-01T00:00:00Z",
				},
			})
		case "/api/documents.export":
			json.NewEncoder(w).Encode(map[string]string{"data": "# Guide\n\nbody"})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", 10)
	doc, err := c.Get(context.Background(), "doc-1")

	require.NoError(t, err)
	assert.Equal(t, "Guide", doc.Title)
	assert.Equal(t, "# Guide\n\nbody", doc.Content)
	assert.Equal(t, "2024-02-01T00:00:00Z", doc.UpdatedAt)
}

func TestGetNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", 10)
	_, err := c.Get(context.Background(), "gone")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListAllFailsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad", 10)
	_, err := c.ListAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}
