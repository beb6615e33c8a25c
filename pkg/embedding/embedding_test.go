package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEmbeddingServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// Answer out of order on purpose; the provider must reassemble by index.
		type item struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		items := make([]item, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			items = append(items, item{
				Object:    "embedding",
				Index:     i,
				Embedding: []float32{float32(i), float32(len(req.Input[i]))},
			})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"data": items})
	}))
}

func TestOpenAIProviderEmbedOrderPreserving(t *testing.T) {
	var calls int32
	srv := newEmbeddingServer(t, &calls)
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "test-key", "test-model")
	vectors, err := p.Embed(context.Background(), []string{"aa", "bbbb", "c"})

	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{0, 2}, vectors[0])
	assert.Equal(t, []float32{1, 4}, vectors[1])
	assert.Equal(t, []float32{2, 1}, vectors[2])
}

func TestOpenAIProviderEmptyInput(t *testing.T) {
	p := NewOpenAIProvider("http://unused", "", "m")
	vectors, err := p.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestOpenAIProviderCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"data": []interface{}{}})
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "", "m")
	_, err := p.Embed(context.Background(), []string{"one"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0 vectors for 1 inputs")
}

func TestCachedProviderSkipsKnownTexts(t *testing.T) {
	var calls int32
	srv := newEmbeddingServer(t, &calls)
	defer srv.Close()

	p := NewCachedProvider(NewOpenAIProvider(srv.URL, "", "m"), time.Minute)

	first, err := p.Embed(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// Second call: "alpha" comes out of the cache, only "gamma" hits upstream.
	second, err := p.Embed(context.Background(), []string{"alpha", "gamma"})
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, first[0], second[0])
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	// Fully cached batch never leaves the process.
	_, err = p.Embed(context.Background(), []string{"beta", "gamma"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
