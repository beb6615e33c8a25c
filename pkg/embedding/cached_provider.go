package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedProvider wraps another Provider with an in-memory cache keyed on the
// text content hash. Re-syncing a mostly-unchanged corpus re-embeds only the
// chunks whose text actually changed.
type CachedProvider struct {
	inner Provider
	cache *gocache.Cache
}

func NewCachedProvider(inner Provider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (p *CachedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if v, found := p.cache.Get(cacheKey(text)); found {
			vectors[i] = v.([]float32)
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return vectors, nil
	}

	fresh, err := p.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}

	for j, v := range fresh {
		vectors[missingIdx[j]] = v
		p.cache.Set(cacheKey(missing[j]), v, gocache.DefaultExpiration)
	}

	return vectors, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
