package embedding

import "context"

// Provider defines the interface for generating text embeddings. Embed is
// batch and order-preserving: result[i] is the vector for texts[i].
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
