package retrieval

import (
	"context"

	"github.com/scribe-cloud/quill/internal/domain"
)

// embedder turns query text into a vector.
type embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// searcher runs a filtered KNN query over the exemplar index.
type searcher interface {
	Search(ctx context.Context, vector []float32, section, category string, k int) ([]domain.RetrievedDocument, error)
}

// resultCache memoizes search results per query.
type resultCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
}
