// Package retrieval finds exemplar documents relevant to a query. Retrieval
// is best-effort context enrichment: any failure degrades to an empty result
// set instead of failing the caller's task.
package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/scribe-cloud/quill/internal/domain"
	"github.com/scribe-cloud/quill/internal/metrics"
)

// Service retrieves ranked exemplars for a query, with per-query caching.
type Service struct {
	embedder embedder
	searcher searcher
	cache    resultCache
	topK     int
	logger   *zap.Logger
}

// New creates a retrieval service.
func New(emb embedder, s searcher, cache resultCache, topK int, logger *zap.Logger) *Service {
	return &Service{embedder: emb, searcher: s, cache: cache, topK: topK, logger: logger}
}

// Search returns up to topK exemplars for the query, filtered to the section
// and category. A blank query, a cache miss plus provider failure, or a
// search failure all yield an empty slice and a nil error.
func (s *Service) Search(ctx context.Context, query, section, category string) []domain.RetrievedDocument {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	key := searchCacheKey(query, section, category, s.topK)
	if docs, ok := s.fromCache(key); ok {
		metrics.RetrievalRequestsTotal.WithLabelValues(section, "ok").Inc()
		return docs
	}

	result, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.degrade(section, "embed query", err)
		return nil
	}

	docs, err := s.searcher.Search(ctx, result.Embedding, section, category, s.topK)
	if err != nil {
		s.degrade(section, "search exemplars", err)
		return nil
	}

	s.toCache(key, docs)
	metrics.RetrievalRequestsTotal.WithLabelValues(section, "ok").Inc()
	return docs
}

// SearchSections runs Search once per section concurrently and returns a map
// with an entry for every requested section. Total latency is bounded by the
// slowest section, not the sum.
func (s *Service) SearchSections(ctx context.Context, query string, sections []string, category string) map[string][]domain.RetrievedDocument {
	results := make(map[string][]domain.RetrievedDocument, len(sections))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, section := range sections {
		wg.Add(1)
		go func(section string) {
			defer wg.Done()
			docs := s.Search(ctx, query, section, category)
			mu.Lock()
			results[section] = docs
			mu.Unlock()
		}(section)
	}
	wg.Wait()

	return results
}

func (s *Service) degrade(section, op string, err error) {
	metrics.RetrievalRequestsTotal.WithLabelValues(section, "degraded").Inc()
	s.logger.Warn("Retrieval degraded to empty results",
		zap.String("section", section),
		zap.String("op", op),
		zap.Error(err))
}

func (s *Service) fromCache(key string) ([]domain.RetrievedDocument, bool) {
	data, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	var docs []domain.RetrievedDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		s.logger.Warn("Failed to decode cached search result", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return docs, true
}

func (s *Service) toCache(key string, docs []domain.RetrievedDocument) {
	data, err := json.Marshal(docs)
	if err != nil {
		s.logger.Warn("Failed to encode search result for cache", zap.Error(err))
		return
	}
	s.cache.Set(key, data)
}

func searchCacheKey(query, section, category string, topK int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%d", query, section, category, topK)))
	return hex.EncodeToString(h[:])
}
