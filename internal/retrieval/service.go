// Package retrieval answers queries against the vector index.
package retrieval

import (
	"context"
	"sync"
	"time"

	"deskmate/internal/vector"
)

type SearchResult struct {
	Content string  `json:"content"`
	Source  string  `json:"source,omitempty"`
	Score   float32 `json:"score"`
}

type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type Service struct {
	embedder Embedder
	store    vector.Store
	topK     int
	guard    *sync.RWMutex
	logger   *QueryLogger
}

// NewService builds a search service over the index store. guard is the
// lock shared with the ingestion pipeline; queries take its read side so
// they block for the duration of a rebuild instead of reading a wiped
// index. A nil guard disables the locking.
func NewService(e Embedder, s vector.Store, topK int, guard *sync.RWMutex, l *QueryLogger) *Service {
	if topK <= 0 {
		topK = 10
	}
	return &Service{embedder: e, store: s, topK: topK, guard: guard, logger: l}
}

// Search embeds the query and returns the k most similar chunks, best
// first. k <= 0 falls back to the configured default.
func (s *Service) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	start := time.Now()
	if k <= 0 {
		k = s.topK
	}

	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	if s.guard != nil {
		s.guard.RLock()
	}
	hits, err := s.store.Query(ctx, vec, k)
	if s.guard != nil {
		s.guard.RUnlock()
	}
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, len(hits))
	for i, h := range hits {
		results[i] = SearchResult{Content: h.Content, Source: h.Source, Score: h.Score}
	}

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			Query:      query,
			NumResults: len(results),
			Duration:   time.Since(start),
		})
	}
	return results, nil
}

// Retrieve is the texts-only variant the agent feeds to the model.
func (s *Service) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	results, err := s.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Content
	}
	return texts, nil
}
