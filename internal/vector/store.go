package vector

import (
	"context"
	"errors"
)

// ErrUnavailable marks a store whose persisted backing could not be
// opened or reached. Fatal to any ingestion run.
var ErrUnavailable = errors.New("vector index unavailable")

// Entry is one indexed chunk: the index is the single source of truth for
// retrieval, so the chunk text rides along with its vector.
type Entry struct {
	ID      string
	Content string
	Vector  []float32
	Source  string
	Seq     int
}

// Hit is a similarity-search result, highest similarity first.
type Hit struct {
	ID      string
	Content string
	Source  string
	Score   float32
}

// Store is the vector index contract. Implementations must persist across
// restarts and support wiping all known ids without tearing down the
// underlying storage handle.
type Store interface {
	Upsert(ctx context.Context, entries []Entry) error
	Delete(ctx context.Context, ids []string) error
	ListIDs(ctx context.Context) ([]string, error)
	// Query returns at most k hits in descending similarity order.
	Query(ctx context.Context, vector []float32, k int) ([]Hit, error)
	Count(ctx context.Context) (int, error)
}
