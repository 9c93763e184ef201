// Package chromem persists the vector index in-process with chromem-go.
// This is the default backend: no external service, cosine similarity,
// storage under a single configured directory.
package chromem

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"deskmate/internal/vector"
)

const collectionName = "docs"

// Store wraps a persistent chromem DB plus a sidecar manifest recording
// which ids are stored. chromem has no id-listing API, and the manifest is
// what lets a re-ingestion wipe every known entry without recreating the
// on-disk database handle.
type Store struct {
	db   *chromem.DB
	coll *chromem.Collection

	mu           sync.Mutex
	ids          map[string]string // id -> source file
	manifestPath string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrUnavailable, err)
	}

	db, err := chromem.NewPersistentDB(filepath.Join(dir, "chromem"), false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrUnavailable, err)
	}

	// Vectors are always supplied by the caller, so the collection's own
	// embedding func is never invoked.
	coll, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrUnavailable, err)
	}

	s := &Store{
		db:           db,
		coll:         coll,
		ids:          make(map[string]string),
		manifestPath: filepath.Join(dir, "manifest.json"),
	}
	if err := s.loadManifest(); err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrUnavailable, err)
	}

	return s, nil
}

func (s *Store) Upsert(ctx context.Context, entries []vector.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, chromem.Document{
			ID:        e.ID,
			Content:   e.Content,
			Embedding: e.Vector,
			Metadata: map[string]string{
				"source": e.Source,
				"seq":    strconv.Itoa(e.Seq),
			},
		})
	}

	if err := s.coll.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.ids[e.ID] = e.Source
	}
	return s.saveManifest()
}

func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if err := s.coll.Delete(ctx, nil, nil, ids...); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.ids, id)
	}
	return s.saveManifest()
}

func (s *Store) ListIDs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) Query(ctx context.Context, vec []float32, k int) ([]vector.Hit, error) {
	// chromem rejects nResults larger than the collection size.
	if n := s.coll.Count(); n < k {
		k = n
	}
	if k <= 0 {
		return nil, nil
	}

	results, err := s.coll.QueryEmbedding(ctx, vec, k, nil, nil)
	if err != nil {
		return nil, err
	}

	hits := make([]vector.Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, vector.Hit{
			ID:      r.ID,
			Content: r.Content,
			Source:  r.Metadata["source"],
			Score:   r.Similarity,
		})
	}
	return hits, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	return s.coll.Count(), nil
}

type manifest struct {
	IDs map[string]string `json:"ids"`
}

func (s *Store) loadManifest() error {
	raw, err := os.ReadFile(s.manifestPath)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}

	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("corrupt manifest %s: %w", s.manifestPath, err)
	}
	if m.IDs != nil {
		s.ids = m.IDs
	}
	return nil
}

// saveManifest is called with s.mu held.
func (s *Store) saveManifest() error {
	raw, err := json.Marshal(manifest{IDs: s.ids})
	if err != nil {
		return err
	}

	// Write-then-rename keeps the manifest readable if we crash mid-write.
	tmp := s.manifestPath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.manifestPath)
}
