package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskmate/internal/vector"
)

type stubStore struct {
	existing []string
	listErr  error

	deleted  [][]string
	upserted []vector.Entry
}

func (s *stubStore) Upsert(ctx context.Context, entries []vector.Entry) error {
	s.upserted = append(s.upserted, entries...)
	return nil
}

func (s *stubStore) Delete(ctx context.Context, ids []string) error {
	s.deleted = append(s.deleted, ids)
	return nil
}

func (s *stubStore) ListIDs(ctx context.Context) ([]string, error) {
	return s.existing, s.listErr
}

func (s *stubStore) Query(ctx context.Context, vec []float32, k int) ([]vector.Hit, error) {
	return nil, nil
}

func (s *stubStore) Count(ctx context.Context) (int, error) {
	return len(s.upserted), nil
}

type stubEmbedder struct {
	batches [][]string
	err     error
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.batches = append(e.batches, texts)
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(i)}
	}
	return vectors, nil
}

type stubRecorder struct {
	counts map[string]int
}

func (r *stubRecorder) Reconcile(ctx context.Context, chunkCounts map[string]int) error {
	r.counts = chunkCounts
	return nil
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestPipeline_Run(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "handbook.txt", "The wifi password is on the kitchen whiteboard.")
	writeDoc(t, dir, "policies.md", "Expense reports are due by the fifth of each month.")

	store := &stubStore{existing: []string{"stale-1", "stale-2"}}
	embedder := &stubEmbedder{}
	recorder := &stubRecorder{}

	p := NewPipeline(store, embedder, recorder, Options{ChunkSize: 100, ChunkOverlap: 10})
	report, err := p.Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 2, report.FilesProcessed)
	assert.Equal(t, 2, report.ChunksWritten)
	assert.Empty(t, report.Errors)
	assert.Greater(t, report.Duration.Nanoseconds(), int64(0))

	// Stale ids removed before anything was written.
	require.Len(t, store.deleted, 1)
	assert.Equal(t, []string{"stale-1", "stale-2"}, store.deleted[0])

	require.Len(t, store.upserted, 2)
	sources := []string{store.upserted[0].Source, store.upserted[1].Source}
	assert.Contains(t, sources, "handbook.txt")
	assert.Contains(t, sources, "policies.md")
	for _, e := range store.upserted {
		assert.NotEmpty(t, e.ID)
		assert.NotEmpty(t, e.Content)
		assert.NotEmpty(t, e.Vector)
	}

	require.NotNil(t, recorder.counts)
	assert.Equal(t, 1, recorder.counts["handbook.txt"])
	assert.Equal(t, 1, recorder.counts["policies.md"])
}

func TestPipeline_Run_SkipsUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "good.txt", "Meeting rooms are booked through the calendar.")
	writeDoc(t, dir, "broken.pdf", "this is not a pdf")

	store := &stubStore{}
	p := NewPipeline(store, &stubEmbedder{}, nil, Options{})

	report, err := p.Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 1, report.FilesProcessed)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0].File, "broken.pdf")
	assert.Equal(t, 1, report.ChunksWritten)
}

func TestPipeline_Run_EmbeddingFailureAborts(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "doc.txt", "Parking validation is available at reception.")

	store := &stubStore{existing: []string{"old"}}
	embedder := &stubEmbedder{err: errors.New("backend down")}

	p := NewPipeline(store, embedder, nil, Options{})
	report, err := p.Run(context.Background(), dir)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
	// The wipe already happened, so the caller gets the partial report.
	require.NotNil(t, report)
	require.Len(t, store.deleted, 1)
	assert.Empty(t, store.upserted)
}

func TestPipeline_Run_ListFailureAborts(t *testing.T) {
	store := &stubStore{listErr: errors.New("index offline")}
	p := NewPipeline(store, &stubEmbedder{}, nil, Options{})

	_, err := p.Run(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Empty(t, store.deleted)
}

func TestPipeline_Run_BatchesEmbedding(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "long.txt", strings.Repeat("All visitors must sign in at the front desk. ", 40))

	store := &stubStore{}
	embedder := &stubEmbedder{}

	p := NewPipeline(store, embedder, nil, Options{ChunkSize: 120, ChunkOverlap: 20, BatchSize: 2})
	report, err := p.Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Greater(t, report.ChunksWritten, 4)
	assert.Greater(t, len(embedder.batches), 1)
	for _, b := range embedder.batches {
		assert.LessOrEqual(t, len(b), 2)
	}
}

// blockingEmbedder parks inside EmbedBatch until released, exposing the
// window where a run is mid-rebuild.
type blockingEmbedder struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (e *blockingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.once.Do(func() { close(e.started) })
	<-e.release
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1}
	}
	return vectors, nil
}

func TestPipeline_Run_HoldsGuardForWholeRun(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "doc.txt", "Badge readers are on every floor entrance.")

	guard := &sync.RWMutex{}
	embedder := &blockingEmbedder{started: make(chan struct{}), release: make(chan struct{})}
	p := NewPipeline(&stubStore{}, embedder, nil, Options{Guard: guard})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = p.Run(context.Background(), dir)
	}()

	<-embedder.started
	assert.False(t, guard.TryRLock(), "readers must be shut out while a run is in flight")

	close(embedder.release)
	<-done

	require.True(t, guard.TryRLock(), "guard must be released once the run finishes")
	guard.RUnlock()
}

func TestPipeline_Run_EmptyDirectory(t *testing.T) {
	store := &stubStore{existing: []string{"a"}}
	p := NewPipeline(store, &stubEmbedder{}, nil, Options{})

	report, err := p.Run(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0, report.FilesProcessed)
	assert.Equal(t, 0, report.ChunksWritten)
	// Wipe still runs: removing every document empties the index.
	require.Len(t, store.deleted, 1)
}
