// Package ingest rebuilds the vector index from the document directory.
// A run is full-replace: every known id is removed first, then every
// eligible file is chunked, embedded and written back.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"deskmate/internal/document"
	"deskmate/internal/text"
	"deskmate/internal/vector"
)

// ErrEmbeddingUnavailable aborts the run. A dead embedding backend means
// nothing useful can be written, unlike a single unreadable file.
var ErrEmbeddingUnavailable = errors.New("embedding unavailable")

type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Recorder reconciles the document registry with what a run actually
// indexed. Optional.
type Recorder interface {
	Reconcile(ctx context.Context, chunkCounts map[string]int) error
}

// FileError is a per-file failure that did not abort the run.
type FileError struct {
	File string `json:"file"`
	Err  string `json:"error"`
}

type Report struct {
	FilesProcessed int           `json:"files_processed"`
	ChunksWritten  int           `json:"chunks_written"`
	Errors         []FileError   `json:"errors,omitempty"`
	Duration       time.Duration `json:"duration"`
}

type Pipeline struct {
	store    vector.Store
	embedder Embedder
	recorder Recorder
	guard    *sync.RWMutex

	chunkSize    int
	chunkOverlap int
	batchSize    int
	embedTimeout time.Duration
}

type Options struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
	EmbedTimeout time.Duration

	// Guard, when set, is held for writing across the whole run so that
	// index readers sharing it never observe the wipe-to-rebuild window.
	Guard *sync.RWMutex
}

func NewPipeline(store vector.Store, embedder Embedder, recorder Recorder, opts Options) *Pipeline {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = text.DefaultSize
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = text.DefaultOverlap
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	if opts.EmbedTimeout <= 0 {
		opts.EmbedTimeout = 60 * time.Second
	}
	return &Pipeline{
		store:        store,
		embedder:     embedder,
		recorder:     recorder,
		guard:        opts.Guard,
		chunkSize:    opts.ChunkSize,
		chunkOverlap: opts.ChunkOverlap,
		batchSize:    opts.BatchSize,
		embedTimeout: opts.EmbedTimeout,
	}
}

// Run wipes the index and rebuilds it from sourceDir. Unreadable files
// are recorded in the report and skipped; embedding and index failures
// abort the run, which can leave the index partially built until the
// next successful run.
func (p *Pipeline) Run(ctx context.Context, sourceDir string) (*Report, error) {
	if p.guard != nil {
		p.guard.Lock()
		defer p.guard.Unlock()
	}

	started := time.Now()
	report := &Report{}

	slog.InfoContext(ctx, "ingestion started", "dir", sourceDir)

	existing, err := p.store.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list index ids: %w", err)
	}
	if err := p.store.Delete(ctx, existing); err != nil {
		return nil, fmt.Errorf("wipe index: %w", err)
	}
	slog.InfoContext(ctx, "index wiped", "removed", len(existing))

	files, err := document.ScanDir(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}

	chunkCounts := make(map[string]int, len(files))
	for _, path := range files {
		doc, err := document.Load(path)
		if err != nil {
			slog.WarnContext(ctx, "skipping unreadable document", "file", path, "error", err)
			report.Errors = append(report.Errors, FileError{File: path, Err: err.Error()})
			continue
		}

		chunks := text.SplitDocument(doc.Text(), doc.Name, p.chunkSize, p.chunkOverlap)
		if err := p.index(ctx, chunks); err != nil {
			report.Duration = time.Since(started)
			return report, err
		}

		report.FilesProcessed++
		report.ChunksWritten += len(chunks)
		chunkCounts[doc.Name] = len(chunks)
	}

	if p.recorder != nil {
		if err := p.recorder.Reconcile(ctx, chunkCounts); err != nil {
			slog.WarnContext(ctx, "registry reconciliation failed", "error", err)
		}
	}

	report.Duration = time.Since(started)
	slog.InfoContext(ctx, "ingestion completed",
		"files", report.FilesProcessed,
		"chunks", report.ChunksWritten,
		"failed_files", len(report.Errors),
		"duration", report.Duration,
	)
	return report, nil
}

func (p *Pipeline) index(ctx context.Context, chunks []text.Chunk) error {
	for start := 0; start < len(chunks); start += p.batchSize {
		end := start + p.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		embedCtx, cancel := context.WithTimeout(ctx, p.embedTimeout)
		vectors, err := p.embedder.EmbedBatch(embedCtx, texts)
		cancel()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("%w: got %d vectors for %d chunks", ErrEmbeddingUnavailable, len(vectors), len(batch))
		}

		entries := make([]vector.Entry, len(batch))
		for i, c := range batch {
			entries[i] = vector.Entry{
				ID:      c.ID,
				Content: c.Text,
				Vector:  vectors[i],
				Source:  c.Source,
				Seq:     c.Seq,
			}
		}
		if err := p.store.Upsert(ctx, entries); err != nil {
			return fmt.Errorf("index chunks: %w", err)
		}
	}
	return nil
}
