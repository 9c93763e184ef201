// Package document manages the corpus: the files on disk that ingestion
// indexes, and the registry rows tracking their status.
package document

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"deskmate/internal/config"
	srcdoc "deskmate/internal/document"
	"deskmate/internal/middleware"
)

const (
	StatusPending = "pending"
	StatusIndexed = "indexed"
	StatusFailed  = "failed"
	StatusMissing = "missing"
)

var (
	ErrDuplicate       = errors.New("duplicate document")
	ErrUnsupportedType = errors.New("unsupported file type")
)

type Document struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentHash string `json:"-"`
	Status      string `json:"status"`
	ChunkCount  int    `json:"chunk_count"`
	CreatedAt   string `json:"created_at,omitempty"`
}

type Repository interface {
	Save(ctx context.Context, d *Document) error
	ExistsByHash(ctx context.Context, hash string) (bool, error)
	Get(ctx context.Context, id string) (*Document, error)
	List(ctx context.Context) ([]Document, error)
	SoftDelete(ctx context.Context, id string) error
	UpdateIndexed(ctx context.Context, name string, chunkCount int) error
	MarkMissingExcept(ctx context.Context, names []string) error
	Count(ctx context.Context) (int, error)
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	repo    Repository
	pub     EventPublisher
	docsDir string
}

func NewService(repo Repository, pub EventPublisher, docsDir string) *Service {
	return &Service{repo: repo, pub: pub, docsDir: docsDir}
}

// Upload stores a new corpus file and queues a re-ingestion. Identical
// content is rejected regardless of filename.
func (s *Service) Upload(ctx context.Context, filename string, content []byte) (*Document, error) {
	name := filepath.Base(filename)
	if !srcdoc.Eligible(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, name)
	}

	hash := fmt.Sprintf("%x", sha256.Sum256(content))
	exists, err := s.repo.ExistsByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicate
	}

	if err := os.MkdirAll(s.docsDir, 0o750); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(s.docsDir, name), content, 0o600); err != nil {
		return nil, err
	}

	doc := &Document{Name: name, ContentHash: hash, Status: StatusPending}
	if err := s.repo.Save(ctx, doc); err != nil {
		return nil, err
	}

	// The upload itself is committed; a failed trigger is logged and the
	// next one rescans the whole directory.
	_ = s.publishIngest(ctx)
	return doc, nil
}

func (s *Service) List(ctx context.Context) ([]Document, error) {
	return s.repo.List(ctx)
}

// Delete removes the file and soft-deletes the row. Its chunks stay in
// the index until the queued re-ingestion rebuilds it.
func (s *Service) Delete(ctx context.Context, id string) error {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.docsDir, doc.Name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	// Same as Upload: the deletion is committed, the trigger is best effort.
	_ = s.publishIngest(ctx)
	return nil
}

// RequestIngest queues a full re-ingestion run.
func (s *Service) RequestIngest(ctx context.Context) error {
	return s.publishIngest(ctx)
}

func (s *Service) publishIngest(ctx context.Context) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"correlation_id": middleware.GetCorrelationID(ctx),
	})
	if err := s.pub.Publish(config.TopicIngestRequest, payload); err != nil {
		slog.ErrorContext(ctx, "failed to publish ingest request", "error", err)
		return err
	}
	slog.InfoContext(ctx, "published ingest request")
	return nil
}

// Reconcile implements the ingestion recorder: rows for indexed files get
// their chunk counts, rows whose files vanished are marked missing.
func (s *Service) Reconcile(ctx context.Context, chunkCounts map[string]int) error {
	names := make([]string, 0, len(chunkCounts))
	for name, count := range chunkCounts {
		if err := s.repo.UpdateIndexed(ctx, name, count); err != nil {
			return err
		}
		names = append(names, name)
	}
	return s.repo.MarkMissingExcept(ctx, names)
}
