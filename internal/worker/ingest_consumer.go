// Package worker hosts the NSQ message handlers.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nsqio/go-nsq"

	"deskmate/internal/ingest"
	"deskmate/internal/middleware"
)

// IngestRequest is the payload published when a rebuild is requested.
type IngestRequest struct {
	CorrelationID string `json:"correlation_id"`
}

type Ingestor interface {
	Run(ctx context.Context, sourceDir string) (*ingest.Report, error)
}

// RunRecorder persists the outcome of a rebuild, successful or not.
type RunRecorder interface {
	Record(ctx context.Context, report *ingest.Report, runErr error) error
}

// IngestConsumer rebuilds the vector index when a request message arrives.
// The consumer must run with MaxInFlight=1: a rebuild wipes the index
// before writing, so two overlapping runs would corrupt each other.
type IngestConsumer struct {
	pipeline Ingestor
	runs     RunRecorder
	docsDir  string
}

func NewIngestConsumer(pipeline Ingestor, runs RunRecorder, docsDir string) *IngestConsumer {
	return &IngestConsumer{
		pipeline: pipeline,
		runs:     runs,
		docsDir:  docsDir,
	}
}

// HandleMessage always finishes the message. A failed rebuild is recorded
// as a failed run rather than requeued; retrying a full wipe-and-rebuild
// automatically would just repeat the same failure against a live index.
func (h *IngestConsumer) HandleMessage(m *nsq.Message) error {
	ctx := context.Background()

	if len(m.Body) > 0 {
		var payload IngestRequest
		if err := json.Unmarshal(m.Body, &payload); err != nil {
			// Poison Pill: Invalid JSON, don't retry
			slog.Error("poison pill: invalid json", "error", err)
			return nil
		}
		if payload.CorrelationID != "" {
			ctx = middleware.WithCorrelationID(ctx, payload.CorrelationID)
		}
	}

	report, err := h.pipeline.Run(ctx, h.docsDir)
	if err != nil {
		slog.ErrorContext(ctx, "ingestion run failed", "error", err)
	}

	if h.runs != nil {
		if recErr := h.runs.Record(ctx, report, err); recErr != nil {
			slog.ErrorContext(ctx, "failed to record ingestion run", "error", recErr)
		}
	}
	return nil
}
