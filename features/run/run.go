// Package run keeps a history of ingestion runs: what was indexed, what
// failed and how long it took.
package run

import (
	"encoding/json"
	"time"

	"deskmate/internal/ingest"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type Run struct {
	ID             string          `json:"id"`
	Status         string          `json:"status"`
	FilesProcessed int             `json:"files_processed"`
	ChunksWritten  int             `json:"chunks_written"`
	Errors         json.RawMessage `json:"errors,omitempty"`
	DurationMs     int64           `json:"duration_ms"`
	CreatedAt      time.Time       `json:"created_at"`
}

// FromReport converts a pipeline report into a completed run row.
func FromReport(report *ingest.Report, runErr error) *Run {
	r := &Run{Status: StatusCompleted}
	if runErr != nil {
		r.Status = StatusFailed
	}
	if report == nil {
		return r
	}

	r.FilesProcessed = report.FilesProcessed
	r.ChunksWritten = report.ChunksWritten
	r.DurationMs = report.Duration.Milliseconds()
	if len(report.Errors) > 0 {
		raw, err := json.Marshal(report.Errors)
		if err == nil {
			r.Errors = raw
		}
	}
	return r
}
