package worker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskmate/internal/ingest"
	"deskmate/internal/middleware"
	"deskmate/internal/worker"
)

type stubIngestor struct {
	report *ingest.Report
	err    error

	dirs []string
	ctxs []context.Context
}

func (s *stubIngestor) Run(ctx context.Context, dir string) (*ingest.Report, error) {
	s.dirs = append(s.dirs, dir)
	s.ctxs = append(s.ctxs, ctx)
	return s.report, s.err
}

type stubRecorder struct {
	reports []*ingest.Report
	runErrs []error
	err     error
}

func (s *stubRecorder) Record(ctx context.Context, report *ingest.Report, runErr error) error {
	s.reports = append(s.reports, report)
	s.runErrs = append(s.runErrs, runErr)
	return s.err
}

func TestIngestConsumer_HandleMessage(t *testing.T) {
	pipeline := &stubIngestor{report: &ingest.Report{FilesProcessed: 2, ChunksWritten: 40}}
	recorder := &stubRecorder{}
	consumer := worker.NewIngestConsumer(pipeline, recorder, "/data/docs")

	msg := &nsq.Message{Body: []byte(`{"correlation_id":"corr-123"}`)}
	require.NoError(t, consumer.HandleMessage(msg))

	require.Len(t, pipeline.dirs, 1)
	assert.Equal(t, "/data/docs", pipeline.dirs[0])
	assert.Equal(t, "corr-123", middleware.GetCorrelationID(pipeline.ctxs[0]))

	require.Len(t, recorder.reports, 1)
	assert.Equal(t, 2, recorder.reports[0].FilesProcessed)
	assert.NoError(t, recorder.runErrs[0])
}

func TestIngestConsumer_HandleMessage_EmptyBody(t *testing.T) {
	pipeline := &stubIngestor{report: &ingest.Report{}}
	consumer := worker.NewIngestConsumer(pipeline, &stubRecorder{}, "/data/docs")

	require.NoError(t, consumer.HandleMessage(&nsq.Message{}))
	assert.Len(t, pipeline.dirs, 1)
}

func TestIngestConsumer_HandleMessage_PoisonPill(t *testing.T) {
	pipeline := &stubIngestor{}
	consumer := worker.NewIngestConsumer(pipeline, &stubRecorder{}, "/data/docs")

	msg := &nsq.Message{Body: []byte("invalid json")}
	require.NoError(t, consumer.HandleMessage(msg))

	assert.Empty(t, pipeline.dirs, "a malformed request must not trigger a rebuild")
}

func TestIngestConsumer_HandleMessage_RunFailureStillRecorded(t *testing.T) {
	runErr := errors.New("embedding unavailable")
	pipeline := &stubIngestor{report: &ingest.Report{FilesProcessed: 1}, err: runErr}
	recorder := &stubRecorder{}
	consumer := worker.NewIngestConsumer(pipeline, recorder, "/data/docs")

	msg := &nsq.Message{Body: []byte(`{"correlation_id":"corr-9"}`)}
	require.NoError(t, consumer.HandleMessage(msg), "a failed run must finish the message, not requeue it")

	require.Len(t, recorder.reports, 1)
	assert.ErrorIs(t, recorder.runErrs[0], runErr)
}

func TestIngestConsumer_HandleMessage_RecorderFailureIgnored(t *testing.T) {
	pipeline := &stubIngestor{report: &ingest.Report{}}
	recorder := &stubRecorder{err: errors.New("db down")}
	consumer := worker.NewIngestConsumer(pipeline, recorder, "/data/docs")

	require.NoError(t, consumer.HandleMessage(&nsq.Message{Body: []byte(`{}`)}))
}
