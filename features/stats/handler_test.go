package stats_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskmate/features/stats"
)

type stubCounter struct {
	n   int
	err error
}

func (s *stubCounter) Count(ctx context.Context) (int, error) {
	return s.n, s.err
}

func TestHandler_GetStats(t *testing.T) {
	h := stats.NewHandler(&stubCounter{n: 4}, &stubCounter{n: 123})

	rec := httptest.NewRecorder()
	h.GetStats(rec, httptest.NewRequest("GET", "/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]stats.StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 4, body["data"].Documents)
	assert.Equal(t, 123, body["data"].Chunks)
}

func TestHandler_GetStats_DocumentCountFails(t *testing.T) {
	h := stats.NewHandler(&stubCounter{err: errors.New("db gone")}, &stubCounter{})

	rec := httptest.NewRecorder()
	h.GetStats(rec, httptest.NewRequest("GET", "/stats", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestHandler_GetStats_ChunkCountFails(t *testing.T) {
	h := stats.NewHandler(&stubCounter{n: 1}, &stubCounter{err: errors.New("index gone")})

	rec := httptest.NewRecorder()
	h.GetStats(rec, httptest.NewRequest("GET", "/stats", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
