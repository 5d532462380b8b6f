package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aluiziolira/go-scrape-catalog/archive"
	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/scraper"
	"github.com/aluiziolira/go-scrape-catalog/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStarter struct {
	tr    *tracker.Tracker
	id    string
	err   error
	calls int
}

func (s *stubStarter) Start(ctx context.Context) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if err := s.tr.Reset(s.id); err != nil {
		return "", err
	}
	return s.id, nil
}

func newTestServer(t *testing.T) (*Server, *stubStarter, *tracker.Tracker, *archive.Archive) {
	t.Helper()
	tr := tracker.New()
	arch, err := archive.New(4)
	require.NoError(t, err)
	starter := &stubStarter{tr: tr, id: "job-1"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(context.Background(), starter, tr, arch, scraper.NewMetrics().Registry, "catalog.csv", logger)
	return srv, starter, tr, arch
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestStartAndConflict(t *testing.T) {
	srv, starter, tr, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/scrape")
	require.Equal(t, http.StatusAccepted, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "started", body["status"])
	assert.Equal(t, "job-1", body["jobId"])

	tr.SetTotalPages(5)
	tr.IncrementScrapedPages()

	starter.id = "job-2"
	rec = do(t, srv, http.MethodPost, "/api/scrape")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "job already running")

	s := tr.Snapshot()
	assert.Equal(t, "job-1", s.JobID)
	assert.Equal(t, 5, s.TotalPages)
	assert.Equal(t, 1, s.ScrapedPages)
	assert.Equal(t, 2, starter.calls)
}

func TestStartUnexpectedError(t *testing.T) {
	srv, starter, _, _ := newTestServer(t)
	starter.err = errors.New("boom")

	rec := do(t, srv, http.MethodPost, "/api/scrape")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStartRequiresPost(t *testing.T) {
	srv, starter, _, _ := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/api/scrape")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Zero(t, starter.calls)
}

func TestProgressDocument(t *testing.T) {
	srv, _, tr, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/progress")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"idle","totalPages":0,"scrapedPages":0,"totalItems":0,"scrapedItems":0,"keptItems":0}`, rec.Body.String())

	require.NoError(t, tr.Reset("job-9"))
	tr.SetTotalPages(2)
	tr.IncrementScrapedPages()
	tr.SetTotalItems(10)
	tr.IncrementScrapedItems(true)

	rec = do(t, srv, http.MethodGet, "/api/progress")
	require.Equal(t, http.StatusOK, rec.Code)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "in_progress", doc["status"])
	assert.Equal(t, "job-9", doc["jobId"])
	assert.EqualValues(t, 2, doc["totalPages"])
	assert.EqualValues(t, 1, doc["scrapedPages"])
	assert.EqualValues(t, 10, doc["totalItems"])
	assert.EqualValues(t, 1, doc["scrapedItems"])
	assert.NotContains(t, doc, "export")
}

func TestExportLifecycle(t *testing.T) {
	srv, _, tr, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/export")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "export not ready")

	require.NoError(t, tr.Reset("job-1"))
	rec = do(t, srv, http.MethodGet, "/api/export")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	data := []byte("\xef\xbb\xbfsku,itemName,itemUrl,price\nS1,Teapot,http://example.test/item/A1,1200\n")
	tr.Finish(data)

	rec = do(t, srv, http.MethodGet, "/api/export")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="catalog.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, data, rec.Body.Bytes())
}

func TestFailedJobHasNoExport(t *testing.T) {
	srv, _, tr, _ := newTestServer(t)
	require.NoError(t, tr.Reset("job-1"))
	tr.Fail("fetch http://example.test: timeout")

	rec := do(t, srv, http.MethodGet, "/api/export")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/progress")
	assert.Contains(t, rec.Body.String(), `"status":"failed"`)
	assert.Contains(t, rec.Body.String(), "timeout")
}

func TestArchivedJobs(t *testing.T) {
	srv, _, tr, arch := newTestServer(t)
	arch.Add(models.JobState{JobID: "old", Status: models.StatusFinished, Export: []byte("old-export")})
	arch.Add(models.JobState{JobID: "bad", Status: models.StatusFailed, Reason: "boom"})
	require.NoError(t, tr.Reset("live"))

	rec := do(t, srv, http.MethodGet, "/api/jobs")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.JobState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "bad", list[0].JobID)

	rec = do(t, srv, http.MethodGet, "/api/jobs/old/export")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "old-export", rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/jobs/bad/export")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/jobs/live")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"in_progress"`)

	rec = do(t, srv, http.MethodGet, "/api/jobs/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "catalog_request_duration_seconds")
}
