// Package server exposes scrape jobs over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aluiziolira/go-scrape-catalog/archive"
	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/pipeline"
	"github.com/aluiziolira/go-scrape-catalog/tracker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// JobStarter starts a background scrape job.
type JobStarter interface {
	Start(ctx context.Context) (string, error)
}

// Server routes trigger, progress and export requests.
type Server struct {
	mux            *http.ServeMux
	jobCtx         context.Context
	starter        JobStarter
	tracker        *tracker.Tracker
	archive        *archive.Archive
	exportFilename string
	logger         *slog.Logger
}

// New builds the HTTP handler. jobCtx is handed to every started job so jobs
// outlive the request that triggered them. arch and registry may be nil.
func New(jobCtx context.Context, starter JobStarter, tr *tracker.Tracker, arch *archive.Archive, registry *prometheus.Registry, exportFilename string, logger *slog.Logger) *Server {
	s := &Server{
		mux:            http.NewServeMux(),
		jobCtx:         jobCtx,
		starter:        starter,
		tracker:        tr,
		archive:        arch,
		exportFilename: exportFilename,
		logger:         logger.With("component", "api_server"),
	}
	s.registerRoutes(registry)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes(registry *prometheus.Registry) {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	s.mux.HandleFunc("POST /api/scrape", s.handleStart)
	s.mux.HandleFunc("GET /api/progress", s.handleProgress)
	s.mux.HandleFunc("GET /api/export", s.handleExport)

	s.mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	s.mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	s.mux.HandleFunc("GET /api/jobs/{id}/export", s.handleJobExport)

	if registry != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	jobID, err := s.starter.Start(s.jobCtx)
	if errors.Is(err, tracker.ErrJobRunning) {
		s.jsonResponse(w, http.StatusConflict, map[string]string{"error": "job already running"})
		return
	}
	if err != nil {
		s.logger.Error("starting job failed", slog.Any("error", err))
		s.jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.logger.Info("job triggered", slog.String("job_id", jobID), slog.String("remote", r.RemoteAddr))
	s.jsonResponse(w, http.StatusAccepted, map[string]string{"status": "started", "jobId": jobID})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.tracker.Snapshot())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.tracker.Export()
	if err != nil {
		s.jsonResponse(w, http.StatusNotFound, map[string]string{"error": "export not ready"})
		return
	}
	s.csvResponse(w, data)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		s.jsonResponse(w, http.StatusOK, []models.JobState{})
		return
	}
	s.jsonResponse(w, http.StatusOK, s.archive.List())
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	state, ok := s.lookupJob(r.PathValue("id"))
	if !ok {
		s.jsonResponse(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	s.jsonResponse(w, http.StatusOK, state)
}

func (s *Server) handleJobExport(w http.ResponseWriter, r *http.Request) {
	state, ok := s.lookupJob(r.PathValue("id"))
	if !ok {
		s.jsonResponse(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	if !state.HasExport() {
		s.jsonResponse(w, http.StatusNotFound, map[string]string{"error": "export not ready"})
		return
	}
	s.csvResponse(w, state.Export)
}

// lookupJob checks the live tracker first so the current job is always visible.
func (s *Server) lookupJob(id string) (models.JobState, bool) {
	if current := s.tracker.Snapshot(); id != "" && current.JobID == id {
		return current, true
	}
	if s.archive == nil {
		return models.JobState{}, false
	}
	state, err := s.archive.Get(id)
	if err != nil {
		return models.JobState{}, false
	}
	return state, true
}

func (s *Server) csvResponse(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", pipeline.ExportContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.exportFilename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Debug("writing export response failed", slog.Any("error", err))
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Debug("writing json response failed", slog.Any("error", err))
	}
}
