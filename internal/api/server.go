// Package api exposes the HTTP interface for the hot-list service.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hotboard/internal/hotlist"
	"hotboard/internal/metrics"
	"hotboard/internal/scheduler"
)

// Pipeline triggers crawl passes on demand.
type Pipeline interface {
	RunAll(ctx context.Context) hotlist.IngestReport
	RunAdapter(ctx context.Context, key string) (hotlist.IngestReport, error)
	Keys() []string
}

// Jobs exposes scheduler controls to the ops endpoints.
type Jobs interface {
	Jobs() []scheduler.Status
	Pause(name string) error
	Resume(name string) error
	Trigger(ctx context.Context, name string) error
}

// ItemReader serves stored hot items. Satisfied by the Postgres store.
type ItemReader interface {
	ListItems(ctx context.Context, sourceName, categoryName string) ([]hotlist.StoredItem, time.Time, error)
	Ping(ctx context.Context) error
}

// Server wires HTTP handlers to the pipeline, scheduler and store.
type Server struct {
	router   chi.Router
	pipeline Pipeline
	jobs     Jobs
	items    ItemReader
	cache    hotlist.Cache
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(pipeline Pipeline, jobs Jobs, items ItemReader, cache hotlist.Cache, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		pipeline: pipeline,
		jobs:     jobs,
		items:    items,
		cache:    cache,
		logger:   logger.Named("api"),
	}

	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(2 * time.Minute))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/crawlers", s.listCrawlers)
		r.Post("/crawl/all", s.crawlAll)
		r.Post("/crawl/{adapter}", s.crawlOne)
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.listJobs)
			r.Post("/{name}/pause", s.pauseJob)
			r.Post("/{name}/resume", s.resumeJob)
			r.Post("/{name}/trigger", s.triggerJob)
		})
		r.Get("/hot/{source}/{category}", s.getHotList)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyz checks the write path (Postgres) and the read cache. A dead
// cache degrades reads but does not block ingestion, so it reports
// degraded rather than failing readiness outright.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.items.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"db":     err.Error(),
		})
		return
	}
	status := map[string]string{"status": "ready"}
	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			status["status"] = "degraded"
			status["cache"] = err.Error()
		}
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) listCrawlers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"crawlers": s.pipeline.Keys()})
}

func (s *Server) crawlAll(w http.ResponseWriter, r *http.Request) {
	report := s.pipeline.RunAll(r.Context())
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) crawlOne(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "adapter")
	report, err := s.pipeline.RunAdapter(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) listJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"jobs": s.jobs.Jobs()})
}

func (s *Server) pauseJob(w http.ResponseWriter, r *http.Request) {
	s.jobControl(w, r, s.jobs.Pause, "paused")
}

func (s *Server) resumeJob(w http.ResponseWriter, r *http.Request) {
	s.jobControl(w, r, s.jobs.Resume, "resumed")
}

func (s *Server) jobControl(w http.ResponseWriter, r *http.Request, op func(string) error, state string) {
	name := chi.URLParam(r, "name")
	if err := op(name); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"job": name, "status": state})
}

func (s *Server) triggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	err := s.jobs.Trigger(r.Context(), name)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"job": name, "status": "completed"})
	case errors.Is(err, scheduler.ErrUnknownJob):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, scheduler.ErrJobBusy):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) getHotList(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	category := chi.URLParam(r, "category")

	items, freshest, err := s.items.ListItems(r.Context(), source, category)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch hot list")
		return
	}
	if len(items) == 0 {
		writeError(w, http.StatusNotFound, "no items for this source and category")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source":     source,
		"category":   category,
		"crawled_at": freshest,
		"items":      items,
	})
}
