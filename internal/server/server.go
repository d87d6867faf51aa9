// Package server exposes a strategy document over HTTP for external
// collaborators: export, import with re-validation, dry-run connection
// checks, and cached SVG rendering.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fbecker/strategraph/pkg/cache"
	"github.com/fbecker/strategraph/pkg/errors"
	"github.com/fbecker/strategraph/pkg/geometry"
	"github.com/fbecker/strategraph/pkg/graph"
	"github.com/fbecker/strategraph/pkg/observability"
	"github.com/fbecker/strategraph/pkg/render"
	"github.com/fbecker/strategraph/pkg/store"
	"github.com/fbecker/strategraph/pkg/strategy"
)

// Config carries the collaborators and settings for a Server.
type Config struct {
	// Address is the listen address, e.g. ":8787".
	Address string

	// Store persists the served document. Required.
	Store store.Store

	// DocID selects the stored document to serve. When empty, the server
	// starts with an empty draft and creates a document on first import.
	DocID string

	// Artifacts caches rendered SVG output keyed by document content.
	// A nil value disables caching.
	Artifacts cache.Cache

	// ArtifactTTL bounds the lifetime of cached renders.
	ArtifactTTL time.Duration

	// CleanupSchedule is a cron expression for periodic maintenance
	// (draft cleanup, cache sweeping). Empty disables the schedule.
	CleanupSchedule string

	// DraftRetention is how long unnamed drafts survive between
	// maintenance runs.
	DraftRetention time.Duration

	// Logger receives request and maintenance logs. A nil value uses
	// the default logger.
	Logger *log.Logger
}

// Server serves one strategy document over HTTP. All graph access is
// serialized through an internal mutex since the manager itself is
// single-writer.
type Server struct {
	cfg    Config
	logger *log.Logger

	mu   sync.Mutex
	mgr  *graph.Manager
	doc  *store.Document // backing store record, nil until first save
	keys cache.Keyer

	registry *prometheus.Registry
	metrics  *Metrics

	httpSrv *http.Server
	maint   *maintenance
}

// New creates a Server and loads the configured document from the store.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "server requires a document store")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	if cfg.Artifacts == nil {
		cfg.Artifacts = cache.NewNullCache()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	s := &Server{
		cfg:    cfg,
		logger: logger,
		mgr: graph.New(
			graph.WithCompatibilityChecker(strategy.Checker{}),
			graph.WithDimensions(strategy.Dimensions),
		),
		keys:     cache.NewDefaultKeyer(),
		registry: registry,
		metrics:  NewMetrics(registry),
	}
	s.metrics.RegisterHooks()

	if cfg.DocID != "" {
		doc, err := cfg.Store.Get(context.Background(), cfg.DocID)
		if err != nil {
			return nil, err
		}
		if err := s.mgr.LoadDocument(doc.Graph); err != nil {
			return nil, err
		}
		s.doc = doc
	}

	s.httpSrv = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the HTTP routing tree. Exposed for tests.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/graph", s.handleGetGraph)
		r.Post("/graph", s.handlePostGraph)
		r.Post("/graph/validate", s.handleValidate)
		r.Get("/render/svg", s.handleRenderSVG)
	})
	return r
}

// Run starts the HTTP listener and the maintenance schedule, blocking
// until ctx is cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.CleanupSchedule != "" {
		m, err := startMaintenance(s)
		if err != nil {
			return err
		}
		s.maint = m
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "address", s.cfg.Address)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down")
		if s.maint != nil {
			s.maint.stop()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if s.maint != nil {
			s.maint.stop()
		}
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// ============================================================================
// Handlers
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleGetGraph returns the current document.
func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	doc := s.mgr.ExportDocument()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, doc)
}

// importResult reports what survived an import.
type importResult struct {
	Nodes       int `json:"nodes"`
	Connections int `json:"connections"`
	Dropped     int `json:"dropped"`
}

// handlePostGraph replaces the document with the posted one. Connections
// are re-validated on load; invalid edges are dropped and counted.
func (s *Server) handlePostGraph(w http.ResponseWriter, r *http.Request) {
	var doc graph.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid document body: %v", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mgr.LoadDocument(doc); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	loaded := s.mgr.ExportDocument()

	if err := s.persist(r.Context(), loaded); err != nil {
		s.logger.Error("Persist failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to persist document")
		return
	}

	writeJSON(w, http.StatusOK, importResult{
		Nodes:       len(loaded.Nodes),
		Connections: len(loaded.Connections),
		Dropped:     len(doc.Connections) - len(loaded.Connections),
	})
}

// persist writes the document back to the store. Callers hold s.mu.
func (s *Server) persist(ctx context.Context, doc graph.Document) error {
	if s.doc == nil {
		s.doc = store.New("", doc)
	}
	s.doc.Graph = doc
	return s.cfg.Store.Put(ctx, s.doc)
}

// validateRequest is the body of POST /api/graph/validate.
type validateRequest struct {
	Source       string              `json:"source"`
	SourceHandle geometry.HandleKind `json:"source_handle"`
	Target       string              `json:"target"`
	TargetHandle geometry.HandleKind `json:"target_handle"`
}

// handleValidate dry-runs a connection against the current graph without
// committing anything.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.SourceHandle == "" {
		req.SourceHandle = geometry.HandleOutput
	}
	if req.TargetHandle == "" {
		req.TargetHandle = geometry.HandleInput
	}

	s.mu.Lock()
	result := s.mgr.ValidateConnection(req.Source, req.SourceHandle, req.Target, req.TargetHandle)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, result)
}

// handleRenderSVG renders the current document as SVG, consulting the
// artifact cache first. Query parameters: view=canvas|diagram,
// detailed=true.
func (s *Server) handleRenderSVG(w http.ResponseWriter, r *http.Request) {
	view := r.URL.Query().Get("view")
	if view == "" {
		view = "canvas"
	}
	if view != "canvas" && view != "diagram" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown view %q", view))
		return
	}
	detailed := r.URL.Query().Get("detailed") == "true"

	s.mu.Lock()
	doc := s.mgr.ExportDocument()
	s.mu.Unlock()

	key := s.keys.ArtifactKey(cache.DocumentHash(doc), cache.ArtifactKeyOpts{
		View:     view,
		Format:   "svg",
		Detailed: detailed,
	})
	if data, ok, err := s.cfg.Artifacts.Get(r.Context(), key); err == nil && ok {
		observability.Cache().OnCacheHit(r.Context(), "artifact")
		writeSVG(w, data)
		return
	}
	observability.Cache().OnCacheMiss(r.Context(), "artifact")

	data, err := renderView(doc, view, detailed)
	if err != nil {
		s.logger.Error("Render failed", "view", view, "error", err)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	if err := s.cfg.Artifacts.Set(r.Context(), key, data, s.cfg.ArtifactTTL); err == nil {
		observability.Cache().OnCacheSet(r.Context(), "artifact", len(data))
	}
	writeSVG(w, data)
}

// renderView produces an SVG for either the positioned canvas or the
// auto-laid-out diagram.
func renderView(doc graph.Document, view string, detailed bool) ([]byte, error) {
	if view == "diagram" {
		dot := render.ToDOT(doc, render.DOTOptions{Detailed: detailed})
		return render.RenderDOTSVG(dot)
	}
	svg := render.RenderSVG(graph.Snapshot{
		Nodes:       doc.Nodes,
		Connections: doc.Connections,
		Canvas:      doc.Canvas,
	}, render.WithDimensions(strategy.Dimensions))
	return svg, nil
}

// ============================================================================
// Response helpers
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Default().Error("Response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeSVG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// requestLogger logs each request with its duration at debug level.
func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("Request",
				"method", r.Method,
				"path", r.URL.Path,
				"duration", time.Since(start))
		})
	}
}
