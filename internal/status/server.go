// Package status implements the optional, read-only HTTP status
// server, ported from internal/api/router.go (teacher): the same
// go-chi + go-chi/cors + middleware stack, trimmed to the handful of
// read-only routes this module's diagnostics exposes rather than the
// teacher's full project-management REST surface.
package status

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/foundryrun/harvest/pkg/core"
)

// View is the state the status server reports. Embedders (cmd/harvest,
// internal/mcpsrv) update it via Store with the final IR of each
// finished pipeline run; it does not change during a run.
type View struct {
	mu             sync.RWMutex
	ir             *core.HarvestIR
	irVersion      uint64
	diagnosticsDir string
}

// NewView constructs an empty View reporting diagnosticsDir as its
// fixed diagnostics root.
func NewView(diagnosticsDir string) *View {
	return &View{diagnosticsDir: diagnosticsDir}
}

// Store records the latest IR snapshot and version, called by the
// embedder after each finished pipeline run.
func (v *View) Store(ir *core.HarvestIR, version uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ir = ir
	v.irVersion = version
}

// Snapshot returns the most recently stored IR and its version.
func (v *View) Snapshot() (*core.HarvestIR, uint64) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ir, v.irVersion
}

// Server is the status HTTP server.
type Server struct {
	cfg    *core.Config
	view   *View
	router chi.Router
}

// NewServer creates a status Server reading from view, with CORS
// restricted to cfg.Status.AllowOrigins, or to http://localhost:* and
// http://127.0.0.1:* when that list is empty.
func NewServer(cfg *core.Config, view *View) *Server {
	s := &Server{cfg: cfg, view: view}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	allowed := s.cfg.Status.AllowOrigins
	if len(allowed) == 0 {
		allowed = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Accept"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/ir", s.handleIR)
	r.Get("/ir/versions", s.handleIRVersions)
	r.Get("/steps", s.handleSteps)

	s.router = r
}

// Handler returns the HTTP handler, for embedding in an *http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

type irEntry struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
	Text string `json:"text"`
}

type irResponse struct {
	Version uint64    `json:"version"`
	Entries []irEntry `json:"entries"`
}

func (s *Server) handleIR(w http.ResponseWriter, r *http.Request) {
	ir, version := s.view.Snapshot()
	resp := irResponse{Version: version}
	if ir != nil {
		for _, p := range ir.Iter() {
			resp.Entries = append(resp.Entries, irEntry{
				ID:   uint64(p.ID),
				Name: p.Repr.Name(),
				Text: p.Repr.String(),
			})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type versionsResponse struct {
	Versions []string `json:"versions"`
}

func (s *Server) handleIRVersions(w http.ResponseWriter, r *http.Request) {
	dir := filepath.Join(s.view.diagnosticsDir, "ir")
	entries, err := os.ReadDir(dir)
	if err != nil {
		writeJSON(w, http.StatusOK, versionsResponse{})
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	writeJSON(w, http.StatusOK, versionsResponse{Versions: names})
}

type stepsResponse struct {
	Steps []string `json:"steps"`
}

func (s *Server) handleSteps(w http.ResponseWriter, r *http.Request) {
	dir := filepath.Join(s.view.diagnosticsDir, "steps")
	entries, err := os.ReadDir(dir)
	if err != nil {
		writeJSON(w, http.StatusOK, stepsResponse{})
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	writeJSON(w, http.StatusOK, stepsResponse{Steps: names})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
