// Package api serves the agents and the underlying data over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rahul/estate/internal/agent"
	"github.com/rahul/estate/internal/data"
	"github.com/rahul/estate/internal/observability"
)

const (
	serviceName = "UK Estate Agency AI - Multi-Agent System"
	version     = "1.0.0"
)

// Config holds what the server exposes.
type Config struct {
	Addr    string
	DataDir string
	Manager *agent.Manager
	Store   *data.Store
	Status  *observability.Status
	Metrics *observability.Metrics
}

type Server struct {
	cfg        Config
	httpServer *http.Server
}

func NewServer(cfg Config) *Server {
	return &Server{cfg: cfg}
}

// Start blocks serving HTTP until Stop is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🌐 HTTP Server starting on %s", s.cfg.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	log.Printf("Shutting down HTTP server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown http server: %w", err)
	}
	return nil
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: log.Default(), NoColor: true}))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Get("/status", s.handleStatus)
	r.Get("/debug/data", s.handleDebugData)

	r.Get("/agents", s.handleListAgents)
	r.Post("/agents/{name}", s.handleAgentAction)
	r.Post("/query", s.handleQuery)

	r.Route("/data", func(r chi.Router) {
		for _, k := range []struct {
			path  string
			kind  data.Kind
			label string
		}{
			{"properties", data.KindProperty, "Property"},
			{"buyers", data.KindBuyer, "Buyer"},
			{"vendors", data.KindVendor, "Vendor"},
			{"employees", data.KindEmployee, "Employee"},
		} {
			r.Get("/"+k.path, s.handleList(k.kind))
			r.Get("/"+k.path+"/{id}", s.handleGet(k.kind, k.label))
		}
		r.Post("/properties/search", s.handleSearch(data.KindProperty))
		r.Post("/buyers/search", s.handleSearch(data.KindBuyer))
		r.Get("/buyers/hot", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"data": s.cfg.Store.HotBuyers()})
		})
		r.Post("/reload", s.handleReload)
	})

	r.Get("/plans", s.handlePlans)
	r.Get("/plans/{id}", s.handlePlan)
	r.Get("/plans/{id}/steps", s.handlePlanSteps)

	r.Get("/history", s.handleHistory)
	r.Delete("/history", s.handleClearHistory)

	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": s.cfg.Store.Metrics()})
	})
	if s.cfg.Metrics != nil {
		r.Get("/metrics/prometheus", s.cfg.Metrics.Handler().ServeHTTP)
	}

	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	var names []string
	for _, p := range s.cfg.Manager.ListAgents() {
		names = append(names, p.Name)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "running",
		"service": serviceName,
		"version": version,
		"agents":  names,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Status == nil {
		writeJSON(w, http.StatusOK, map[string]string{"role": string(observability.RoleIdle)})
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Status.Snapshot())
}

var debugTables = []string{
	data.TableProperties,
	data.TableVendors,
	data.TableBuyers,
	data.TableEmployees,
	data.TableExecutionPlans,
}

func (s *Server) handleDebugData(w http.ResponseWriter, r *http.Request) {
	base := s.cfg.DataDir
	if abs, err := filepath.Abs(base); err == nil {
		base = abs
	}
	_, statErr := os.Stat(base)

	files := make(map[string]any, len(debugTables))
	for _, name := range debugTables {
		t := s.cfg.Store.Tables().Load(name)
		if t.Err != nil {
			files[name] = map[string]any{"loaded": false, "error": t.Err.Error()}
			continue
		}
		cols := t.Columns
		if len(cols) > 5 {
			cols = cols[:5]
		}
		if cols == nil {
			cols = []string{}
		}
		files[name] = map[string]any{
			"loaded":  true,
			"records": len(t.Records),
			"columns": cols,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data_base_path":   base,
		"data_base_exists": statErr == nil,
		"files":            files,
	})
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"agents": s.cfg.Manager.ListAgents()})
}

type queryRequest struct {
	Query           string         `json:"query"`
	Context         map[string]any `json:"context"`
	RequireApproval *bool          `json:"require_approval"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	requireApproval := true
	if req.RequireApproval != nil {
		requireApproval = *req.RequireApproval
	}

	resp := s.cfg.Manager.ProcessQuery(r.Context(), agent.Request{
		Query:           req.Query,
		Context:         req.Context,
		RequireApproval: requireApproval,
	})
	writeJSON(w, http.StatusOK, resp)
}

type actionRequest struct {
	Action  string         `json:"action"`
	Context map[string]any `json:"context"`
}

func (s *Server) handleAgentAction(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !agent.Dispatchable(name) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Agent '%s' not found", name))
		return
	}

	var req actionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Action == "" {
		writeError(w, http.StatusBadRequest, "action is required")
		return
	}

	decision, err := s.cfg.Manager.Authorize(r.Context(), name, req.Action)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !decision.Allowed() {
		writeError(w, http.StatusForbidden, decision.Reason)
		return
	}

	a, ok := s.cfg.Manager.Agent(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Agent '%s' not found", name))
		return
	}
	writeJSON(w, http.StatusOK, a.Execute(r.Context(), req.Action, req.Context))
}

func (s *Server) handleList(kind data.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": nonNil(s.cfg.Store.All(kind))})
	}
}

func (s *Server) handleGet(kind data.Kind, label string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := s.cfg.Store.Get(kind, chi.URLParam(r, "id"))
		if !ok {
			writeError(w, http.StatusNotFound, label+" not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": rec})
	}
}

type searchRequest struct {
	Criteria map[string]any `json:"criteria"`
}

func (s *Server) handleSearch(kind data.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Criteria == nil {
			writeError(w, http.StatusBadRequest, "criteria is required")
			return
		}
		results := nonNil(s.cfg.Store.Search(kind, data.Criteria(req.Criteria)))
		writeJSON(w, http.StatusOK, map[string]any{"count": len(results), "data": results})
	}
}

type reloadRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	var req reloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	tables := s.cfg.Store.Tables()
	if req.Name == "" {
		tables.ReloadAll()
		writeJSON(w, http.StatusOK, map[string]any{"status": "reloaded", "tables": "all"})
		return
	}
	if _, ok := tables.Path(req.Name); !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown table '%s'", req.Name))
		return
	}
	t := tables.Reload(req.Name)
	writeJSON(w, http.StatusOK, map[string]any{"status": "reloaded", "tables": req.Name, "records": len(t.Records)})
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"data": nonNil(s.cfg.Store.ExecutionPlans())})
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	plan, ok := s.cfg.Store.ExecutionPlan(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Plan not found")
		return
	}
	plan["steps"] = nonNil(s.cfg.Store.ExecutionSteps(id))
	writeJSON(w, http.StatusOK, map[string]any{"data": plan})
}

func (s *Server) handlePlanSteps(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	steps := nonNil(s.cfg.Store.ExecutionSteps(id))
	writeJSON(w, http.StatusOK, map[string]any{"plan_id": id, "count": len(steps), "steps": steps})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.cfg.Manager.History(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		writeJSON(w, http.StatusOK, map[string]any{"history": []any{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.Manager.ClearHistory(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Warning: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func nonNil(recs []data.Record) []data.Record {
	if recs == nil {
		return []data.Record{}
	}
	return recs
}
