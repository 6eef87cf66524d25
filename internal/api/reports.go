package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/esg-insight/internal/apperr"
	"github.com/sells-group/esg-insight/internal/config"
	"github.com/sells-group/esg-insight/internal/report"
)

// ReportsServer is the report-drafting HTTP API, served on its own port.
type ReportsServer struct {
	cfg    *config.Config
	svc    *report.Service
	router chi.Router
}

// NewReportsServer wires the drafting server around a report service.
func NewReportsServer(cfg *config.Config, svc *report.Service) *ReportsServer {
	s := &ReportsServer{cfg: cfg, svc: svc}
	s.router = s.buildRouter()
	return s
}

// Router exposes the chi router for tests.
func (s *ReportsServer) Router() chi.Router { return s.router }

// ListenAndServe runs the server until ctx is cancelled.
func (s *ReportsServer) ListenAndServe(ctx context.Context) error {
	return serve(ctx, fmt.Sprintf(":%d", s.cfg.Server.ReportsPort), s.router, s.cfg.Server.ShutdownSecs)
}

func (s *ReportsServer) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	// Drafting calls block on the LLM; the timeout follows the LLM budget
	// rather than the analytics default.
	r.Use(middleware.Timeout(time.Duration(s.cfg.Anthropic.TimeoutSecs) * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", handleHealth)

	r.Route("/reports", func(r chi.Router) {
		r.Post("/fetch-data", s.handleFetchData)
		r.Post("/infer-required-data", s.handleInferRequiredData)
		r.Post("/generate-draft", s.handleGenerateDraft)
		r.Post("/summarize-indicator", s.handleSummarizeIndicator)
		r.Post("/draft", s.handleSaveDraft)
		r.Get("/draft", s.handleLoadDraft)
		r.Delete("/draft", s.handleDeleteDraft)
	})

	return r
}

func (s *ReportsServer) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, int64(s.cfg.Server.MaxRequestBytes))
	if err := json.NewDecoder(body).Decode(v); err != nil {
		writeError(w, apperr.InvalidArgument("invalid request body"))
		return false
	}
	return true
}

func (s *ReportsServer) handleFetchData(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic      string               `json:"topic"`
		Company    string               `json:"company"`
		Department string               `json:"department"`
		History    []report.HistoryItem `json:"history"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.svc.FetchData(r.Context(), req.Topic, req.Company, req.Department, req.History)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *ReportsServer) handleInferRequiredData(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic      string   `json:"topic"`
		Chunks     []string `json:"chunks"`
		TableTexts []string `json:"table_texts"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.svc.InferRequiredData(r.Context(), req.Topic, req.Chunks, req.TableTexts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *ReportsServer) handleGenerateDraft(w http.ResponseWriter, r *http.Request) {
	var req report.DraftRequest
	if !s.decode(w, r, &req) {
		return
	}

	draft, err := s.svc.GenerateDraft(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"draft": draft})
}

func (s *ReportsServer) handleSummarizeIndicator(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic  string   `json:"topic"`
		Chunks []string `json:"chunks"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	summary, err := s.svc.SummarizeIndicator(r.Context(), req.Topic, req.Chunks)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (s *ReportsServer) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic   string `json:"topic"`
		Company string `json:"company"`
		Draft   string `json:"draft"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.svc.SaveDraft(r.Context(), req.Topic, req.Company, req.Draft); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *ReportsServer) handleLoadDraft(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	body, err := s.svc.LoadDraft(r.Context(), q.Get("topic"), q.Get("company"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"draft": body})
}

func (s *ReportsServer) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if err := s.svc.DeleteDraft(r.Context(), q.Get("topic"), q.Get("company")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
