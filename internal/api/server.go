package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wharfside/deepresearch/internal/config"
	"github.com/wharfside/deepresearch/internal/events"
	"github.com/wharfside/deepresearch/internal/export"
	"github.com/wharfside/deepresearch/internal/report"
	"github.com/wharfside/deepresearch/internal/store"
)

type Server struct {
	store  store.Store
	broker Broker
	tasks  TaskService
	cfg    config.Config
}

type Broker interface {
	Publish(event events.ProgressEvent)
	Subscribe(ctx context.Context, researchID string) <-chan events.ProgressEvent
}

// TaskService starts and cancels background research tasks.
type TaskService interface {
	Start(ctx context.Context, prompt string) (*store.ResearchRun, error)
	Cancel(researchID string) bool
}

func NewServer(store store.Store, broker Broker, tasks TaskService, cfg config.Config) *Server {
	return &Server{
		store:  store,
		broker: broker,
		tasks:  tasks,
		cfg:    cfg,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(quietRequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Post("/research", s.startResearch)
	r.Get("/research", s.listResearch)
	r.Get("/research/{id}", s.getResearch)
	r.Post("/research/{id}/cancel", s.cancelResearch)
	r.Get("/research/{id}/events", s.streamEvents)
	r.Get("/research/{id}/report", s.getReport)
	r.Get("/research/{id}/report.pdf", s.exportReportPDF)
	r.Get("/health", s.health)
	r.Get("/ready", s.ready)

	imagesDir := filepath.Join(s.cfg.ReportDir, "images")
	r.Handle("/images/*", http.StripPrefix("/images/", http.FileServer(http.Dir(imagesDir))))

	return r
}

func quietRequestLogger(next http.Handler) http.Handler {
	logged := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shouldSuppressRequestLog(r.Method, r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		logged.ServeHTTP(w, r)
	})
}

func shouldSuppressRequestLog(method string, path string) bool {
	cleanPath := strings.TrimSpace(path)
	if method == http.MethodGet && strings.HasSuffix(cleanPath, "/events") {
		return true
	}
	if method == http.MethodGet && (cleanPath == "/research" || strings.HasPrefix(cleanPath, "/images/")) {
		return true
	}
	return false
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type subsystemStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status     string                     `json:"status"`
	Subsystems map[string]subsystemStatus `json:"subsystems"`
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	subsystems := map[string]subsystemStatus{}
	overall := http.StatusOK

	if _, err := s.store.ListResearchRuns(ctx); err != nil {
		subsystems["store"] = subsystemStatus{Status: "error", Error: err.Error()}
		overall = http.StatusServiceUnavailable
	} else {
		subsystems["store"] = subsystemStatus{Status: "ok"}
	}

	if strings.TrimSpace(s.cfg.ProjectEndpoint) == "" {
		subsystems["agent_runtime"] = subsystemStatus{Status: "error", Error: "PROJECT_ENDPOINT not configured"}
		overall = http.StatusServiceUnavailable
	} else {
		subsystems["agent_runtime"] = subsystemStatus{Status: "ok"}
	}

	status := "ok"
	if overall != http.StatusOK {
		status = "degraded"
	}
	writeJSONStatus(w, readinessResponse{Status: status, Subsystems: subsystems}, overall)
}

func writeJSONStatus(w http.ResponseWriter, value any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

type startResearchRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) startResearch(w http.ResponseWriter, r *http.Request) {
	req := startResearchRequest{}
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		http.Error(w, "prompt required", http.StatusBadRequest)
		return
	}

	run, err := s.tasks.Start(r.Context(), prompt)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSONStatus(w, map[string]string{
		"research_id": run.ID,
		"status":      run.Status,
	}, http.StatusAccepted)
}

type researchRunResponse struct {
	ID        string `json:"research_id"`
	ThreadID  string `json:"thread_id,omitempty"`
	AgentID   string `json:"agent_id,omitempty"`
	RemoteRun string `json:"remote_run_id,omitempty"`
	Prompt    string `json:"prompt"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type listResearchResponse struct {
	Runs []researchRunResponse `json:"runs"`
}

func toRunResponse(run store.ResearchRun) researchRunResponse {
	return researchRunResponse{
		ID:        run.ID,
		ThreadID:  run.ThreadID,
		AgentID:   run.AgentID,
		RemoteRun: run.RemoteRun,
		Prompt:    run.Prompt,
		Status:    run.Status,
		Error:     run.Error,
		CreatedAt: run.CreatedAt,
		UpdatedAt: run.UpdatedAt,
	}
}

func (s *Server) listResearch(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListResearchRuns(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := listResearchResponse{Runs: make([]researchRunResponse, 0, len(runs))}
	for _, run := range runs {
		out.Runs = append(out.Runs, toRunResponse(run))
	}
	writeJSONStatus(w, out, http.StatusOK)
}

func (s *Server) getResearch(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetResearchRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "research not found", http.StatusNotFound)
		return
	}
	writeJSONStatus(w, toRunResponse(*run), http.StatusOK)
}

func (s *Server) cancelResearch(w http.ResponseWriter, r *http.Request) {
	researchID := chi.URLParam(r, "id")
	run, err := s.store.GetResearchRun(r.Context(), researchID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "research not found", http.StatusNotFound)
		return
	}
	if !s.tasks.Cancel(researchID) {
		http.Error(w, "research not running", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	saved, err := s.store.GetReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if saved == nil {
		http.Error(w, "report not found", http.StatusNotFound)
		return
	}
	switch r.URL.Query().Get("format") {
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, saved.HTML)
	case "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = io.WriteString(w, saved.Markdown)
	default:
		writeJSONStatus(w, map[string]string{
			"research_id": saved.ResearchID,
			"markdown":    saved.Markdown,
			"html":        saved.HTML,
			"created_at":  saved.CreatedAt,
		}, http.StatusOK)
	}
}

func (s *Server) exportReportPDF(w http.ResponseWriter, r *http.Request) {
	researchID := chi.URLParam(r, "id")
	saved, err := s.store.GetReport(r.Context(), researchID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if saved == nil {
		http.Error(w, "report not found", http.StatusNotFound)
		return
	}

	title := "Research Report"
	if run, err := s.store.GetResearchRun(r.Context(), researchID); err == nil && run != nil && run.Prompt != "" {
		title = run.Prompt
	}

	// Render into memory first so an export failure still gets a clean
	// error response.
	var buf bytes.Buffer
	exporter := export.PDFExporter{Title: title}
	if err := exporter.Export(&buf, report.ParseBlocks(saved.Markdown)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", researchID+".pdf"))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	researchID := chi.URLParam(r, "id")
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	afterSeq := parseAfterSeq(researchID, r)
	stored, err := s.store.ListEvents(ctx, researchID, afterSeq)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	for _, event := range stored {
		sendSSE(w, toProgressEvent(event))
		flusher.Flush()
	}

	eventsChan := s.broker.Subscribe(ctx, researchID)
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	flusher.Flush()
	for {
		select {
		case event, ok := <-eventsChan:
			if !ok {
				return
			}
			sendSSE(w, event)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func sendSSE(w http.ResponseWriter, event events.ProgressEvent) {
	payload, _ := json.Marshal(event)
	fmt.Fprintf(w, "id: %s:%d\n", event.ResearchID, event.Seq)
	fmt.Fprint(w, "event: progress\n")
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

func toProgressEvent(event store.ProgressEvent) events.ProgressEvent {
	return events.ProgressEvent{
		ResearchID: event.ResearchID,
		Seq:        event.Seq,
		Type:       event.Type,
		Ts:         event.Timestamp,
		Text:       event.Text,
	}
}

func parseAfterSeq(researchID string, r *http.Request) int64 {
	afterParam := strings.TrimSpace(r.URL.Query().Get("after_seq"))
	if afterParam != "" {
		if parsed, err := strconv.ParseInt(afterParam, 10, 64); err == nil {
			return parsed
		}
	}
	lastEventID := r.Header.Get("Last-Event-ID")
	if lastEventID == "" {
		return 0
	}
	parts := strings.Split(lastEventID, ":")
	if len(parts) != 2 {
		return 0
	}
	if parts[0] != researchID {
		return 0
	}
	seq, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0
	}
	return seq
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Last-Event-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) Start(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()
	return server.ListenAndServe()
}
