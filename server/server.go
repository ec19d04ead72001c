package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/umputun/notigate/pkg/domain"
	"github.com/umputun/notigate/pkg/intake"
	"github.com/umputun/notigate/pkg/store"
	"github.com/umputun/notigate/pkg/worker"
)

//go:generate moq -out mocks/processor.go -pkg mocks -skip-ensure -fmt goimports . Processor
//go:generate moq -out mocks/inbox.go -pkg mocks -skip-ensure -fmt goimports . Inbox

// Processor runs an intercepted message through the filtering pipeline
type Processor interface {
	Process(ctx context.Context, msg domain.Message) error
}

// Inbox is the persisted message surface exposed over HTTP
type Inbox interface {
	List(ctx context.Context, limit, offset int) ([]store.Message, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
	TotalSizeMB(ctx context.Context) (float64, error)
}

// WorkerInfo reports the enrichment worker state for the status endpoint
type WorkerInfo interface {
	State() worker.State
}

// Config holds server settings
type Config struct {
	Listen       string
	Timeout      time.Duration
	WebhookToken string // required on POST /message when set
	PageSize     int    // default and max page size for GET /messages
	Version      string
	Debug        bool
}

// Server is the HTTP surface: webhook intake, inbox read API and health
type Server struct {
	cfg       Config
	processor Processor
	inbox     Inbox
	worker    WorkerInfo

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// New initializes a new server instance. Inbox and worker may be nil when
// persistence or enrichment are disabled.
func New(cfg Config, processor Processor, inbox Inbox, workerInfo WorkerInfo) *Server {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	s := &Server{
		cfg:       cfg,
		processor: processor,
		inbox:     inbox,
		worker:    workerInfo,
		router:    routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	lgr.Printf("[INFO] starting server on %s", s.cfg.Listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Timeout,
		WriteTimeout: s.cfg.Timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		lgr.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			lgr.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("notigate", "umputun", s.cfg.Version))
	s.router.Use(rest.Ping)

	if s.cfg.Debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	// gotify-compatible webhook surface
	s.router.HandleFunc("POST /message", s.webhookHandler)

	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)
		r.HandleFunc("GET /messages", s.messagesHandler)
		r.HandleFunc("DELETE /message/{id}", s.deleteMessageHandler)
	})
}

// webhookRequest is the gotify-compatible message body
type webhookRequest struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority int    `json:"priority"`
}

// webhookHandler accepts a producer message and runs it through the pipeline
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if s.cfg.WebhookToken != "" && r.URL.Query().Get("token") != s.cfg.WebhookToken {
		RenderError(w, r, fmt.Errorf("invalid token"), http.StatusUnauthorized)
		return
	}

	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RenderError(w, r, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" && strings.TrimSpace(req.Title) == "" {
		RenderError(w, r, fmt.Errorf("empty message"), http.StatusBadRequest)
		return
	}
	if req.Priority < 1 || req.Priority > 10 {
		req.Priority = 5
	}

	app := r.URL.Query().Get("app")
	if app == "" {
		app = "webhook"
	}

	msg := domain.Message{
		Title:     req.Title,
		Body:      intake.Sanitize(req.Message),
		Priority:  req.Priority,
		App:       app,
		Source:    domain.SourceWebhook,
		Timestamp: time.Now(),
	}

	if err := s.processor.Process(r.Context(), msg); err != nil {
		RenderError(w, r, fmt.Errorf("process message: %w", err), http.StatusBadGateway)
		return
	}

	RenderJSON(w, r, http.StatusOK, rest.JSON{"status": "accepted"})
}

// messagesHandler returns a page of the persisted inbox, newest first
func (s *Server) messagesHandler(w http.ResponseWriter, r *http.Request) {
	if s.inbox == nil {
		RenderError(w, r, fmt.Errorf("inbox disabled"), http.StatusNotFound)
		return
	}

	limit := s.cfg.PageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= s.cfg.PageSize {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	msgs, err := s.inbox.List(r.Context(), limit, offset)
	if err != nil {
		RenderError(w, r, fmt.Errorf("list messages: %w", err), http.StatusInternalServerError)
		return
	}

	count, err := s.inbox.Count(r.Context())
	if err != nil {
		RenderError(w, r, fmt.Errorf("count messages: %w", err), http.StatusInternalServerError)
		return
	}

	RenderJSON(w, r, http.StatusOK, rest.JSON{"messages": msgs, "total": count})
}

// deleteMessageHandler removes one message from the inbox
func (s *Server) deleteMessageHandler(w http.ResponseWriter, r *http.Request) {
	if s.inbox == nil {
		RenderError(w, r, fmt.Errorf("inbox disabled"), http.StatusNotFound)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		RenderError(w, r, fmt.Errorf("invalid message id: %w", err), http.StatusBadRequest)
		return
	}

	if err := s.inbox.Delete(r.Context(), id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			RenderError(w, r, err, http.StatusNotFound)
			return
		}
		RenderError(w, r, fmt.Errorf("delete message: %w", err), http.StatusInternalServerError)
		return
	}

	RenderJSON(w, r, http.StatusOK, rest.JSON{"status": "deleted", "id": id})
}

// statusHandler returns server status including worker state and inbox stats
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := rest.JSON{
		"status":  "ok",
		"version": s.cfg.Version,
		"time":    time.Now().UTC(),
	}

	if s.worker != nil {
		status["worker"] = s.worker.State().String()
	} else {
		status["worker"] = "disabled"
	}

	if s.inbox != nil {
		if count, err := s.inbox.Count(r.Context()); err == nil {
			status["messages"] = count
		}
		if size, err := s.inbox.TotalSizeMB(r.Context()); err == nil {
			status["storage_mb"] = size
		}
	}

	RenderJSON(w, r, http.StatusOK, status)
}

// RenderJSON sends JSON response
func RenderJSON(w http.ResponseWriter, _ *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			lgr.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// RenderError sends error response as JSON
func RenderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	RenderJSON(w, r, code, map[string]string{"error": errMsg})
}
