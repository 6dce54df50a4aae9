// Package api exposes the repair assistant over REST and WebSocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/entrepeneur4lyf/repairforge/internal/app"
	"github.com/entrepeneur4lyf/repairforge/internal/i18n"
	"github.com/entrepeneur4lyf/repairforge/internal/live"
	"github.com/entrepeneur4lyf/repairforge/internal/media"
)

// Options configures a Server.
type Options struct {
	Addr           string
	AllowedOrigins []string
	RateLimit      float64
	RateBurst      int
	RequestTimeout time.Duration

	Controller *app.Controller
	Locales    *i18n.Store
	Media      *media.Registry

	// LiveDialer opens model connections for AR sessions. Nil disables /live.
	LiveDialer live.Dialer
	Live       live.Config
}

// Server represents the API server
type Server struct {
	opts              Options
	ctrl              *app.Controller
	upgrader          websocket.Upgrader
	connectionManager *ConnectionManager
	limiter           *clientLimiter
	httpServer        *http.Server
	log               *log.Logger

	// background tracks work that outlives its request, such as analyses.
	background context.Context
	cancel     context.CancelFunc
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 2 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		opts:              opts,
		ctrl:              opts.Controller,
		connectionManager: NewConnectionManager(),
		limiter:           newClientLimiter(opts.RateLimit, opts.RateBurst),
		log:               log.WithPrefix("api"),
		background:        ctx,
		cancel:            cancel,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.allowedOrigin,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return Chain(s.setupRoutes(),
		Recover(s.log),
		OTel("repairforge"),
		Logger(s.log),
		CORS(s.opts.AllowedOrigins),
		i18n.Middleware(),
	)
}

// Start serves until Stop is called. It returns nil after a graceful stop.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info("Starting API server", "addr", s.opts.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the HTTP server and cancels background work.
func (s *Server) Stop(ctx context.Context) error {
	s.cancel()
	s.connectionManager.CloseAll()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api/v1").Subrouter()

	// Health check and sockets are not rate limited
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/ws", s.handleStateWebSocket)
	api.HandleFunc("/live", s.handleLiveWebSocket)

	limited := api.PathPrefix("").Subrouter()
	limited.Use(s.limiter.Middleware)

	// Analysis state
	limited.HandleFunc("/state", s.handleState).Methods("GET")
	limited.HandleFunc("/analysis", s.handleAnalysis).Methods("POST")
	limited.HandleFunc("/error", s.handleDismissError).Methods("DELETE")

	// Media
	limited.HandleFunc("/media", s.handleAttachMedia).Methods("POST")
	limited.HandleFunc("/media", s.handleRemoveMedia).Methods("DELETE")
	limited.HandleFunc("/media/{ref}", s.handleGetMedia).Methods("GET")

	// Chat
	limited.HandleFunc("/chat/messages", s.handleChatMessage).Methods("POST")
	limited.HandleFunc("/chat/toggle", s.handleToggleChat).Methods("POST")

	// History
	limited.HandleFunc("/history", s.handleHistory).Methods("GET")
	limited.HandleFunc("/history", s.handleClearHistory).Methods("DELETE")
	limited.HandleFunc("/history/toggle", s.handleToggleHistory).Methods("POST")
	limited.HandleFunc("/history/{id}/view", s.handleViewHistory).Methods("POST")
	limited.HandleFunc("/history/{id}", s.handleDeleteHistory).Methods("DELETE")

	// Localization
	limited.HandleFunc("/languages", s.handleLanguages).Methods("GET")
	limited.HandleFunc("/language", s.handleSetLanguage).Methods("PUT")
	limited.HandleFunc("/translations/{locale}", s.handleTranslations).Methods("GET")

	// Guide annotations and export
	limited.HandleFunc("/guide/export", s.handleExportGuide).Methods("GET")
	limited.HandleFunc("/guide/steps/{index:[0-9]+}/box", s.handleSetStepBox).Methods("PUT")
	limited.HandleFunc("/guide/steps/{index:[0-9]+}/box", s.handleClearStepBox).Methods("DELETE")

	// Draft
	limited.HandleFunc("/draft", s.handleGetDraft).Methods("GET")
	limited.HandleFunc("/draft", s.handleUpdateDraft).Methods("PUT")

	return router
}

// allowedOrigin accepts requests without an Origin header, any origin when
// "*" is configured, and otherwise an exact match.
func (s *Server) allowedOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return matchOrigin(s.opts.AllowedOrigins, origin) != ""
}

// Response helpers
func (s *Server) writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, code int) {
	s.writeJSON(w, code, map[string]string{"error": message})
}

// Health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"services": map[string]bool{
			"live":  s.opts.LiveDialer != nil,
			"media": s.opts.Media != nil,
		},
		"connections": s.connectionManager.Stats(),
	})
}

// clientKey identifies a caller for rate limiting.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
