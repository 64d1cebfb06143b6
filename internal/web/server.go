package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/convex-community/curvesim/internal/logger"
	"github.com/convex-community/curvesim/internal/sweep"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer exposes a finished sweep's results over HTTP for external
// reporting and plotting tools.
type WebServer struct {
	router *mux.Router
	port   string
	result *sweep.Result
}

// NewWebServer creates a new web server instance serving the given result.
func NewWebServer(port string, result *sweep.Result) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		port:   port,
		result: result,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/runs", ws.handleListRuns).Methods("GET")
	api.HandleFunc("/runs/{key}", ws.handleGetRun).Methods("GET")
	api.HandleFunc("/summaries", ws.handleGetSummaries).Methods("GET")

	ws.router.Use(ws.loggingMiddleware)
}

// Start begins serving; blocks until the listener fails.
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting results API")
	srv := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return srv.ListenAndServe()
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, map[string]any{
		"status": "ok",
		"runs":   len(ws.result.Runs),
	})
}

func (ws *WebServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, ws.result.Keys())
}

func (ws *WebServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	run, ok := ws.result.Runs[key]
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	ws.writeJSON(w, run)
}

func (ws *WebServer) handleGetSummaries(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, ws.result.Summaries)
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode response")
	}
}

// loggingMiddleware logs each request with timing information.
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		webLogger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Handled request")
	})
}
