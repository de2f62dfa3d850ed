package api

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"nodedesk/pkg/logging"
)

// NewServer creates and configures the HTTP server.
// uiDir may be empty; shutdown is called once after POST /api/shutdown.
// Every route, shutdown included, refuses origins the policy rejects.
func NewServer(addr string, origins *OriginPolicy, settingsH *SettingsHandler, stream *StreamHub, nodeH *NodeHandler, appVersion, uiDir string, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health and version
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion(appVersion))

	// 2. Settings
	mux.HandleFunc("GET /api/settings", settingsH.HandleGet)
	mux.HandleFunc("/api/settings/actions", settingsH.HandleAction)
	mux.HandleFunc("GET /api/settings/connection", settingsH.HandleConnection)
	mux.HandleFunc("GET /api/settings/locales", settingsH.HandleLocales)
	if stream != nil {
		mux.HandleFunc("GET /api/settings/stream", stream.HandleWS)
	}

	// 3. Logs
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)

	// 4. Node
	if nodeH != nil {
		mux.HandleFunc("GET /api/node/status", nodeH.HandleStatus)
	}

	// 5. Shutdown
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Let the response flush first.
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	// 6. Renderer bundle
	if uiDir != "" {
		mux.Handle("/", http.FileServer(&spaFileSystem{root: http.Dir(uiDir)}))
	}

	return &http.Server{
		Addr:         addr,
		Handler:      loggingMiddleware(origins.Middleware(mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(appVersion string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": appVersion})
	}
}

// statusRecorder captures the response status for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack hands the connection to the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if r.URL.Path == "/api/log/latest" || r.URL.Path == "/health" {
			return
		}
		logging.RequestLogger.Info("Request Processed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
