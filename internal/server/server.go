// Package server orchestrates all components: endpoint registry, dispatcher,
// feature components, outcome events and the HTTP health endpoint.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/purelygoods/storefront/internal/config"
	"github.com/purelygoods/storefront/pkg/services"
)

const logPrefix = "server:server"

// Server is the storefront app shell.
type Server struct {
	cfg        *config.Config
	app        *App
	httpServer *http.Server
}

// NewServer creates a Server around an already constructed App.
func NewServer(cfg *config.Config, app *App) *Server {
	return &Server{cfg: cfg, app: app}
}

// Run starts the storefront, blocks until shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}
	SetupLogging(cfg)

	slog.Info(fmt.Sprintf("%s - Starting %s", logPrefix, cfg.ServiceName))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := NewApp(ctx, cfg, AppOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	// The payment component is the only feature mounted by the shell. Its
	// ping completes in the background while the health server starts.
	payment := services.NewPaymentComponent(app.Payment, slog.Default())
	payment.Init(ctx)

	s := NewServer(cfg, app)
	httpAddr := fmt.Sprintf(":%d", cfg.HTTPPort)
	s.httpServer = &http.Server{Addr: httpAddr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP health server listening on %s", logPrefix, httpAddr))
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	slog.Info(fmt.Sprintf("%s - Storefront is ready", logPrefix))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
	defer shutdownCancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn(fmt.Sprintf("%s - HTTP shutdown: %v", logPrefix, err))
	}

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

// Handler returns the HTTP routes of the health server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome())
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	mux.HandleFunc("/endpoints", s.handleEndpoints)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
	defer cancel()

	h := CheckEndpoints(ctx, s.app.Client)
	status := http.StatusOK
	if !h.Healthy() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, h)
}

func (s *Server) handleEndpoints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"baseUrl":   s.app.Registry.BaseURL(),
		"endpoints": s.app.Registry.Entries(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(fmt.Sprintf("%s - response encode: %v", logPrefix, err))
	}
}

const homePageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.ServiceName}}</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    h1, h2 { color: #0066cc; }
    .status-healthy { color: #0066cc; font-weight: bold; }
    .status-unhealthy { color: #cc0000; font-weight: bold; }
    table { border-collapse: collapse; width: 100%; max-width: 900px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; }
    th { background: #f0f4f8; color: #0066cc; }
    .meta { color: #333; font-size: 0.9rem; margin-top: 1rem; }
    .error { color: #cc0000; }
  </style>
</head>
<body>
  <h1>{{.ServiceName}}</h1>
  <p class="meta">API base URL: {{.BaseURL}}</p>

  <h2>Endpoints</h2>
  <p>Status: <span class="status-{{.Health.Status}}">{{.Health.Status}}</span> ({{.Health.Timestamp}})</p>
  <table>
    <thead>
      <tr><th>Endpoint</th><th>URL</th><th>Result</th><th>Time (ms)</th></tr>
    </thead>
    <tbody>
      {{range .Health.Endpoints}}
      <tr>
        <td>{{.Endpoint}}</td>
        <td>{{.URL}}</td>
        <td>{{if .Ok}}OK{{else}}<span class="error">{{.Error}}</span>{{end}}</td>
        <td>{{.DurationMs}}</td>
      </tr>
      {{end}}
    </tbody>
  </table>
</body>
</html>
`

type homeData struct {
	ServiceName string
	BaseURL     string
	Health      *HealthReport
}

func (s *Server) handleHome() http.HandlerFunc {
	tmpl := template.Must(template.New("home").Parse(homePageTemplate))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()

		data := homeData{
			ServiceName: s.cfg.ServiceName,
			BaseURL:     s.app.Registry.BaseURL(),
			Health:      CheckEndpoints(ctx, s.app.Client),
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			slog.Error(fmt.Sprintf("%s - home template execute: %v", logPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}
