package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/librescoot/arduino-mcp-adapter/internal/link"
	"github.com/librescoot/arduino-mcp-adapter/internal/manifest"
	"github.com/librescoot/arduino-mcp-adapter/internal/scriptrunner"
	"github.com/librescoot/arduino-mcp-adapter/internal/telemetry"
)

const runPythonScriptToolName = "runPythonScript"

const (
	serviceName    = "arduino-mcp-adapter"
	serviceVersion = "0.1.0"
)

// Server is the MCP-over-HTTP router: it dispatches JSON-RPC calls to the
// manifest-described device functions, and hosts the runPythonScript
// meta-tool.
type Server struct {
	Port int

	Link      *link.Supervisor
	Manifests *manifest.Registry
	Scripts   *scriptrunner.Runner
	Telemetry *telemetry.Publisher

	log *log.Logger

	httpServer *http.Server
}

// New returns a Server bound to port, operating against sup and reg. tel
// may be nil, in which case tool-call completions are simply not published
// anywhere.
func New(port int, sup *link.Supervisor, reg *manifest.Registry, scripts *scriptrunner.Runner, tel *telemetry.Publisher, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stderr, "[mcpserver] ", log.LstdFlags|log.Lmicroseconds)
	}
	return &Server{
		Port:      port,
		Link:      sup,
		Manifests: reg,
		Scripts:   scripts,
		Telemetry: tel,
		log:       logger,
	}
}

// publishCallCompletion reports a finished tools/call to the telemetry
// publisher, if one is configured. A nil Telemetry is a no-op.
func (s *Server) publishCallCompletion(tool string, ok bool, detail string) {
	s.Telemetry.CallCompleted(tool, ok, detail)
}

// Run starts the HTTP server and blocks until ctx is canceled or the
// server fails to serve.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", s.handleMCP)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:    formatAddr(s.Port),
		Handler: withCORS(mux),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Printf("listening on %s", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func formatAddr(port int) string {
	return fmt.Sprintf("0.0.0.0:%d", port)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": serviceName,
		"version": serviceVersion,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.Link.State()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":     st.Phase.String(),
		"device_id": st.DeviceID,
		"ready":     st.IsReady(),
		"message":   st.Message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
