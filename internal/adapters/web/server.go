package web

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/corey/treesync/internal/adapters/socket"
	"github.com/corey/treesync/internal/ports"
)

// DefaultHistoryLimit is used when /api/history has no limit parameter.
const DefaultHistoryLimit = 50

// Queries provides read access to daemon state for the handlers.
type Queries interface {
	Status() socket.HealthResult
	History(limit int) ([]*ports.JournalEntry, error)
	Projects() []socket.ProjectInfo
}

// Server serves the dashboard, the JSON API and Prometheus metrics over HTTP.
type Server struct {
	queries  Queries
	metrics  http.Handler
	logger   *slog.Logger
	listener net.Listener
	httpSrv  *http.Server
	port     int
	started  time.Time
	stopOnce sync.Once

	portFilePath string // .treesync/http.port
}

// NewServer creates an HTTP server for the dashboard.
// The portFilePath is where the bound port is written for discovery.
// metrics may be nil, in which case /metrics is not served.
func NewServer(queries Queries, metrics http.Handler, portFilePath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		queries:      queries,
		metrics:      metrics,
		logger:       logger,
		portFilePath: portFilePath,
		started:      time.Now(),
	}
}

// DefaultPort computes a project-specific port: 19500 + (hash(abs_path) % 500).
func DefaultPort(projectRoot string) int {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		abs = projectRoot
	}
	h := sha256.Sum256([]byte(abs))
	// Use first 4 bytes as uint32
	n := uint32(h[0])<<24 | uint32(h[1])<<16 | uint32(h[2])<<8 | uint32(h[3])
	return 19500 + int(n%500)
}

// Handler returns the routed mux without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /", http.FileServerFS(staticFS))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/projects", s.handleProjects)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

// Start begins listening on the preferred port. Writes the bound port to the port file.
func (s *Server) Start(preferredPort int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", preferredPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln
	s.port = ln.Addr().(*net.TCPAddr).Port
	s.started = time.Now()

	s.httpSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Write port file for discovery
	if s.portFilePath != "" {
		if err := os.WriteFile(s.portFilePath, []byte(strconv.Itoa(s.port)), 0644); err != nil {
			s.logger.Warn("write port file", "path", s.portFilePath, "error", err)
		}
	}

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server. Idempotent.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		if s.httpSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.httpSrv.Shutdown(ctx)
		}
		if s.portFilePath != "" {
			os.Remove(s.portFilePath)
		}
	})
}

// Port returns the bound port number.
func (s *Server) Port() int {
	return s.port
}

// URL returns the dashboard URL.
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d", s.port)
}

// ReadPortFile returns the port a running daemon wrote, if any.
func ReadPortFile(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	port, err := strconv.Atoi(string(data))
	if err != nil || port <= 0 {
		return 0, false
	}
	return port, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	result := s.queries.Status()
	result.Status = "ok"
	result.Uptime = time.Since(s.started).Round(time.Second).String()
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	entries, err := s.queries.History(limit)
	if err != nil {
		s.logger.Error("read history", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []*ports.JournalEntry{}
	}
	writeJSON(w, http.StatusOK, socket.HistoryResult{Entries: entries, Count: len(entries)})
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	projects := s.queries.Projects()
	if projects == nil {
		projects = []socket.ProjectInfo{}
	}
	writeJSON(w, http.StatusOK, socket.ProjectsResult{Projects: projects, Count: len(projects)})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
