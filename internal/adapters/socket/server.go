package socket

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/corey/treesync/internal/domain/validator"
	"github.com/corey/treesync/internal/ports"
)

// Daemon provides the operations the server exposes.
// Thread safety is the implementor's responsibility.
type Daemon interface {
	Validate(entries []ports.PathChangeEntry) (validator.Result, error)
	History(limit int) ([]*ports.JournalEntry, error)
	Projects() []ProjectInfo
	// Status fills everything but Status and Uptime, which the server owns.
	Status() HealthResult
}

// Server is the daemon that listens on a Unix socket and serves validation requests.
type Server struct {
	daemon   Daemon
	logger   *slog.Logger
	listener net.Listener
	sockPath string
	started  time.Time

	methods map[string]func(Request) Response

	done         chan struct{}
	shutdownCh   chan struct{} // closed when a remote shutdown request is received
	shutdownOnce sync.Once
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewServer creates a daemon server. A nil logger uses slog.Default().
func NewServer(daemon Daemon, sockPath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		daemon:     daemon,
		logger:     logger,
		sockPath:   sockPath,
		done:       make(chan struct{}),
		shutdownCh: make(chan struct{}),
	}
	s.methods = map[string]func(Request) Response{
		MethodHealth:   s.handleHealth,
		MethodValidate: s.handleValidate,
		MethodHistory:  s.handleHistory,
		MethodProjects: s.handleProjects,
		MethodShutdown: func(req Request) Response { return Response{ID: req.ID, Result: struct{}{}} },
	}
	return s
}

// Start begins listening on the Unix socket. It handles stale sockets by
// attempting a connection first. If the connection fails, the stale socket
// is removed before binding.
func (s *Server) Start() error {
	// Handle stale socket
	if _, err := os.Stat(s.sockPath); err == nil {
		conn, err := net.DialTimeout("unix", s.sockPath, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return fmt.Errorf("daemon already running at %s", s.sockPath)
		}
		s.logger.Info("removing stale socket", "path", s.sockPath)
		os.Remove(s.sockPath)
	}

	ln, err := net.Listen("unix", s.sockPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln
	s.started = time.Now()

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop gracefully shuts down the server, closing the listener and removing the socket file.
// Idempotent: safe to call multiple times (e.g., after remote shutdown + signal).
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		os.Remove(s.sockPath)
	})
	return nil
}

// ShutdownCh returns a channel that is closed when a remote shutdown request
// is received. The daemon's main goroutine should select on this alongside
// OS signals so the process actually exits after a remote stop.
func (s *Server) ShutdownCh() <-chan struct{} {
	return s.shutdownCh
}

// Addr returns the socket path the server is listening on.
func (s *Server) Addr() string {
	return s.sockPath
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			case <-time.After(10 * time.Millisecond):
				s.logger.Debug("accept", "error", err)
				continue
			}
		}
		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

// serveConn answers requests on conn until the peer hangs up or asks the
// daemon to shut down.
func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	lines := bufio.NewScanner(conn)
	lines.Buffer(make([]byte, 64*1024), maxMessageSize)
	for lines.Scan() {
		if len(lines.Bytes()) == 0 {
			continue
		}
		var req Request
		if err := json.Unmarshal(lines.Bytes(), &req); err != nil {
			s.writeResponse(conn, Response{Error: "invalid request JSON"})
			continue
		}

		handle, ok := s.methods[req.Method]
		if !ok {
			s.writeResponse(conn, Response{ID: req.ID, Error: fmt.Sprintf("unknown method: %s", req.Method)})
			continue
		}
		s.writeResponse(conn, handle(req))

		if req.Method == MethodShutdown {
			s.shutdownOnce.Do(func() { close(s.shutdownCh) })
			return
		}
	}
}

func (s *Server) handleHealth(req Request) Response {
	h := s.daemon.Status()
	h.Status = "ok"
	h.Uptime = time.Since(s.started).Round(time.Second).String()
	return Response{ID: req.ID, Result: h}
}

func (s *Server) handleValidate(req Request) Response {
	var params ValidateParams
	if err := decodeInto(req.Params, &params); err != nil {
		return Response{ID: req.ID, Error: "invalid validate params"}
	}
	for i, e := range params.Entries {
		if e.Path == "" || !e.Kind.Valid() {
			return Response{ID: req.ID, Error: fmt.Sprintf("entry %d: path and kind (created, deleted, changed) are required", i)}
		}
	}
	start := time.Now()
	result, err := s.daemon.Validate(params.Entries)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	elapsed := time.Since(start)
	data, err := validator.MarshalResult(result)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{
		ID:     req.ID,
		Result: ValidateResult{Result: data, Elapsed: elapsed.String()},
	}
}

func (s *Server) handleHistory(req Request) Response {
	var params HistoryParams
	if req.Params != nil {
		if err := decodeInto(req.Params, &params); err != nil {
			return Response{ID: req.ID, Error: "invalid history params"}
		}
	}
	entries, err := s.daemon.History(params.Limit)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	if entries == nil {
		entries = []*ports.JournalEntry{}
	}
	return Response{ID: req.ID, Result: HistoryResult{Entries: entries, Count: len(entries)}}
}

func (s *Server) handleProjects(req Request) Response {
	projects := s.daemon.Projects()
	if projects == nil {
		projects = []ProjectInfo{}
	}
	return Response{ID: req.ID, Result: ProjectsResult{Projects: projects, Count: len(projects)}}
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("marshal response", "id", resp.ID, "error", err)
		data, _ = json.Marshal(Response{ID: resp.ID, Error: "internal error"})
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		s.logger.Debug("write response", "error", err)
	}
}
