// Package socket implements a JSON-over-Unix-socket protocol for the treesync daemon.
// The protocol uses newline-delimited JSON: each message is one JSON object + \n.
package socket

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/corey/treesync/internal/ports"
)

// ErrDaemonNotRunning is returned by the client when nothing listens on the socket.
var ErrDaemonNotRunning = errors.New("daemon not running")

// SocketPath returns the Unix socket path for a given project root.
// Format: /tmp/treesync-{first12hex}.sock
func SocketPath(projectRoot string) string {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		abs = projectRoot
	}
	h := sha256.Sum256([]byte(abs))
	return fmt.Sprintf("/tmp/treesync-%x.sock", h[:6])
}

// maxMessageSize bounds one newline-delimited message in either direction.
const maxMessageSize = 16 << 20

// Method names for the protocol.
const (
	MethodHealth   = "health"
	MethodValidate = "validate"
	MethodHistory  = "history"
	MethodProjects = "projects"
	MethodShutdown = "shutdown"
)

// Request is the wire format for client-to-server messages.
type Request struct {
	ID     string      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// Response is the wire format for server-to-client messages.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// HealthResult is the result of a health request.
type HealthResult struct {
	Status       string   `json:"status"`
	Roots        []string `json:"roots"`
	Batches      uint64   `json:"batches"`
	LastResult   string   `json:"last_result,omitempty"`
	Uptime       string   `json:"uptime"`
	HTTPPort     int      `json:"http_port,omitempty"`
	DatabasePath string   `json:"db_path,omitempty"`
}

// ValidateParams is the params for a validate request.
type ValidateParams struct {
	Entries []ports.PathChangeEntry `json:"entries"`
}

// ValidateResult is the result of a validate request. Result holds the
// classified batch in the validator's JSON form.
type ValidateResult struct {
	Result  json.RawMessage `json:"result"`
	Elapsed string          `json:"elapsed"`
}

// HistoryParams is the params for a history request.
type HistoryParams struct {
	Limit int `json:"limit,omitempty"`
}

// HistoryResult is the result of a history request.
type HistoryResult struct {
	Entries []*ports.JournalEntry `json:"entries"`
	Count   int                   `json:"count"`
}

// ProjectInfo describes a known project.
type ProjectInfo struct {
	Root       string `json:"root"`
	Registered bool   `json:"registered"`
}

// ProjectsResult is the result of a projects request.
type ProjectsResult struct {
	Projects []ProjectInfo `json:"projects"`
	Count    int           `json:"count"`
}

// decodeInto re-marshals a loosely typed JSON value into a typed struct.
func decodeInto(v interface{}, out interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
