package socket

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/corey/treesync/internal/domain/validator"
	"github.com/corey/treesync/internal/ports"
)

// Client timeouts.
const (
	DefaultCallTimeout = 30 * time.Second
	dialTimeout        = 2 * time.Second
	pingTimeout        = 500 * time.Millisecond
)

// Client talks to the treesync daemon of one project over its Unix socket.
// Each call uses its own connection.
type Client struct {
	sockPath string
	timeout  time.Duration
	nextID   atomic.Uint64
}

// NewClient creates a client for the socket at sockPath.
func NewClient(sockPath string) *Client {
	return &Client{sockPath: sockPath, timeout: DefaultCallTimeout}
}

// SetTimeout bounds a whole request/response exchange. d <= 0 restores the default.
func (c *Client) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultCallTimeout
	}
	c.timeout = d
}

// Ping reports whether a daemon accepts connections.
func (c *Client) Ping() bool {
	conn, err := net.DialTimeout("unix", c.sockPath, pingTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Health returns daemon counters.
func (c *Client) Health() (*HealthResult, error) {
	return roundTrip[HealthResult](c, MethodHealth, nil)
}

// Validate asks the daemon to classify (and journal) a batch.
func (c *Client) Validate(entries []ports.PathChangeEntry) (validator.Result, error) {
	res, err := roundTrip[ValidateResult](c, MethodValidate, ValidateParams{Entries: entries})
	if err != nil {
		return nil, err
	}
	return validator.UnmarshalResult(res.Result)
}

// History returns up to limit journal entries, newest first.
func (c *Client) History(limit int) (*HistoryResult, error) {
	return roundTrip[HistoryResult](c, MethodHistory, HistoryParams{Limit: limit})
}

// Projects lists the projects the daemon knows about.
func (c *Client) Projects() (*ProjectsResult, error) {
	return roundTrip[ProjectsResult](c, MethodProjects, nil)
}

// Shutdown asks the daemon to exit.
func (c *Client) Shutdown() error {
	_, err := c.call(MethodShutdown, nil)
	return err
}

// roundTrip performs one call and decodes its result into T.
func roundTrip[T any](c *Client, method string, params interface{}) (*T, error) {
	resp, err := c.call(method, params)
	if err != nil {
		return nil, err
	}
	var out T
	if err := decodeInto(resp.Result, &out); err != nil {
		return nil, fmt.Errorf("%s: decode result: %w", method, err)
	}
	return &out, nil
}

func (c *Client) call(method string, params interface{}) (*Response, error) {
	req := Request{
		ID:     strconv.FormatUint(c.nextID.Add(1), 10),
		Method: method,
		Params: params,
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", method, err)
	}

	conn, err := net.DialTimeout("unix", c.sockPath, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDaemonNotRunning, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.timeout))

	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return nil, fmt.Errorf("%s: send: %w", method, err)
	}

	reader := bufio.NewScanner(conn)
	reader.Buffer(make([]byte, 64*1024), maxMessageSize)
	if !reader.Scan() {
		err := reader.Err()
		if err == nil {
			err = errors.New("connection closed without a response")
		}
		return nil, fmt.Errorf("%s: receive: %w", method, err)
	}

	var resp Response
	if err := json.Unmarshal(reader.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", method, err)
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("%s: response id %q does not match request %q", method, resp.ID, req.ID)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%s: daemon: %s", method, resp.Error)
	}
	return &resp, nil
}
