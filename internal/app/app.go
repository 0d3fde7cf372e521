// Package app wires together all adapters and domain logic.
// It provides lifecycle management for the treesync daemon: create, start, stop.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/corey/treesync/internal/adapters/bbolt"
	fsw "github.com/corey/treesync/internal/adapters/fsnotify"
	"github.com/corey/treesync/internal/adapters/metrics"
	"github.com/corey/treesync/internal/adapters/socket"
	"github.com/corey/treesync/internal/adapters/web"
	"github.com/corey/treesync/internal/domain/validator"
	"github.com/corey/treesync/internal/ports"
)

// maxJournalPaths caps the paths stored with one journal entry.
const maxJournalPaths = 200

// App is the daemon: the validation Engine plus the watcher feeding it, the
// journal recording its decisions, and the socket and HTTP front ends.
type App struct {
	*Engine

	Root      string
	Paths     *Paths
	Config    Config
	Watcher   ports.Watcher
	Store     *bbolt.Store
	Metrics   *metrics.Metrics
	Server    *socket.Server
	WebServer *web.Server

	logger *slog.Logger
	sink   func(validator.Result)

	mu         sync.Mutex
	batches    uint64
	lastResult validator.ResultKind
	started    time.Time
}

// New creates an App with all dependencies wired. Does not start services.
func New(cfg Config) (*App, error) {
	if cfg.ProjectRoot == "" {
		return nil, fmt.Errorf("project root required")
	}
	root, err := filepath.Abs(cfg.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	cfg.ProjectRoot = root
	p := NewPaths(root)
	if cfg.DBPath == "" {
		cfg.DBPath = p.DB
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	engine, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	store, err := bbolt.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	store.SetMaxEntries(cfg.HistorySize)

	watcher, err := fsw.NewWatcher(fsw.Options{
		Debounce: cfg.Debounce,
		MaxWait:  cfg.MaxWait,
		MaxBatch: cfg.MaxBatch,
		Logger:   cfg.Logger,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	a := &App{
		Engine:  engine,
		Root:    root,
		Paths:   p,
		Config:  cfg,
		Watcher: watcher,
		Store:   store,
		Metrics: metrics.New(),
		logger:  cfg.Logger,
		sink:    cfg.Sink,
	}
	a.Server = socket.NewServer(a, socket.SocketPath(root), cfg.Logger)
	a.WebServer = web.NewServer(a, a.Metrics.Handler(), p.PortFile, cfg.Logger)
	return a, nil
}

// Start begins the daemon (socket server + HTTP server + file watcher).
func (a *App) Start() error {
	a.mu.Lock()
	a.started = time.Now()
	a.mu.Unlock()

	if err := a.Paths.EnsureDirs(); err != nil {
		return fmt.Errorf("create state dirs: %w", err)
	}
	if err := a.Server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	// Start HTTP dashboard, non-fatal if port unavailable
	httpPort := a.Config.HTTPPort
	if httpPort == 0 {
		httpPort = web.DefaultPort(a.Root)
	}
	if err := a.WebServer.Start(httpPort); err != nil {
		a.logger.Warn("HTTP dashboard unavailable", "error", err)
	}

	// Roots are walked concurrently.
	var g errgroup.Group
	for _, root := range a.Roots() {
		g.Go(func() error {
			if err := a.Watcher.Watch(root, a.batchHandler(root)); err != nil {
				return fmt.Errorf("watch %s: %w", root, err)
			}
			a.logger.Info("watching", "root", root)
			return nil
		})
	}
	// File watcher failures are non-fatal: validate still works over the socket.
	if err := g.Wait(); err != nil {
		a.logger.Warn("file watcher unavailable", "error", err)
	}
	return nil
}

// Stop gracefully shuts down all services and closes the journal.
func (a *App) Stop() error {
	werr := a.Watcher.Stop()
	a.WebServer.Stop()
	a.Server.Stop()
	serr := a.Store.Close()
	return errors.Join(werr, serr)
}

func (a *App) batchHandler(root string) func([]ports.PathChangeEntry) {
	return func(entries []ports.PathChangeEntry) {
		result := a.process(root, entries)
		if a.sink != nil {
			a.sink(result)
		}
	}
}

// Validate classifies a batch on demand (socket and CLI) and journals it
// under the primary root.
func (a *App) Validate(entries []ports.PathChangeEntry) (validator.Result, error) {
	return a.process(a.Root, entries), nil
}

// process runs one batch through the validator and records the outcome.
func (a *App) process(root string, entries []ports.PathChangeEntry) validator.Result {
	start := time.Now()
	result, stats := a.Validator.Classify(entries)
	took := time.Since(start)
	kind := result.Kind()

	a.Metrics.ObserveBatch(string(kind), stats.Received, stats.Kept, took)

	if kind == validator.KindUnknownChanges {
		// Project rules may have changed; drop every cached project.
		a.Discovery.Invalidate()
		a.logger.Info("project definition changed, rules reloaded", "root", root)
	}

	changed := validator.ChangedPaths(result)
	if len(changed) > maxJournalPaths {
		changed = changed[:maxJournalPaths]
	}
	entry := &ports.JournalEntry{
		Result:   string(kind),
		Received: stats.Received,
		Filtered: stats.Kept,
		Paths:    changed,
	}
	if err := a.Store.Append(root, entry); err != nil {
		a.logger.Warn("journal append failed", "root", root, "error", err)
	}

	a.mu.Lock()
	a.batches++
	a.lastResult = kind
	a.mu.Unlock()

	a.logger.Debug("batch classified",
		"root", root, "result", kind, "received", stats.Received,
		"kept", stats.Kept, "took", took)
	return result
}

// History returns up to limit journal entries across all roots, newest first.
func (a *App) History(limit int) ([]*ports.JournalEntry, error) {
	return MergeHistory(a.Store, a.Roots(), limit)
}

// MergeHistory reads the journals of roots and merges them newest first.
// limit <= 0 returns everything.
func MergeHistory(j ports.Journal, roots []string, limit int) ([]*ports.JournalEntry, error) {
	var all []*ports.JournalEntry
	for _, root := range roots {
		entries, err := j.Recent(root, limit)
		if err != nil {
			return nil, fmt.Errorf("history %s: %w", root, err)
		}
		all = append(all, entries...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Time > all[j].Time
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Projects lists registered roots and projects discovered so far.
func (a *App) Projects() []socket.ProjectInfo {
	registered := make(map[string]bool)
	for _, r := range a.Discovery.Roots() {
		registered[r] = true
	}
	var out []socket.ProjectInfo
	for _, p := range a.Discovery.Projects() {
		out = append(out, socket.ProjectInfo{Root: p.RootPath, Registered: registered[p.RootPath]})
	}
	return out
}

// Status reports daemon counters for the health endpoints.
func (a *App) Status() socket.HealthResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return socket.HealthResult{
		Roots:        a.Roots(),
		Batches:      a.batches,
		LastResult:   string(a.lastResult),
		HTTPPort:     a.WebServer.Port(),
		DatabasePath: a.Config.DBPath,
	}
}
