// Package fsnotify implements the ports.Watcher interface using github.com/fsnotify/fsnotify.
// It recursively watches project directories, drops editor and VCS noise, and
// coalesces rapid events (editors often trigger several writes per save) into
// debounced batches of ports.PathChangeEntry.
package fsnotify

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/corey/treesync/internal/ports"
)

// Directories never watched. Project rules decide everything else.
var ignoreDirs = map[string]bool{
	".git":      true,
	".hg":       true,
	".svn":      true,
	".treesync": true,
}

// File names that are always editor or OS noise.
var ignoreNames = map[string]bool{
	".DS_Store": true,
	"4913":      true, // vim checks directory write permission with this file
}

// File suffixes that are always editor noise.
var ignoreSuffixes = []string{".swp", ".swx", "~"}

// Defaults for Options.
const (
	DefaultDebounce = 100 * time.Millisecond
	DefaultMaxBatch = 10000

	// maxWaitFactor sets the default MaxWait as a multiple of Debounce.
	maxWaitFactor = 10
)

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period after the last event before a batch is delivered.
	Debounce time.Duration
	// MaxBatch flushes early once this many distinct paths are pending.
	MaxBatch int
	// MaxWait bounds how long the oldest pending event may wait while a
	// steady stream of events keeps resetting Debounce. Defaults to 10x Debounce.
	MaxWait time.Duration
	Logger  *slog.Logger
}

// Watcher implements ports.Watcher using fsnotify. One goroutine reads
// events for every watched root, so batch callbacks never run concurrently.
type Watcher struct {
	fw       *fsnotify.Watcher
	debounce time.Duration
	maxBatch int
	maxWait  time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	roots   map[string]func([]ports.PathChangeEntry)
	started bool
	stopped bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWatcher creates a new file system watcher.
func NewWatcher(opts Options) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = DefaultMaxBatch
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = maxWaitFactor * opts.Debounce
	}
	if opts.MaxWait < opts.Debounce {
		opts.MaxWait = opts.Debounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Watcher{
		fw:       fw,
		debounce: opts.Debounce,
		maxBatch: opts.MaxBatch,
		maxWait:  opts.MaxWait,
		logger:   opts.Logger,
		roots:    make(map[string]func([]ports.PathChangeEntry)),
		done:     make(chan struct{}),
	}, nil
}

// Watch starts monitoring root recursively. Batches for paths under root are
// delivered to onBatch. Watching several roots is allowed; a path under two
// nested roots goes to the innermost one.
func (w *Watcher) Watch(root string, onBatch func([]ports.PathChangeEntry)) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return fmt.Errorf("watcher stopped")
	}
	w.roots[absRoot] = onBatch
	if !w.started {
		w.started = true
		w.wg.Add(1)
		go w.loop()
	}
	w.mu.Unlock()

	return w.addTree(absRoot)
}

// Stop ends monitoring and releases all resources. Pending events that have
// not been flushed are dropped. Safe to call multiple times; must not be
// called from inside a batch callback.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	w.mu.Unlock()

	close(w.done)
	err := w.fw.Close()
	w.wg.Wait()
	return err
}

// addTree adds dir and every non-ignored directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil // skip inaccessible paths
		}
		if !info.IsDir() {
			return nil
		}
		if shouldIgnoreDir(info.Name()) && path != dir {
			return filepath.SkipDir
		}
		return w.fw.Add(path)
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	pending := newBatch()
	var oldest time.Time // arrival of the first event in pending
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			kind, relevant := changeKind(event.Op)
			if !relevant || shouldIgnorePath(event.Name) {
				continue
			}
			if kind == ports.ChangeCreated {
				// New directories (including ones moved in with content) need watches.
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.logger.Warn("watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			if pending.len() == 0 {
				oldest = time.Now()
			}
			pending.add(event.Name, kind)
			if pending.len() >= w.maxBatch {
				timer.Stop()
				w.flush(pending)
				pending = newBatch()
				continue
			}
			// Each event restarts the quiet period, but never past maxWait
			// from the oldest pending event.
			wait := min(w.debounce, w.maxWait-time.Since(oldest))
			if wait <= 0 {
				timer.Stop()
				w.flush(pending)
				pending = newBatch()
				continue
			}
			timer.Reset(wait)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			// fsnotify recovers from queue overflows on its own; the lost events
			// are gone either way.
			w.logger.Warn("file watcher error", "error", err)

		case <-timer.C:
			if pending.len() > 0 {
				w.flush(pending)
				pending = newBatch()
			}

		case <-w.done:
			timer.Stop()
			return
		}
	}
}

// flush splits a batch by watched root and hands each part to its callback.
func (w *Watcher) flush(b *batch) {
	w.mu.Lock()
	roots := make([]string, 0, len(w.roots))
	for r := range w.roots {
		roots = append(roots, r)
	}
	callbacks := make(map[string]func([]ports.PathChangeEntry), len(w.roots))
	for r, cb := range w.roots {
		callbacks[r] = cb
	}
	w.mu.Unlock()

	// Longest root first so nested roots win.
	sort.Slice(roots, func(i, j int) bool { return len(roots[i]) > len(roots[j]) })

	parts := make(map[string][]ports.PathChangeEntry)
	var order []string
	for _, e := range b.entries() {
		root := ownerOf(e.Path, roots)
		if root == "" {
			continue
		}
		if _, seen := parts[root]; !seen {
			order = append(order, root)
		}
		parts[root] = append(parts[root], e)
	}
	for _, root := range order {
		callbacks[root](parts[root])
	}
}

func ownerOf(path string, roots []string) string {
	for _, r := range roots {
		if path == r || strings.HasPrefix(path, r+string(filepath.Separator)) {
			return r
		}
	}
	return ""
}

// changeKind maps an fsnotify op to a change kind. Chmod-only events are not
// relevant: permissions do not change indexed content.
func changeKind(op fsnotify.Op) (ports.ChangeKind, bool) {
	switch {
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return ports.ChangeDeleted, true
	case op.Has(fsnotify.Create):
		return ports.ChangeCreated, true
	case op.Has(fsnotify.Write):
		return ports.ChangeChanged, true
	default:
		return 0, false
	}
}

// shouldIgnoreDir returns true if the directory name should be skipped.
func shouldIgnoreDir(name string) bool {
	return ignoreDirs[name]
}

// shouldIgnorePath returns true if the path should never reach a batch.
func shouldIgnorePath(path string) bool {
	base := filepath.Base(path)

	if ignoreNames[base] {
		return true
	}
	for _, suffix := range ignoreSuffixes {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}

	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if ignoreDirs[part] {
			return true
		}
	}
	return false
}
