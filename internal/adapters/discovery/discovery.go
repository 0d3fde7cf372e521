// Package discovery implements ports.ProjectLookup. A project is any directory
// holding a project definition file, or a root registered explicitly with
// AddRoot. Lookups walk from the changed path up to the volume root; the
// innermost project wins. Per-directory answers are cached in an LRU.
package discovery

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/corey/treesync/internal/ports"
)

// DefaultCacheSize is the number of directories remembered between lookups.
const DefaultCacheSize = 4096

// ErrNotDirectory is returned by AddRoot for paths that are not directories.
var ErrNotDirectory = errors.New("not a directory")

// Options configures a Discovery.
type Options struct {
	CacheSize int
	Logger    *slog.Logger
}

// Discovery finds the project owning a path.
type Discovery struct {
	logger *slog.Logger

	mu    sync.RWMutex
	roots map[string]bool // explicitly registered roots

	// cache maps a directory to the project rooted there, or nil when the
	// directory is known not to be a project root.
	cache *lru.Cache[string, *ports.Project]
}

// New creates a Discovery.
func New(opts Options) (*Discovery, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *ports.Project](size)
	if err != nil {
		return nil, fmt.Errorf("create project cache: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Discovery{
		logger: logger,
		roots:  make(map[string]bool),
		cache:  cache,
	}, nil
}

// AddRoot registers root as a project even if it has no project file.
func (d *Discovery) AddRoot(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("add root %s: %w", abs, ErrNotDirectory)
	}
	d.mu.Lock()
	d.roots[abs] = true
	d.mu.Unlock()
	d.cache.Remove(abs)
	return nil
}

// Roots returns the explicitly registered roots, sorted.
func (d *Discovery) Roots() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.roots))
	for r := range d.roots {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// GetProject implements ports.ProjectLookup.
func (d *Discovery) GetProject(path string) (*ports.Project, bool) {
	dir := d.startDir(filepath.Clean(path))
	for {
		if p := d.projectAt(dir); p != nil {
			return p, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, false
		}
		dir = parent
	}
}

// startDir returns the first directory a lookup for path inspects: path
// itself when it is a directory, otherwise its parent. File paths never enter
// the cache.
func (d *Discovery) startDir(path string) string {
	if d.cache.Contains(path) {
		return path
	}
	d.mu.RLock()
	registered := d.roots[path]
	d.mu.RUnlock()
	if registered {
		return path
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return path
	}
	return filepath.Dir(path)
}

// GetProjectFromRootPath implements ports.ProjectLookup.
func (d *Discovery) GetProjectFromRootPath(root string) (*ports.Project, bool) {
	p := d.projectAt(filepath.Clean(root))
	return p, p != nil
}

// Invalidate forgets every cached answer. Call it after a project file changes.
func (d *Discovery) Invalidate() {
	d.cache.Purge()
}

// Projects returns every project currently known: registered roots plus
// roots discovered by earlier lookups that are still cached.
func (d *Discovery) Projects() []*ports.Project {
	seen := make(map[string]bool)
	var out []*ports.Project
	for _, r := range d.Roots() {
		if p := d.projectAt(r); p != nil {
			seen[p.RootPath] = true
			out = append(out, p)
		}
	}
	for _, key := range d.cache.Keys() {
		p, ok := d.cache.Peek(key)
		if ok && p != nil && !seen[p.RootPath] {
			seen[p.RootPath] = true
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RootPath < out[j].RootPath })
	return out
}

// projectAt returns the project rooted exactly at dir, or nil.
func (d *Discovery) projectAt(dir string) *ports.Project {
	if p, ok := d.cache.Get(dir); ok {
		return p
	}
	p := d.load(dir)
	d.cache.Add(dir, p)
	return p
}

func (d *Discovery) load(dir string) *ports.Project {
	for _, name := range []string{ports.ProjectFileName, ports.ProjectFileNameObsolete} {
		file := filepath.Join(dir, name)
		data, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		pf, err := ParseProjectFile(data)
		if err != nil {
			d.logger.Warn("unreadable project file, indexing everything", "file", file, "error", err)
			return includeAllProject(dir)
		}
		p, err := pf.Build(dir)
		if err != nil {
			d.logger.Warn("invalid project rules, indexing everything", "file", file, "error", err)
			return includeAllProject(dir)
		}
		return p
	}

	d.mu.RLock()
	registered := d.roots[dir]
	d.mu.RUnlock()
	if !registered {
		return nil
	}
	p, err := DefaultProjectFile.Build(dir)
	if err != nil {
		d.logger.Warn("invalid default rules, indexing everything", "root", dir, "error", err)
		return includeAllProject(dir)
	}
	return p
}
