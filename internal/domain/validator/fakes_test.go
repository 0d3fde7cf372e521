package validator

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/corey/treesync/internal/domain/paths"
	"github.com/corey/treesync/internal/ports"
)

// filterFunc adapts a function to ports.PathFilter.
type filterFunc func(paths.RelativePath) bool

func (f filterFunc) Include(p paths.RelativePath) bool { return f(p) }

var includeAll = filterFunc(func(paths.RelativePath) bool { return true })

// excludeNames rejects any path whose last component is in names.
func excludeNames(names ...string) filterFunc {
	return func(p paths.RelativePath) bool {
		for _, n := range names {
			if p.Name() == n {
				return false
			}
		}
		return true
	}
}

// includeSuffixes accepts files ending in one of the suffixes.
func includeSuffixes(suffixes ...string) filterFunc {
	return func(p paths.RelativePath) bool {
		for _, s := range suffixes {
			if strings.HasSuffix(p.Name(), s) {
				return true
			}
		}
		return false
	}
}

// fakeLookup resolves paths against a fixed set of projects, longest root first.
type fakeLookup struct {
	mu       sync.Mutex
	projects []*ports.Project
	calls    int
}

func newFakeLookup(projects ...*ports.Project) *fakeLookup {
	return &fakeLookup{projects: projects}
}

func (l *fakeLookup) GetProject(path string) (*ports.Project, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	var best *ports.Project
	for _, p := range l.projects {
		if _, ok := paths.SplitPrefix(path, p.RootPath, paths.CaseSensitive); !ok {
			continue
		}
		if best == nil || len(p.RootPath) > len(best.RootPath) {
			best = p
		}
	}
	return best, best != nil
}

func (l *fakeLookup) GetProjectFromRootPath(root string) (*ports.Project, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.projects {
		if p.RootPath == filepath.Clean(root) {
			return p, true
		}
	}
	return nil, false
}

// flakyLookup forgets projects after the first n lookups, simulating a
// project being removed between filtering and name resolution.
type flakyLookup struct {
	*fakeLookup
	remaining int
}

func (l *flakyLookup) GetProject(path string) (*ports.Project, bool) {
	if l.remaining <= 0 {
		return nil, false
	}
	l.remaining--
	return l.fakeLookup.GetProject(path)
}

var errProbe = errors.New("permission denied")

// fakeProbe answers from a fixed table; unlisted paths are unknown.
type fakeProbe struct {
	mu     sync.Mutex
	kinds  map[string]ports.EntryKind
	errs   map[string]error
	probed []string
}

func newFakeProbe() *fakeProbe {
	return &fakeProbe{kinds: map[string]ports.EntryKind{}, errs: map[string]error{}}
}

func (p *fakeProbe) file(ps ...string) *fakeProbe {
	for _, s := range ps {
		p.kinds[filepath.FromSlash(s)] = ports.EntryFile
	}
	return p
}

func (p *fakeProbe) dir(ps ...string) *fakeProbe {
	for _, s := range ps {
		p.kinds[filepath.FromSlash(s)] = ports.EntryDirectory
	}
	return p
}

func (p *fakeProbe) fail(path string) *fakeProbe {
	p.errs[filepath.FromSlash(path)] = errProbe
	return p
}

func (p *fakeProbe) Probe(path string) (ports.EntryKind, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probed = append(p.probed, path)
	if err, ok := p.errs[path]; ok {
		return ports.EntryUnknown, err
	}
	return p.kinds[path], nil
}

func (p *fakeProbe) probedPaths() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.probed...)
}

func project(root string, dirs, files ports.PathFilter) *ports.Project {
	return &ports.Project{
		RootPath:              filepath.FromSlash(root),
		DirectoryFilter:       dirs,
		FileFilter:            files,
		SearchableFilesFilter: includeSuffixes(".cc", ".h"),
	}
}

func entry(kind ports.ChangeKind, path string) ports.PathChangeEntry {
	return ports.PathChangeEntry{Path: filepath.FromSlash(path), Kind: kind}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
