package discovery

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/treesync/internal/domain/paths"
	"github.com/corey/treesync/internal/ports"
)

const chromiumRules = `
directories:
  exclude: [build, out]
files:
  include: ["*.cc", "*.h"]
searchable:
  exclude: ["*.pb.cc"]
`

func newTestDiscovery(t *testing.T) *Discovery {
	t.Helper()
	d, err := New(Options{CacheSize: 64, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	return d
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func rel(s string) paths.RelativePath { return paths.ParseRelative(s) }

func TestParseProjectFile(t *testing.T) {
	pf, err := ParseProjectFile([]byte(chromiumRules))
	require.NoError(t, err)
	assert.Equal(t, []string{"build", "out"}, pf.Directories.Exclude)
	assert.Equal(t, []string{"*.cc", "*.h"}, pf.Files.Include)
	assert.Nil(t, pf.Searchable.Include)

	empty, err := ParseProjectFile(nil)
	require.NoError(t, err)
	assert.True(t, empty.Directories.IsZero())

	_, err = ParseProjectFile([]byte("directories: [unterminated"))
	assert.Error(t, err)
}

func TestGetProject_FindsInnermostProjectFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ports.ProjectFileName), chromiumRules)
	inner := filepath.Join(root, "third_party", "zlib")
	writeFile(t, filepath.Join(inner, ports.ProjectFileNameObsolete), "")
	d := newTestDiscovery(t)

	p, ok := d.GetProject(filepath.Join(root, "src", "net", "socket.cc"))
	require.True(t, ok)
	assert.Equal(t, root, p.RootPath)

	p, ok = d.GetProject(filepath.Join(inner, "deflate.c"))
	require.True(t, ok)
	assert.Equal(t, inner, p.RootPath, "obsolete file name still defines a project")

	p, ok = d.GetProject(root)
	require.True(t, ok, "the root belongs to its own project")
	assert.Equal(t, root, p.RootPath)

	_, ok = d.GetProject(filepath.Dir(root))
	assert.False(t, ok)
}

func TestGetProject_FilesStartAtTheirDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ports.ProjectFileName), chromiumRules)
	src := filepath.Join(root, "src", "a.cc")
	writeFile(t, src, "")
	gone := filepath.Join(root, "src", "deleted.cc")
	d := newTestDiscovery(t)

	for _, path := range []string{src, gone} {
		p, ok := d.GetProject(path)
		require.True(t, ok, path)
		assert.Equal(t, root, p.RootPath)
		assert.False(t, d.cache.Contains(path), "file paths are not cached: %s", path)
	}
	assert.True(t, d.cache.Contains(filepath.Join(root, "src")))
	assert.True(t, d.cache.Contains(root))
}

func TestGetProject_RulesApplied(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ports.ProjectFileName), chromiumRules)
	d := newTestDiscovery(t)

	p, ok := d.GetProject(filepath.Join(root, "src", "a.cc"))
	require.True(t, ok)

	assert.False(t, p.DirectoryFilter.Include(rel("build")))
	assert.True(t, p.DirectoryFilter.Include(rel("src")))
	assert.True(t, p.FileFilter.Include(rel("src/a.cc")))
	assert.False(t, p.FileFilter.Include(rel("src/a.py")))
	assert.True(t, p.FileFilter.Include(rel(ports.ProjectFileName)), "project files are always visible")
	assert.True(t, p.FileFilter.Include(rel("sub/"+ports.ProjectFileNameObsolete)))
	assert.True(t, p.SearchableFilesFilter.Include(rel("src/a.cc")))
	assert.False(t, p.SearchableFilesFilter.Include(rel("gen/a.pb.cc")))
}

func TestGetProject_MalformedFileIncludesEverything(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ports.ProjectFileName), "files: {include: [\"[\"]}")
	d := newTestDiscovery(t)

	p, ok := d.GetProject(filepath.Join(root, "x.py"))
	require.True(t, ok)
	assert.True(t, p.DirectoryFilter.Include(rel("build")))
	assert.True(t, p.FileFilter.Include(rel("x.py")))
}

func TestAddRoot(t *testing.T) {
	root := t.TempDir()
	d := newTestDiscovery(t)

	_, ok := d.GetProject(filepath.Join(root, "main.go"))
	require.False(t, ok)

	require.NoError(t, d.AddRoot(root))
	assert.Equal(t, []string{root}, d.Roots())

	p, ok := d.GetProject(filepath.Join(root, "main.go"))
	require.True(t, ok, "registering a root drops its cached negative answer")
	assert.Equal(t, root, p.RootPath)
	assert.False(t, p.DirectoryFilter.Include(rel(".git")), "default rules skip VCS metadata")
	assert.True(t, p.FileFilter.Include(rel("main.go")))

	file := filepath.Join(root, "main.go")
	writeFile(t, file, "package main")
	err := d.AddRoot(file)
	assert.ErrorIs(t, err, ErrNotDirectory)
	assert.Error(t, d.AddRoot(filepath.Join(root, "missing")))
}

func TestGetProjectFromRootPath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ports.ProjectFileName), chromiumRules)
	d := newTestDiscovery(t)

	p, ok := d.GetProjectFromRootPath(root + string(filepath.Separator))
	require.True(t, ok)
	assert.Equal(t, root, p.RootPath)

	_, ok = d.GetProjectFromRootPath(filepath.Join(root, "src"))
	assert.False(t, ok, "only exact roots match")
}

func TestInvalidate_PicksUpNewProjectFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ports.ProjectFileName), "")
	sub := filepath.Join(root, "sub")
	require.NoError(t, os.MkdirAll(sub, 0755))
	d := newTestDiscovery(t)

	p, ok := d.GetProject(filepath.Join(sub, "a.cc"))
	require.True(t, ok)
	assert.Equal(t, root, p.RootPath)

	writeFile(t, filepath.Join(sub, ports.ProjectFileName), "")
	p, _ = d.GetProject(filepath.Join(sub, "a.cc"))
	assert.Equal(t, root, p.RootPath, "cached answer until invalidated")

	d.Invalidate()
	p, ok = d.GetProject(filepath.Join(sub, "a.cc"))
	require.True(t, ok)
	assert.Equal(t, sub, p.RootPath)
}

func TestProjects(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	writeFile(t, filepath.Join(b, ports.ProjectFileName), "")
	d := newTestDiscovery(t)
	require.NoError(t, d.AddRoot(a))
	_, _ = d.GetProject(filepath.Join(b, "x.cc"))

	var roots []string
	for _, p := range d.Projects() {
		roots = append(roots, p.RootPath)
	}
	assert.ElementsMatch(t, []string{a, b}, roots)
}
