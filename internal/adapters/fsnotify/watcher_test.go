package fsnotify

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/treesync/internal/ports"
)

// =============================================================================
// Batch coalescing
// =============================================================================

func TestBatch_MergeRules(t *testing.T) {
	tests := []struct {
		name string
		ops  []ports.ChangeKind
		want ports.ChangeKind
	}{
		{"single write", []ports.ChangeKind{ports.ChangeChanged}, ports.ChangeChanged},
		{"create then write", []ports.ChangeKind{ports.ChangeCreated, ports.ChangeChanged}, ports.ChangeCreated},
		{"create then delete", []ports.ChangeKind{ports.ChangeCreated, ports.ChangeDeleted}, ports.ChangeDeleted},
		{"atomic save", []ports.ChangeKind{ports.ChangeDeleted, ports.ChangeCreated}, ports.ChangeChanged},
		{"write then delete", []ports.ChangeKind{ports.ChangeChanged, ports.ChangeDeleted}, ports.ChangeDeleted},
		{"many writes", []ports.ChangeKind{ports.ChangeChanged, ports.ChangeChanged, ports.ChangeChanged}, ports.ChangeChanged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBatch()
			for _, k := range tt.ops {
				b.add("/p/a.cc", k)
			}
			require.Equal(t, 1, b.len())
			assert.Equal(t, tt.want, b.entries()[0].Kind)
		})
	}
}

func TestBatch_KeepsFirstSeenOrder(t *testing.T) {
	b := newBatch()
	b.add("/p/b", ports.ChangeChanged)
	b.add("/p/a", ports.ChangeCreated)
	b.add("/p/b", ports.ChangeChanged)
	b.add("/p/c", ports.ChangeDeleted)

	assert.Equal(t, []ports.PathChangeEntry{
		{Path: "/p/b", Kind: ports.ChangeChanged},
		{Path: "/p/a", Kind: ports.ChangeCreated},
		{Path: "/p/c", Kind: ports.ChangeDeleted},
	}, b.entries())
}

func TestChangeKind(t *testing.T) {
	k, ok := changeKind(fsnotify.Write)
	assert.True(t, ok)
	assert.Equal(t, ports.ChangeChanged, k)

	k, _ = changeKind(fsnotify.Create)
	assert.Equal(t, ports.ChangeCreated, k)

	k, _ = changeKind(fsnotify.Rename)
	assert.Equal(t, ports.ChangeDeleted, k)

	k, _ = changeKind(fsnotify.Create | fsnotify.Remove)
	assert.Equal(t, ports.ChangeDeleted, k, "removal wins over creation in one event")

	_, ok = changeKind(fsnotify.Chmod)
	assert.False(t, ok)
}

func TestShouldIgnorePath(t *testing.T) {
	assert.True(t, shouldIgnorePath("/p/.git/index"))
	assert.True(t, shouldIgnorePath("/p/.treesync/log/daemon.log"))
	assert.True(t, shouldIgnorePath("/p/src/.a.cc.swp"))
	assert.True(t, shouldIgnorePath("/p/src/a.cc~"))
	assert.True(t, shouldIgnorePath("/p/src/4913"))
	assert.True(t, shouldIgnorePath("/p/.DS_Store"))
	assert.False(t, shouldIgnorePath("/p/src/issue4913"), "4913 is matched by exact name only")
	assert.False(t, shouldIgnorePath("/p/src/issue4913.cc"))
	assert.False(t, shouldIgnorePath("/p/src/a.cc"))
	assert.False(t, shouldIgnorePath("/p/"+ports.ProjectFileName))
}

func TestOwnerOf_InnermostRoot(t *testing.T) {
	roots := []string{"/p/sub", "/p"} // sorted longest first, as flush does
	assert.Equal(t, "/p/sub", ownerOf("/p/sub/a.cc", roots))
	assert.Equal(t, "/p", ownerOf("/p/subway/a.cc", roots))
	assert.Equal(t, "/p", ownerOf("/p", roots))
	assert.Equal(t, "", ownerOf("/q/a.cc", roots))
}

// =============================================================================
// Live watching
// =============================================================================

func newTestWatcher(t *testing.T) *Watcher {
	t.Helper()
	w, err := NewWatcher(Options{
		Debounce: 20 * time.Millisecond,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

// waitForEntry drains batches until one contains path, or times out.
func waitForEntry(ch <-chan []ports.PathChangeEntry, path string, timeout time.Duration) (ports.PathChangeEntry, bool) {
	deadline := time.After(timeout)
	for {
		select {
		case batch := <-ch:
			for _, e := range batch {
				if e.Path == path {
					return e, true
				}
			}
		case <-deadline:
			return ports.PathChangeEntry{}, false
		}
	}
}

func watchInto(t *testing.T, w *Watcher, dir string) <-chan []ports.PathChangeEntry {
	t.Helper()
	ch := make(chan []ports.PathChangeEntry, 64)
	require.NoError(t, w.Watch(dir, func(b []ports.PathChangeEntry) { ch <- b }))
	// Give watcher time to start
	time.Sleep(50 * time.Millisecond)
	return ch
}

func TestWatcher_DetectsFileChange(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "test.cc")
	require.NoError(t, os.WriteFile(testFile, []byte("// original"), 0644))

	w := newTestWatcher(t)
	ch := watchInto(t, w, dir)

	require.NoError(t, os.WriteFile(testFile, []byte("// modified"), 0644))

	e, ok := waitForEntry(ch, testFile, 2*time.Second)
	require.True(t, ok, "expected batch for file change")
	assert.Equal(t, ports.ChangeChanged, e.Kind)
}

func TestWatcher_DetectsNewFile(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t)
	ch := watchInto(t, w, dir)

	newFile := filepath.Join(dir, "new_file.cc")
	require.NoError(t, os.WriteFile(newFile, []byte("// new"), 0644))

	e, ok := waitForEntry(ch, newFile, 2*time.Second)
	require.True(t, ok, "expected batch for new file")
	assert.Equal(t, ports.ChangeCreated, e.Kind, "create followed by write stays a creation")
}

func TestWatcher_DetectsDeletedFile(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "doomed.cc")
	require.NoError(t, os.WriteFile(testFile, []byte("// bye"), 0644))

	w := newTestWatcher(t)
	ch := watchInto(t, w, dir)

	require.NoError(t, os.Remove(testFile))

	e, ok := waitForEntry(ch, testFile, 2*time.Second)
	require.True(t, ok, "expected batch for deleted file")
	assert.Equal(t, ports.ChangeDeleted, e.Kind)
}

func TestWatcher_WatchesNewSubdirectories(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t)
	ch := watchInto(t, w, dir)

	sub := filepath.Join(dir, "pkg")
	require.NoError(t, os.Mkdir(sub, 0755))
	_, ok := waitForEntry(ch, sub, 2*time.Second)
	require.True(t, ok, "expected batch for new directory")

	nested := filepath.Join(sub, "x.cc")
	require.NoError(t, os.WriteFile(nested, []byte("// x"), 0644))
	_, ok = waitForEntry(ch, nested, 2*time.Second)
	assert.True(t, ok, "files in new directories are watched")
}

func TestWatcher_IgnoresNoise(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0755))

	w := newTestWatcher(t)
	ch := watchInto(t, w, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "index"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".a.cc.swp"), []byte("x"), 0644))
	marker := filepath.Join(dir, "real.cc")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0644))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case batch := <-ch:
			for _, e := range batch {
				assert.NotContains(t, e.Path, ".git")
				assert.NotContains(t, e.Path, ".swp")
				if e.Path == marker {
					return
				}
			}
		case <-deadline:
			t.Fatal("marker file never reported")
		}
	}
}

func TestWatcher_CoalescesBurst(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "hot.cc")
	require.NoError(t, os.WriteFile(testFile, []byte("0"), 0644))

	w, err := NewWatcher(Options{
		Debounce: 200 * time.Millisecond,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	defer w.Stop()
	ch := watchInto(t, w, dir)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(testFile, []byte{byte('a' + i)}, 0644))
	}

	select {
	case batch := <-ch:
		count := 0
		for _, e := range batch {
			if e.Path == testFile {
				count++
			}
		}
		assert.Equal(t, 1, count, "a path appears once per batch")
	case <-time.After(3 * time.Second):
		t.Fatal("no batch delivered")
	}
}

func TestWatcher_MaxBatchFlushesEarly(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(Options{
		Debounce: 10 * time.Second,
		MaxBatch: 3,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	defer w.Stop()
	ch := watchInto(t, w, dir)

	for _, name := range []string{"a.cc", "b.cc", "c.cc"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	select {
	case batch := <-ch:
		assert.Len(t, batch, 3)
	case <-time.After(2 * time.Second):
		t.Fatal("full batch not flushed before the debounce expired")
	}
}

func TestWatcher_MaxWaitBoundsContinuousWrites(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "build.log")
	important := filepath.Join(dir, "important.cc")

	w, err := NewWatcher(Options{
		Debounce: 200 * time.Millisecond,
		MaxWait:  400 * time.Millisecond,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	defer w.Stop()
	ch := watchInto(t, w, dir)

	// Keep writing well inside the debounce window for longer than the
	// test waits for a batch.
	stop := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(30 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_ = os.WriteFile(logFile, []byte{byte(i)}, 0644)
			}
		}
	}()
	defer func() {
		close(stop)
		<-writerDone
	}()

	time.Sleep(60 * time.Millisecond)
	require.NoError(t, os.WriteFile(important, []byte("x"), 0644))

	_, ok := waitForEntry(ch, important, 2*time.Second)
	assert.True(t, ok, "a batch is delivered while events keep arriving")
}

func TestNewWatcher_MaxWaitDefaults(t *testing.T) {
	w, err := NewWatcher(Options{Debounce: 50 * time.Millisecond})
	require.NoError(t, err)
	defer w.Stop()
	assert.Equal(t, 500*time.Millisecond, w.maxWait)

	w2, err := NewWatcher(Options{Debounce: 50 * time.Millisecond, MaxWait: time.Millisecond})
	require.NoError(t, err)
	defer w2.Stop()
	assert.Equal(t, 50*time.Millisecond, w2.maxWait, "never shorter than the debounce")
}

func TestWatcher_StopCleanup(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(Options{})
	require.NoError(t, err)

	require.NoError(t, w.Watch(dir, func([]ports.PathChangeEntry) {}))
	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop(), "second stop is a no-op")
	assert.Error(t, w.Watch(dir, func([]ports.PathChangeEntry) {}))
}

func TestWatcher_MissingRoot(t *testing.T) {
	var w ports.Watcher = newTestWatcher(t)
	err := w.Watch(filepath.Join(t.TempDir(), "gone"), func([]ports.PathChangeEntry) {})
	assert.Error(t, err)
	assert.NoError(t, w.Stop(), "stop after a failed watch does not hang")
}
