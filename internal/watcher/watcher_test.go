package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestEventTypeOf(t *testing.T) {
	assert.Equal(t, EventTypeCreated, eventTypeOf(fsnotify.Create))
	assert.Equal(t, EventTypeModified, eventTypeOf(fsnotify.Write))
	assert.Equal(t, EventTypeDeleted, eventTypeOf(fsnotify.Remove))
	assert.Equal(t, EventTypeRenamed, eventTypeOf(fsnotify.Rename))
	assert.Equal(t, EventTypeCreated, eventTypeOf(fsnotify.Create|fsnotify.Write))
}

func TestNewFileWatcher(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.NotNil(t, watcher.watcher)
	assert.NotNil(t, watcher.debouncer)
	assert.NotNil(t, watcher.logger)
	assert.Empty(t, watcher.filters)
	assert.Empty(t, watcher.handlers)

	watcher.AddFilter(SourceFilter)
	watcher.AddFilter(NoHiddenFilter)
	assert.Len(t, watcher.filters, 2)

	watcher.AddHandler(func(context.Context, []ChangeEvent) error { return nil })
	assert.Len(t, watcher.handlers, 1)
}

func TestFileWatcherAddPath(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	dir := t.TempDir()
	assert.NoError(t, watcher.AddPath(dir))
	assert.Error(t, watcher.AddPath(filepath.Join(dir, "missing")))
	assert.Error(t, watcher.AddPath(""))

	file := filepath.Join(dir, "main.stex")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.Error(t, watcher.AddPath(file), "files are not watched directly")
}

func TestFileWatcherAddRecursive(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "chapters", "appendix"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git", "objects"), 0o755))

	require.NoError(t, watcher.AddRecursive(dir))
	assert.Equal(t, []string{
		dir,
		filepath.Join(dir, "chapters"),
		filepath.Join(dir, "chapters", "appendix"),
	}, watcher.WatchList())
}

func TestFileWatcherDeliversSourceChanges(t *testing.T) {
	watcher, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	dir := t.TempDir()
	require.NoError(t, watcher.AddPath(dir))
	watcher.AddFilter(SourceFilter)
	watcher.AddFilter(NoHiddenFilter)

	var (
		mu      sync.Mutex
		batches [][]ChangeEvent
	)
	watcher.AddHandler(func(_ context.Context, events []ChangeEvent) error {
		mu.Lock()
		batches = append(batches, events)
		mu.Unlock()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.tex"), []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".main.stex"), []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.stex"), []byte("\\summ{i}"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) > 0
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, batch := range batches {
		for _, e := range batch {
			assert.Equal(t, filepath.Join(dir, "main.stex"), e.Path)
		}
	}
}

func TestDebouncer(t *testing.T) {
	debouncer := NewDebouncer(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go debouncer.start(ctx)

	debouncer.Add(ChangeEvent{Type: EventTypeCreated, Path: "b.stex"})
	debouncer.Add(ChangeEvent{Type: EventTypeModified, Path: "a.stex"})
	debouncer.Add(ChangeEvent{Type: EventTypeModified, Path: "b.stex"})

	select {
	case events := <-debouncer.Output():
		require.Len(t, events, 2)
		assert.Equal(t, "a.stex", events[0].Path)
		assert.Equal(t, "b.stex", events[1].Path)
		assert.Equal(t, EventTypeModified, events[1].Type, "last event per path wins")
	case <-time.After(2 * time.Second):
		t.Fatal("no debounced batch")
	}

	select {
	case events := <-debouncer.Output():
		t.Fatalf("unexpected second batch: %v", events)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestSourceFilter(t *testing.T) {
	testCases := []struct {
		path     string
		expected bool
	}{
		{"main.stex", true},
		{"chapters/one.sex", true},
		{"MAIN.STEX", true},
		{"main.tex", false},
		{"main.pdf", false},
		{"main", false},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.expected, SourceFilter(tc.path))
		})
	}
}

func TestNoHiddenFilter(t *testing.T) {
	assert.True(t, NoHiddenFilter("dir/main.stex"))
	assert.False(t, NoHiddenFilter("dir/.#main.stex"))
	assert.False(t, NoHiddenFilter(".main.stex"))
}

func TestNoBackupFilter(t *testing.T) {
	assert.True(t, NoBackupFilter("main.stex"))
	assert.False(t, NoBackupFilter("main.stex~"))
	assert.False(t, NoBackupFilter("main.stex.swp"))
	assert.False(t, NoBackupFilter("main.stex.bak"))
}
