package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/conform/internal/testutil"
)

// syncBuffer is a bytes.Buffer safe for one writer and concurrent readers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startWatcher runs w until the test ends and counts onChange calls.
func startWatcher(t *testing.T, w *changeWatcher) *atomic.Int32 {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	var calls atomic.Int32

	go func() {
		done <- w.Run(ctx, func(string) { calls.Add(1) })
	}()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return &calls
}

func TestChangeWatcher_ReportsChanges(t *testing.T) {
	root := t.TempDir()
	w := &changeWatcher{roots: []string{root}, debounce: 10 * time.Millisecond, logger: discardLogger()}
	calls := startWatcher(t, w)

	// The watcher registers asynchronously; keep touching until it notices.
	i := 0
	assert.Eventually(t, func() bool {
		i++
		testutil.WriteFile(t, root, "case.yaml", strconv.Itoa(i))
		return calls.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)
}

func TestChangeWatcher_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	w := &changeWatcher{roots: []string{root}, debounce: 10 * time.Millisecond, logger: discardLogger()}
	calls := startWatcher(t, w)

	i := 0
	require.Eventually(t, func() bool {
		i++
		testutil.WriteFile(t, root, "first.yaml", strconv.Itoa(i))
		return calls.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, os.Mkdir(filepath.Join(root, "nested"), 0o755))
	time.Sleep(100 * time.Millisecond)
	before := calls.Load()

	assert.Eventually(t, func() bool {
		i++
		testutil.WriteFile(t, root, "nested/case.yaml", strconv.Itoa(i))
		return calls.Load() > before
	}, 5*time.Second, 50*time.Millisecond)
}

func TestChangeWatcher_IgnoresStagingAndDatabase(t *testing.T) {
	root := t.TempDir()
	staging := filepath.Join(root, "tmp")
	require.NoError(t, os.MkdirAll(filepath.Join(staging, "sub"), 0o755))

	w := &changeWatcher{roots: []string{root}, debounce: 10 * time.Millisecond, logger: discardLogger()}
	w.ignoreDir(staging)
	w.ignoreFile(filepath.Join(root, "history.db"))

	assert.True(t, w.ignored(staging))
	assert.True(t, w.ignored(filepath.Join(staging, "sub", "output")))
	assert.True(t, w.ignored(filepath.Join(root, "history.db")))
	assert.False(t, w.ignored(filepath.Join(root, "tmpfile")))
	assert.False(t, w.ignored(filepath.Join(root, "case.yaml")))

	calls := startWatcher(t, w)
	time.Sleep(100 * time.Millisecond)
	for i := range 5 {
		testutil.WriteFile(t, staging, "sub/output", strconv.Itoa(i))
		testutil.WriteFile(t, root, "history.db", strconv.Itoa(i))
	}
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestChangeWatcher_MissingRoot(t *testing.T) {
	w := &changeWatcher{
		roots:    []string{filepath.Join(t.TempDir(), "nope")},
		debounce: time.Millisecond,
		logger:   discardLogger(),
	}
	err := w.Run(context.Background(), func(string) {})
	require.Error(t, err)
}

func TestWatchCommand_RunsUntilCancelled(t *testing.T) {
	p := newProject(t, testutil.FakeFindany)
	p.write(t, "help.yaml", helpDoc)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	stdout := &syncBuffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--config", p.config, "watch"})

	err := cmd.ExecuteContext(ctx)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestWatchCommand_ReRunsOnChange(t *testing.T) {
	p := newProject(t, testutil.FakeFindany)
	p.write(t, "help.yaml", helpDoc)

	ctx, cancel := context.WithCancel(context.Background())
	stdout := &syncBuffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--config", p.config, "watch", "--debounce", "20ms"})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "1 total")
	}, 5*time.Second, 20*time.Millisecond)

	i := 0
	require.Eventually(t, func() bool {
		i++
		p.write(t, "wrong.yaml", wrongDoc+"# "+strconv.Itoa(i)+"\n")
		return strings.Contains(stdout.String(), "Test Summary: 1 passed, 1 failed, 2 total")
	}, 10*time.Second, 100*time.Millisecond)

	cancel()
	require.NoError(t, <-done, "a failing re-run does not stop the watch")

	out := stdout.String()
	assert.Contains(t, out, "changed, re-running ---")
	assert.Contains(t, out, "✗ wrong")
}

func TestWatchCommand_BadConfig(t *testing.T) {
	p := newProject(t, testutil.FakeFindany)

	out, _, err := execute(t, "--config", p.config, "watch", "--jobs", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E_CONFIG]")
}
