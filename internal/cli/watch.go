package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// debounceDefault is the default quiet period before a re-run.
const debounceDefault = 300 * time.Millisecond

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	TestOptions
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{TestOptions: TestOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run scenarios whenever cases or the build change",
		Long: `Run the scenarios once, then again every time a file under the cases or
build directory changes, until interrupted.

Bursts of changes (a rebuild, an editor save) are coalesced into a single
run after a quiet period. Accepts the same flags as test.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	opts.flags.registerRun(cmd)
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", debounceDefault, "quiet period before re-running")

	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := opts.flags.load(opts.RootOptions, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load configuration", err)
	}

	ctx, cancel := signalContext(cmd, logger)
	defer cancel()

	runOnce := func() error {
		result, err := runSuite(ctx, &opts.TestOptions, cfg, logger)
		if err != nil {
			return reportCommandError(formatter, err)
		}
		if ctx.Err() != nil {
			// Interrupted mid-run; the partial result is not worth printing.
			return nil
		}
		if err := outputTestResult(formatter, result); err != nil && GetExitCode(err) != ExitFailure {
			return err
		}
		return nil
	}

	if err := runOnce(); err != nil {
		return err
	}

	w := &changeWatcher{
		roots:    []string{cfg.Cases, cfg.Build},
		debounce: opts.Debounce,
		logger:   logger,
	}
	w.ignoreDir(cfg.Staging)
	if cfg.DB != "" {
		for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
			w.ignoreFile(cfg.DB + suffix)
		}
	}

	var runErr error
	err = w.Run(ctx, func(path string) {
		if runErr != nil {
			return
		}
		if formatter.Format != "json" {
			fmt.Fprintf(formatter.Writer, "\n--- %s changed, re-running ---\n\n", path)
		}
		runErr = runOnce()
		if runErr != nil {
			cancel()
		}
	})
	if runErr != nil {
		return runErr
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWatch, "failed to watch for changes", err)
	}
	return nil
}

// changeWatcher reports debounced file changes under a set of directory
// trees. fsnotify watches single directories, so every subdirectory is
// added, including ones created later.
type changeWatcher struct {
	roots        []string
	ignoredDirs  []string
	ignoredFiles map[string]bool
	debounce     time.Duration
	logger       *slog.Logger
}

// ignoreDir drops events at or below dir.
func (w *changeWatcher) ignoreDir(dir string) {
	if abs, err := filepath.Abs(dir); err == nil {
		w.ignoredDirs = append(w.ignoredDirs, abs)
	}
}

// ignoreFile drops events for path.
func (w *changeWatcher) ignoreFile(path string) {
	if w.ignoredFiles == nil {
		w.ignoredFiles = make(map[string]bool)
	}
	if abs, err := filepath.Abs(path); err == nil {
		w.ignoredFiles[abs] = true
	}
}

func (w *changeWatcher) ignored(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if w.ignoredFiles[abs] {
		return true
	}
	for _, dir := range w.ignoredDirs {
		if abs == dir || strings.HasPrefix(abs, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Run calls onChange with the last changed path once events have been
// quiet for the debounce period. onChange runs on the watcher's goroutine,
// so changes made while it runs are reported afterwards. Blocks until ctx
// is cancelled.
func (w *changeWatcher) Run(ctx context.Context, onChange func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	for _, root := range w.roots {
		if err := w.addTree(watcher, root); err != nil {
			return err
		}
	}

	// Single debounce timer, initialized as stopped; first event starts it.
	debounceTimer := time.NewTimer(w.debounce)
	debounceTimer.Stop()
	defer debounceTimer.Stop()

	var last string
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-debounceTimer.C:
			onChange(last)

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if w.ignored(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(watcher, event.Name); err != nil {
						w.logger.Warn("failed to watch new directory", "dir", event.Name, "error", err)
					}
				}
			}
			w.logger.Debug("change detected", "path", event.Name, "op", event.Op.String())
			last = event.Name

			if !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			debounceTimer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// addTree watches dir and every directory below it.
func (w *changeWatcher) addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path != dir {
				// Removed while walking.
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
