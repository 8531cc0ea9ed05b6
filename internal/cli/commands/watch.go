package commands

import (
	"context"
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

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Re-analyze definitions when files change",
		Long: `Analyze T-SQL definitions and analyze them again whenever a definition
file or the schema file changes.

Changes are debounced (watch_debounce, default 200ms) so that saving several
files at once triggers a single run. Press Ctrl+C to stop.`,
		Example: `  # Watch the project
  sqllineage watch

  # Watch a directory with a longer debounce
  SQLLINEAGE_WATCH_DEBOUNCE=1s sqllineage watch ./procs`,
		RunE: runWatch,
	}
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	cmdCtx := NewCommandContext(cmd)
	ctx := cmd.Context()
	r := cmdCtx.Renderer

	analyze := func() {
		rep, err := cmdCtx.Analyze(ctx, args)
		if err != nil {
			r.Error(err.Error())
			return
		}
		if err := r.Analysis(rep); err != nil {
			r.Error(err.Error())
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, dir := range watchDirs(cmdCtx.targets(args), cmdCtx.Cfg.SchemaFile) {
		if err := addTree(watcher, dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	analyze()
	r.Muted("Watching for changes. Press Ctrl+C to stop.")

	w := &watchLoop{
		debounce: cmdCtx.Cfg.WatchDebounce,
		logger:   cmdCtx.Logger,
		relevant: func(ev fsnotify.Event) bool {
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addTree(watcher, ev.Name); err != nil {
						cmdCtx.Logger.Warn("failed to watch new directory",
							slog.String("path", ev.Name), slog.Any("error", err))
					}
					return true
				}
			}
			return isWatched(ev.Name, cmdCtx.Cfg.Extensions, cmdCtx.Cfg.SchemaFile)
		},
		rebuild: func(changed string) {
			r.Muted("Change detected: " + filepath.Base(changed))
			analyze()
		},
	}
	return w.run(ctx, watcher.Events, watcher.Errors)
}

// watchLoop debounces file events into rebuilds.
type watchLoop struct {
	debounce time.Duration
	logger   *slog.Logger
	relevant func(fsnotify.Event) bool
	rebuild  func(changed string)
}

func (w *watchLoop) run(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) error {
	var fire <-chan time.Time
	var changed string

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("file event", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			changed = ev.Name
			fire = time.After(w.debounce)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", slog.Any("error", err))
		case <-fire:
			fire = nil
			w.rebuild(changed)
		}
	}
}

// watchDirs returns the directories to watch for targets. Files are watched
// through their parent directory.
func watchDirs(targets []string, schemaFile string) []string {
	seen := make(map[string]bool)
	var dirs []string
	add := func(dir string) {
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	for _, t := range targets {
		info, err := os.Stat(t)
		if err == nil && info.IsDir() {
			add(t)
			continue
		}
		add(filepath.Dir(t))
	}
	if schemaFile != "" {
		add(filepath.Dir(schemaFile))
	}
	return dirs
}

// addTree adds dir and its non-hidden subdirectories to the watcher.
func addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// isWatched reports whether a change to path should trigger a rebuild.
func isWatched(path string, extensions []string, schemaFile string) bool {
	if schemaFile != "" && filepath.Clean(path) == filepath.Clean(schemaFile) {
		return true
	}
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	ext := filepath.Ext(path)
	for _, e := range extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
