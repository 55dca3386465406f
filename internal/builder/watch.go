package builder

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for further changes before rebuilding.
const DefaultDebounce = 100 * time.Millisecond

// WatchOptions configures Watch.
type WatchOptions struct {
	// TemplatesDir is watched recursively
	TemplatesDir string
	// Files are individual files to watch, such as the config file
	Files []string
	// Debounce defaults to DefaultDebounce
	Debounce time.Duration
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Watch calls rebuild after changes under the templates directory or to one
// of the watched files, until ctx is cancelled. Changes arriving within the
// debounce window are coalesced into a single rebuild. Reporting a rebuild
// error is up to rebuild; watching continues. Rebuilds run on the calling goroutine.
func Watch(ctx context.Context, opts WatchOptions, rebuild func(context.Context) error) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watchDirRecursive(watcher, opts.TemplatesDir); err != nil {
		return fmt.Errorf("failed to watch templates directory: %w", err)
	}

	// Files are watched through their directory so that editors replacing
	// the file on save keep triggering events.
	files := make(map[string]bool, len(opts.Files))
	for _, f := range opts.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", f, err)
		}
		files[abs] = true
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("failed to watch %s: %w", f, err)
		}
	}

	templatesAbs, err := filepath.Abs(opts.TemplatesDir)
	if err != nil {
		return fmt.Errorf("failed to resolve templates directory: %w", err)
	}

	logger.Info("watching for changes", "templates_dir", opts.TemplatesDir, "files", opts.Files)

	// fire is nil while no rebuild is pending. Each relevant event replaces it,
	// which restarts the debounce window.
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event, templatesAbs, files) {
				continue
			}

			// New directories under the templates root must be watched too.
			if event.Op&fsnotify.Create != 0 {
				if err := watchDirRecursive(watcher, event.Name); err != nil {
					logger.Debug("could not watch new path", "path", event.Name, "error", err)
				}
			}

			logger.Debug("change detected", "file", event.Name, "op", event.Op.String())
			fire = time.After(debounce)

		case <-fire:
			fire = nil
			logger.Info("rebuilding")
			if err := rebuild(ctx); err != nil {
				logger.Debug("rebuild failed", "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}

// relevant reports whether an event touches the templates tree or a watched file.
func relevant(event fsnotify.Event, templatesAbs string, files map[string]bool) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	if files[abs] {
		return true
	}
	rel, err := filepath.Rel(templatesAbs, abs)
	return err == nil && rel != ".." && !startsWithParent(rel)
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}

// watchDirRecursive adds a directory and all subdirectories to the watcher.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
