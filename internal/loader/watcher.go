package loader

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const defaultDebounce = 500 * time.Millisecond

// watcher triggers onChange when one of the resource files in a directory is
// written or replaced
type watcher struct {
	dir      string
	files    map[string]bool
	onChange func()
	onReady  func()
	debounce time.Duration
	logger   zerolog.Logger
}

func newWatcher(dir string, debounce time.Duration, onChange func(), logger zerolog.Logger) *watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	files := make(map[string]bool)
	for _, name := range Resources {
		files[name] = true
	}
	for _, name := range lessonPaths {
		files[path.Base(name)] = true
	}
	return &watcher{
		dir:      dir,
		files:    files,
		onChange: onChange,
		debounce: debounce,
		logger:   logger,
	}
}

// dirs returns the directories holding resources. Editors replace files, so
// directories are watched rather than the files themselves.
func (w *watcher) dirs() []string {
	dirs := []string{w.dir}
	for _, name := range lessonPaths {
		sub := filepath.Join(w.dir, filepath.FromSlash(path.Dir(name)))
		if sub == w.dir {
			continue
		}
		if info, err := os.Stat(sub); err == nil && info.IsDir() {
			dirs = append(dirs, sub)
		}
	}
	return dirs
}

// Watch blocks until the context is cancelled or the watcher fails
func (w *watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	for _, dir := range w.dirs() {
		if err := fsw.Add(dir); err != nil {
			return err
		}
		w.logger.Info().Str("dir", dir).Msg("Watching resource directory")
	}
	if w.onReady != nil {
		w.onReady()
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}

			if !w.files[filepath.Base(event.Name)] {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Resource changed")

				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(w.debounce, w.onChange)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("Watcher error")

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
