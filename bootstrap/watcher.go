package bootstrap

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// moduleWatcher watches the modules directory and triggers rediscovery when
// a module.json appears, changes or disappears. Events are debounced so a
// burst of writes produces a single refresh.
type moduleWatcher struct {
	watcher *fsnotify.Watcher
	logger  zerolog.Logger
	done    chan struct{}
}

const watchDebounce = 500 * time.Millisecond

func newModuleWatcher(root string, logger zerolog.Logger, onChange func()) (*moduleWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(root); err != nil {
		watcher.Close()
		return nil, err
	}
	// Each module lives in its own subdirectory; watch those too so manifest
	// edits inside them are seen.
	entries, err := os.ReadDir(root)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				_ = watcher.Add(filepath.Join(root, entry.Name()))
			}
		}
	}

	w := &moduleWatcher{
		watcher: watcher,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go w.loop(root, onChange)
	return w, nil
}

func (w *moduleWatcher) loop(root string, onChange func()) {
	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			// New module directory: start watching its manifest.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.watcher.Add(event.Name)
				}
			}
			w.logger.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("modules dir changed")
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			w.logger.Info().Str("dir", root).Msg("rediscovering modules")
			onChange()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("module watch error")

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// relevant reports whether an event should trigger rediscovery. Only
// directory-level changes and manifest writes count; editor temp files and
// module source edits do not.
func (w *moduleWatcher) relevant(event fsnotify.Event) bool {
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if base == "module.json" {
		return true
	}
	return event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}

func (w *moduleWatcher) Stop() {
	close(w.done)
	w.watcher.Close()
}
