// Package watch reports edits to a fixed set of files, debounced so that
// an editor's write-rename-chmod burst arrives as one change.
package watch

import (
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before its change is
// emitted.
const DefaultDebounce = 100 * time.Millisecond

// Watcher monitors files for changes using fsnotify. The containing
// directories are watched so that atomic replace-by-rename is seen.
type Watcher struct {
	Changes <-chan string // cleaned absolute paths

	changes  chan string
	quit     chan struct{}
	done     chan struct{}
	files    map[string]bool
	debounce time.Duration
	watcher  *fsnotify.Watcher
}

// New creates a watcher for the given files.
func New(paths ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := newWatcher(DefaultDebounce)
	w.watcher = fw
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = fw.Close()
			return nil, err
		}
		w.files[abs] = true
	}
	return w, nil
}

func newWatcher(debounce time.Duration) *Watcher {
	ch := make(chan string, 16)
	return &Watcher{
		Changes:  ch,
		changes:  ch,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		files:    make(map[string]bool),
		debounce: debounce,
	}
}

// Start begins watching.
func (w *Watcher) Start() error {
	dirs := make(map[string]bool)
	for f := range w.files {
		dirs[filepath.Dir(f)] = true
	}
	for d := range dirs {
		if err := w.watcher.Add(d); err != nil {
			return err
		}
	}
	go w.loop(w.watcher.Events, w.watcher.Errors)
	return nil
}

// Stop closes the watcher and the Changes channel. It does not wait for
// the consumer: changes that do not fit in the buffer are dropped.
func (w *Watcher) Stop() {
	close(w.quit)
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
	<-w.done
	close(w.changes)
}

// emit delivers file unless the watcher is stopping.
func (w *Watcher) emit(file string) bool {
	select {
	case w.changes <- file:
		return true
	default:
	}
	select {
	case w.changes <- file:
		return true
	case <-w.quit:
		return false
	}
}

func (w *Watcher) loop(events <-chan fsnotify.Event, errs <-chan error) {
	defer close(w.done)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				for file := range pending {
					if !w.emit(file) {
						break
					}
				}
				return
			}
			name := filepath.Clean(event.Name)
			if !w.files[name] {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				pending[name] = time.Now()
			}

		case <-ticker.C:
			now := time.Now()
			for file, t := range pending {
				if now.Sub(t) >= w.debounce {
					if !w.emit(file) {
						return
					}
					delete(pending, file)
				}
			}

		case <-w.quit:
			return

		case err, ok := <-errs:
			if !ok {
				return
			}
			log.Printf("watch: %v", err)
		}
	}
}
