// Package watch turns filesystem events under a repository into status
// cache invalidations and monitor wake-ups.
package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/chmouel/gitmon/internal/log"
)

// Debounce is the minimum gap between two wake-ups sent to the monitor.
const Debounce = 600 * time.Millisecond

// Invalidator receives the path of every file whose cached status may
// be stale.
type Invalidator interface {
	Invalidate(path string)
}

// Waker is poked when the repository likely changed, so a background
// scan can run before its regular interval.
type Waker interface {
	Wake()
}

// Watcher follows a repository root and its .git metadata tree.
type Watcher struct {
	root  string
	cache Invalidator
	waker Waker

	watcher *fsnotify.Watcher
	done    chan struct{}
	roots   []string

	mu       sync.Mutex
	paths    map[string]struct{}
	lastWake time.Time
	started  bool
}

// New builds a watcher for the repository at root. Either cache or
// waker may be nil when the host only needs one side.
func New(root string, cache Invalidator, waker Waker) *Watcher {
	return &Watcher{
		root:  root,
		cache: cache,
		waker: waker,
	}
}

// Start registers the watch points and launches the event loop.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher
	w.done = make(chan struct{})
	w.paths = make(map[string]struct{})

	gitDir := filepath.Join(w.root, ".git")
	w.roots = []string{
		w.root,
		gitDir,
		filepath.Join(gitDir, "refs"),
		filepath.Join(gitDir, "logs"),
	}
	w.addWatchDir(w.root)
	w.addWatchDir(gitDir)
	w.addWatchTree(filepath.Join(gitDir, "refs"))
	w.addWatchTree(filepath.Join(gitDir, "logs"))

	go w.run()
	return nil
}

// Stop ends the event loop and releases the watches.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	w.mu.Unlock()

	close(w.done)
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				w.maybeWatchNewDir(event.Name)
			}
			w.handle(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("watcher %s: %v", w.root, err)
		}
	}
}

func (w *Watcher) handle(path string) {
	if w.cache != nil && path != "" {
		w.cache.Invalidate(path)
	}
	if w.waker == nil {
		return
	}
	now := time.Now()
	w.mu.Lock()
	fire := w.lastWake.IsZero() || now.Sub(w.lastWake) >= Debounce
	if fire {
		w.lastWake = now
	}
	w.mu.Unlock()
	if fire {
		w.waker.Wake()
	}
}

func (w *Watcher) maybeWatchNewDir(path string) {
	if !w.isUnderRoot(path) {
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	w.addWatchDir(path)
}

func (w *Watcher) isUnderRoot(path string) bool {
	if path == "" {
		return false
	}
	for _, root := range w.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) addWatchDir(path string) {
	if path == "" {
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.paths[path]; ok {
		return
	}
	if err := w.watcher.Add(path); err != nil {
		log.Printf("watcher add failed for %s: %v", path, err)
		return
	}
	w.paths[path] = struct{}{}
}

func (w *Watcher) addWatchTree(root string) {
	if root == "" {
		return
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		w.addWatchDir(path)
		return nil
	})
}
