// Package watch reports which manifest documents had their source file
// change on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/logger"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 500 * time.Millisecond

// Watcher maps source paths to document ids and emits a document id once
// its file settles after a change.
type Watcher struct {
	docs     map[string]string // cleaned absolute path -> doc id
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// New creates a watcher for entries. A debounce of zero uses DefaultDebounce.
func New(entries []domain.DocumentEntry, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	docs := make(map[string]string, len(entries))
	for _, e := range entries {
		abs, err := filepath.Abs(e.SourcePath)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", e.SourcePath, err)
		}
		docs[filepath.Clean(abs)] = e.ID
	}
	return &Watcher{docs: docs, debounce: debounce}, nil
}

// Dirs returns the directories that must be watched. Directories are
// watched instead of files so that editors replacing a file by rename are
// still seen.
func (w *Watcher) Dirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	for path := range w.docs {
		dir := filepath.Dir(path)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// Watch starts watching and returns a channel of changed document ids.
// The channel closes when ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context) (<-chan string, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	for _, dir := range w.Dirs() {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	w.mu.Lock()
	w.watcher = fw
	w.mu.Unlock()

	out := make(chan string)
	go w.loop(ctx, fw, out)
	return out, nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, out chan<- string) {
	defer close(out)
	defer fw.Close()

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if docID, ok := w.handleEvent(event); ok {
				pending[docID] = time.Now().Add(w.debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logger.Warn("watch error: %v", err)

		case now := <-ticker.C:
			for docID, due := range pending {
				if now.Before(due) {
					continue
				}
				delete(pending, docID)
				select {
				case out <- docID:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// handleEvent returns the document whose source the event touched.
// Chmod-only events and files outside the manifest are ignored.
func (w *Watcher) handleEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return "", false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return "", false
	}
	docID, ok := w.docs[filepath.Clean(abs)]
	return docID, ok
}

// Close stops the underlying watcher if Watch was called.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	w.watcher = nil
	return err
}
