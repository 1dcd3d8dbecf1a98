package ingest

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the watch-mode event debounce interval.
const DefaultDebounce = 500 * time.Millisecond

// Watch watches dirs for YAML document changes and re-ingests changed files
// until the context is cancelled. Events are debounced so that a burst of
// writes to the same file triggers a single ingestion.
func (in *Ingester) Watch(ctx context.Context, dirs []string, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	for _, dir := range dirs {
		if err := addRecursive(fsw, dir); err != nil {
			return err
		}
	}

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				// New subdirectory: start watching it too.
				_ = addRecursive(fsw, ev.Name)
				continue
			}
			if !isYAML(ev.Name) || in.excluded(ev.Name) {
				continue
			}
			pending[ev.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			in.log("watch error: %v", err)

		case <-timerC:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			for _, p := range paths {
				delete(pending, p)
				n, err := in.IngestFile(ctx, p)
				if err != nil {
					in.recordError(err.Error())
					in.log("ingest %s: %v", p, err)
					continue
				}
				in.mu.Lock()
				in.stats.FilesIngested++
				in.stats.CasesIngested += n
				in.mu.Unlock()
				in.log("ingested %s (%d cases)", p, n)
			}
		}
	}
}

// addRecursive watches dir and all its subdirectories.
func addRecursive(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}
