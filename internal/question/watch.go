package question

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultReloadDelay = 200 * time.Millisecond

// Replacer accepts a freshly loaded question bank.
type Replacer interface {
	Replace(qs []Question) error
}

// ReloadEvent reports the outcome of one reload attempt.
type ReloadEvent struct {
	Count int
	Err   error
}

// Watch reloads the bank at path into target whenever the file changes.
// The parent directory is watched so editors that write via rename are seen.
// A failed reload keeps the previous bank. The returned channel is closed
// when ctx is done.
func Watch(ctx context.Context, path string, target Replacer, logger *slog.Logger) (<-chan ReloadEvent, error) {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	name := filepath.Clean(path)
	events := make(chan ReloadEvent, 8)
	reload := make(chan struct{}, 1)

	go func() {
		defer watcher.Close()
		defer close(events)

		var debounce *time.Timer
		defer func() {
			if debounce != nil {
				debounce.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != name {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(defaultReloadDelay, func() {
					select {
					case reload <- struct{}{}:
					default:
					}
				})

			case <-reload:
				ev := ReloadEvent{}
				qs, err := LoadFile(path)
				if err == nil {
					err = target.Replace(qs)
				}
				if err != nil {
					ev.Err = err
					logger.Warn("question bank reload failed, keeping previous bank", "path", path, "error", err)
				} else {
					ev.Count = len(qs)
					logger.Info("question bank reloaded", "path", path, "questions", len(qs))
				}
				select {
				case events <- ev:
				default:
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("question bank watcher error", "error", err)
			}
		}
	}()

	return events, nil
}
