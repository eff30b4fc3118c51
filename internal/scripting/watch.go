package scripting

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch posts the path of every .lua file written or created under dir to
// out until ctx is cancelled. Sends never block: a full channel drops the
// path, the next write posts it again. The watcher goroutine never touches
// the VM; drain out on the frame goroutine with ApplyReloads.
func Watch(ctx context.Context, dir string, out chan<- string, log *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create script watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Ext(event.Name) != ".lua" {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				select {
				case out <- event.Name:
				default:
					log.Debug("script reload queue full", zap.String("file", event.Name))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("script watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

// ApplyReloads reloads every queued path without blocking. Returns the
// number of files reloaded successfully.
func (e *Engine) ApplyReloads(paths <-chan string) int {
	n := 0
	for {
		select {
		case path, ok := <-paths:
			if !ok {
				return n
			}
			if err := e.Reload(path); err != nil {
				e.log.Error("script reload failed", zap.String("file", path), zap.Error(err))
				continue
			}
			n++
		default:
			return n
		}
	}
}
