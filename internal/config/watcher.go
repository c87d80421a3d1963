package config

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounceWindow coalesces the burst of fsnotify events editors emit for a
// single save into one reload.
const debounceWindow = 500 * time.Millisecond

// Watch reloads the provider whenever a table YAML in its directory changes.
// It is a no-op for providers using the embedded defaults. A failed reload
// keeps the previous snapshot in effect and is only logged; in-flight and
// subsequent requests keep working against a complete table set. After the
// returned stop function returns, no further reload runs, including one whose
// debounce window was already open.
func (p *Provider) Watch(ctx context.Context, logger *zap.Logger) (stop func(), err error) {
	if p.dir == "" {
		return func() {}, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(p.dir); err != nil {
		watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		reload := func() {
			if err := p.Reload(); err != nil {
				logger.Error("table reload failed, keeping previous snapshot",
					zap.String("dir", p.dir),
					zap.Error(err),
				)
				return
			}
			logger.Info("tables reloaded",
				zap.String("dir", p.dir),
				zap.Int("rules", len(p.Snapshot().Compatibility.Rules)),
				zap.Int("models", len(p.Snapshot().Instructions.Models)),
			)
		}

		// The debounce timer is drained inside this loop, so once the loop
		// returns no reload can run and stop() is a hard barrier.
		var (
			debounce  *time.Timer
			debounceC <-chan time.Time
		)
		defer func() {
			if debounce != nil {
				debounce.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if !strings.EqualFold(filepath.Ext(event.Name), ".yaml") {
					continue
				}
				if debounce == nil {
					debounce = time.NewTimer(debounceWindow)
					debounceC = debounce.C
				} else {
					if !debounce.Stop() {
						select {
						case <-debounce.C:
						default:
						}
					}
					debounce.Reset(debounceWindow)
				}
			case <-debounceC:
				debounce = nil
				debounceC = nil
				reload()
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("table watcher error", zap.Error(werr))
			}
		}
	}()

	return func() {
		watcher.Close()
		<-done
	}, nil
}
