package config

import (
	"context"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"notifyd/pkg/logx"
)

// Watcher reloads the config file on change and publishes validated
// configs to subscribers. An update that fails to load or validate is
// logged and discarded; the previous config stays committed.
type Watcher struct {
	path string
	log  logx.Logger

	mu  sync.RWMutex
	cfg *Config

	subsMu sync.Mutex
	subs   []chan *Config
}

func NewWatcher(path string, log logx.Logger) *Watcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Watcher{path: path, log: log}
}

// Load reads, validates, and commits the current file contents.
func (w *Watcher) Load() (*Config, error) {
	cfg, err := Load(w.path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w.commit(cfg)
	return cfg, nil
}

func (w *Watcher) commit(cfg *Config) {
	w.mu.Lock()
	w.cfg = cfg
	w.mu.Unlock()
}

// Current returns the last committed config (nil before the first Load).
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cfg
}

// Subscribe returns a channel that receives each newly committed config.
// Slow subscribers miss intermediate updates rather than blocking the
// watcher.
func (w *Watcher) Subscribe() <-chan *Config {
	ch := make(chan *Config, 1)
	w.subsMu.Lock()
	w.subs = append(w.subs, ch)
	w.subsMu.Unlock()
	return ch
}

func (w *Watcher) publish(cfg *Config) {
	w.subsMu.Lock()
	defer w.subsMu.Unlock()
	for _, ch := range w.subs {
		select {
		case ch <- cfg:
		default:
			// drop stale update for this subscriber, then deliver the newest
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- cfg:
			default:
			}
		}
	}
}

// Watch blocks until ctx is done, reloading on file events. The parent
// directory is watched (not the file itself) so atomic replaces by
// editors and configuration tooling are picked up.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return err
	}

	base := filepath.Base(w.path)

	// Debounce: editors tend to emit several events per save.
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(200 * time.Millisecond)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(200 * time.Millisecond)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("config watch error", logx.Err(err))

		case <-timerC:
			timer = nil
			timerC = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	old := w.Current()

	cfg, err := Load(w.path)
	if err != nil {
		w.log.Warn("config reload failed, keeping previous config", logx.Err(err))
		return
	}
	if err := cfg.Validate(); err != nil {
		w.log.Warn("config rejected, keeping previous config", logx.Err(err))
		return
	}
	if old != nil && reflect.DeepEqual(*old, *cfg) {
		return
	}

	w.commit(cfg)
	w.publish(cfg)
	w.log.Info("config reloaded", logx.String("path", w.path))
}
