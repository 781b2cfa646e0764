/*
Package watch re-loads a DOM security policy whenever its policy file changes.

Changes are debounced: editors tend to write files in several steps, and a
policy should be re-loaded once the file has settled. If a re-load fails to
parse, the policy keeps its previous document.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>
*/
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'dsp.watch'.
func tracer() tracing.Trace {
	return tracing.Select("dsp.watch")
}

// ErrAlreadyRunning is returned if Watch is called on a running watcher.
var ErrAlreadyRunning = errors.New("policy watcher already running")

// DefaultDebounce is the default interval a file has to be quiet before it
// is re-loaded.
const DefaultDebounce = 100 * time.Millisecond

// Loader loads a policy text. *dsp.Policy is a Loader.
type Loader interface {
	Load(text string) error
}

// Watcher watches a policy file.
type Watcher struct {
	path     string
	loader   Loader
	debounce time.Duration
	onReload func(error)

	mu      sync.Mutex
	running bool
	timer   *time.Timer

	loading sync.Mutex // serializes re-loads
}

// Option is a type to help initializing watchers at creation time.
type Option func(*Watcher)

// Debounce sets the interval a file has to be quiet before re-loading.
func Debounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// OnReload sets a callback called after every re-load attempt with the
// result of the attempt.
func OnReload(f func(error)) Option {
	return func(w *Watcher) {
		w.onReload = f
	}
}

// New creates a watcher for a policy file. Use it like this:
//
//     w := watch.New("site.dsp", policy, watch.Debounce(time.Second))
//     if err := w.LoadNow(); err != nil { … }
//     go w.Watch(ctx)
//
func New(path string, loader Loader, opts ...Option) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		loader:   loader,
		debounce: DefaultDebounce,
	}
	for _, option := range opts {
		option(w)
	}
	return w
}

// Path returns the path of the watched policy file.
func (w *Watcher) Path() string {
	return w.path
}

// LoadNow reads the policy file and loads it.
func (w *Watcher) LoadNow() error {
	text, err := os.ReadFile(w.path)
	if err != nil {
		return fmt.Errorf("cannot read policy file: %w", err)
	}
	if err := w.loader.Load(string(text)); err != nil {
		return fmt.Errorf("cannot load policy file %s: %w", w.path, err)
	}
	tracer().P("file", w.path).Infof("policy loaded")
	return nil
}

// Watch blocks and re-loads the policy file on changes until ctx is
// cancelled. The directory of the file is watched, as editors often
// replace files instead of writing them in place.
func (w *Watcher) Watch(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyRunning
	}
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
	}()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cannot create file watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("cannot watch %s: %w", w.path, err)
	}
	tracer().P("file", w.path).Infof("watching policy file, debounce %s", w.debounce)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("file watcher events channel closed")
			}
			if filepath.Clean(event.Name) != w.path || !isChange(event) {
				continue
			}
			tracer().P("file", w.path).Debugf("file event %s", event.Op)
			w.trigger()
		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("file watcher errors channel closed")
			}
			tracer().Errorf("file watcher: %v", err)
		}
	}
}

func isChange(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// trigger (re-)starts the debounce timer.
func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

// reload is run by the debounce timer. Stopping a timer does not wait for a
// re-load already running, so re-loads are serialized: each one reads the
// file after the previous one has stored its document.
func (w *Watcher) reload() {
	w.loading.Lock()
	defer w.loading.Unlock()
	err := w.LoadNow()
	if err != nil {
		tracer().Errorf("re-loading policy: %v", err)
	}
	if w.onReload != nil {
		w.onReload(err)
	}
}
