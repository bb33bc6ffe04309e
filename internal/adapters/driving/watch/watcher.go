// Package watch ingests documents dropped into an inbox directory.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/ragchat/internal/core/ports/driving"
	"github.com/custodia-labs/ragchat/internal/logger"
)

// DefaultDebounce is how long a file must stay quiet before it is uploaded.
const DefaultDebounce = 500 * time.Millisecond

// Result reports the outcome of one upload, or a watcher error when Path is empty.
type Result struct {
	Path   string
	Upload *driving.IngestResult
	Err    error
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithNotify registers a callback invoked after every upload attempt.
func WithNotify(fn func(Result)) Option {
	return func(w *Watcher) {
		w.notify = fn
	}
}

// Watcher uploads supported files created or written in a directory.
// Uploads run one at a time on the Run goroutine.
type Watcher struct {
	ingest   driving.IngestService
	debounce time.Duration
	notify   func(Result)
}

// New creates a watcher that uploads through ingest.
func New(ingest driving.IngestService, opts ...Option) *Watcher {
	w := &Watcher{
		ingest:   ingest,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// due is sent when a pending file's debounce timer fires.
type due struct {
	path string
	gen  int
}

type pending struct {
	timer *time.Timer
	gen   int
}

// Run watches dir until ctx is cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context, dir string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	logger.Info("watching %s", dir)

	ready := make(chan due)
	waiting := make(map[string]*pending)
	defer func() {
		for _, p := range waiting {
			p.timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.accept(event) {
				continue
			}
			w.schedule(ctx, waiting, ready, event.Name)

		case d := <-ready:
			p, ok := waiting[d.path]
			if !ok || p.gen != d.gen {
				continue
			}
			delete(waiting, d.path)
			w.upload(ctx, d.path)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)
			w.report(Result{Err: err})
		}
	}
}

// schedule (re)starts the debounce timer for path. A newer generation
// supersedes timers that already fired but were not yet received.
func (w *Watcher) schedule(ctx context.Context, waiting map[string]*pending, ready chan<- due, path string) {
	p, ok := waiting[path]
	if !ok {
		p = &pending{}
		waiting[path] = p
	} else {
		p.timer.Stop()
	}
	p.gen++
	d := due{path: path, gen: p.gen}
	p.timer = time.AfterFunc(w.debounce, func() {
		select {
		case ready <- d:
		case <-ctx.Done():
		}
	})
}

// accept reports whether an event may lead to an upload.
func (w *Watcher) accept(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~") {
		return false
	}
	return w.ingest.Supports(name)
}

func (w *Watcher) upload(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		// Removed or replaced by a directory before it settled.
		return
	}

	res, err := w.ingest.UploadFile(ctx, path)
	if err != nil {
		logger.Warn("upload %s: %v", path, err)
	} else {
		logger.Info("uploaded %s (%d chunks)", path, res.Chunks)
	}
	w.report(Result{Path: path, Upload: res, Err: err})
}

func (w *Watcher) report(r Result) {
	if w.notify != nil {
		w.notify(r)
	}
}
