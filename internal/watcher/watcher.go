// Package watcher re-runs work when manifest files change on disk.
//
// Each file's parent directory is watched rather than the file itself, so
// editors that save by writing a temp file and renaming it over the original
// keep triggering events. Bursts of events are coalesced: the callback runs
// once the watched files have been quiet for the debounce interval.
//
// Example usage:
//
//	w, err := watcher.New([]string{"app/build.gradle.kts"}, 500*time.Millisecond, logger)
//	if err != nil {
//		return err
//	}
//	err = w.Run(ctx, func(ctx context.Context, changed []string) {
//		// re-audit changed manifests
//	})
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ErrNoPaths is returned by New when there is nothing to watch.
var ErrNoPaths = errors.New("no files to watch")

// Watcher delivers debounced change notifications for a fixed set of files.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	targets  map[string]bool
	log      zerolog.Logger
}

// New watches the given files. Paths are made absolute; the files do not
// need to exist yet, but their directories do.
func New(paths []string, debounce time.Duration, log zerolog.Logger) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, ErrNoPaths
	}
	if debounce <= 0 {
		return nil, fmt.Errorf("debounce must be positive, got %s", debounce)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		debounce: debounce,
		targets:  make(map[string]bool, len(paths)),
		log:      log.With().Str("component", "watcher").Logger(),
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		abs = filepath.Clean(abs)
		w.targets[abs] = true

		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	return w, nil
}

// Paths returns the watched files, sorted.
func (w *Watcher) Paths() []string {
	out := make([]string, 0, len(w.targets))
	for p := range w.targets {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Run blocks, calling onChange with the sorted set of files that changed
// since the previous call, until ctx is cancelled. onChange runs on the
// watcher goroutine, so events arriving while it runs are batched into the
// next call. Run closes the underlying watcher before returning.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, changed []string)) error {
	defer w.fsw.Close()

	pending := make(map[string]bool)
	var timer *time.Timer
	var fire <-chan time.Time

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			name := filepath.Clean(event.Name)
			if !w.targets[name] || !relevant(event.Op) {
				continue
			}

			w.log.Debug().Str("path", name).Str("op", event.Op.String()).Msg("manifest event")
			pending[name] = true

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("watcher error")

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)

			w.log.Debug().Strs("paths", changed).Msg("manifests changed")
			onChange(ctx, changed)
		}
	}
}

// relevant reports whether op can change a file's contents.
func relevant(op fsnotify.Op) bool {
	return op.Has(fsnotify.Write) || op.Has(fsnotify.Create) ||
		op.Has(fsnotify.Rename) || op.Has(fsnotify.Remove)
}
