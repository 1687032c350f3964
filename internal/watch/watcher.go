package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/scopebuild/internal/logfields"
)

// DefaultDebounce is the quiet window after the last change before a rebuild.
const DefaultDebounce = 300 * time.Millisecond

// Options tunes a Watcher.
type Options struct {
	Debounce time.Duration
	// Interval schedules periodic rebuilds. Zero disables them.
	Interval time.Duration
	// Ignore lists paths whose changes never trigger a rebuild, such as the
	// output directory.
	Ignore []string
}

// Watcher watches a source tree recursively and feeds a Runner.
type Watcher struct {
	root   string
	opts   Options
	runner *Runner
	ignore []string
}

// New returns a watcher for the tree at root.
func New(root string, build BuildFunc, opts Options) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "resolve watch root").
			WithContext("path", root).
			Build()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	w := &Watcher{root: abs, opts: opts, runner: NewRunner(build)}
	for _, p := range opts.Ignore {
		if p == "" {
			continue
		}
		if ap, err := filepath.Abs(p); err == nil {
			w.ignore = append(w.ignore, ap)
		}
	}
	return w, nil
}

// Run performs an initial build and then rebuilds on change until ctx is
// done. The running build sees ctx and stops when it is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.RuntimeError("failed to create file watcher").WithCause(err).Build()
	}
	defer func() { _ = fsw.Close() }()

	if err := w.addRecursive(fsw, w.root); err != nil {
		return err
	}

	if w.opts.Interval > 0 {
		sched, err := w.schedule()
		if err != nil {
			return err
		}
		defer func() {
			if err := sched.Shutdown(); err != nil {
				slog.Warn("Failed to stop rebuild schedule", logfields.Error(err))
			}
		}()
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.runner.Run(ctx)
	}()

	slog.Info("Watching for changes",
		logfields.Path(w.root),
		slog.Duration("debounce", w.opts.Debounce),
		slog.Duration("interval", w.opts.Interval))
	w.runner.Request(TriggerWatch)

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.ignored(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(fsw, event.Name); err != nil {
						slog.Warn("Failed to watch new directory", logfields.Path(event.Name), logfields.Error(err))
					}
				}
			}
			slog.Debug("Source change detected", logfields.Path(event.Name), logfields.Event(event.Op.String()))
			if debounce == nil {
				debounce = time.AfterFunc(w.opts.Debounce, func() { w.runner.Request(TriggerWatch) })
			} else {
				debounce.Reset(w.opts.Debounce)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("File watcher error", logfields.Error(err))
		}
	}
}

// schedule starts a gocron job requesting a rebuild every Interval.
func (w *Watcher) schedule() (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.RuntimeError("failed to create gocron scheduler").WithCause(err).Build()
	}
	_, err = sched.NewJob(
		gocron.DurationJob(w.opts.Interval),
		gocron.NewTask(w.runner.Request, TriggerSchedule),
		gocron.WithName("periodic-rebuild"),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to schedule periodic rebuild").
			WithContext("interval", w.opts.Interval.String()).
			Build()
	}
	sched.Start()
	return sched, nil
}

func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignored(path) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to watch directory").
				WithContext("path", path).
				Build()
		}
		return nil
	})
}

// ignored reports whether a change to path is irrelevant: dot files such as
// editor swap files and VCS metadata, and anything under an ignored path.
func (w *Watcher) ignored(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}
	for _, p := range w.ignore {
		if path == p || strings.HasPrefix(path, p+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
