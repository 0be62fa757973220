package rules

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/audiolink/audiolinkd/pkg/logging"
)

// Watcher reloads the rule store when a rule file changes on disk. Editors
// tend to fire several events per save, so changes are debounced before the
// files are re-read.
type Watcher struct {
	store    *Store
	paths    []string
	logger   logging.Logger
	debounce time.Duration

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// OnReload, when set, runs after each successful reload.
	OnReload func([]LinkRule)
}

// NewWatcher creates a watcher over the given rule files. Paths that do not
// exist yet are still covered: their parent directories are watched so a
// file showing up later triggers a reload too.
func NewWatcher(store *Store, logger logging.Logger, paths ...string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		store:    store,
		paths:    paths,
		logger:   logger,
		debounce: 250 * time.Millisecond,
		watcher:  fsw,
		done:     make(chan struct{}),
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		if p == "" {
			continue
		}
		dir := filepath.Dir(p)
		if dirs[dir] {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			logger.Warn("cannot watch rule directory", logging.Path(dir), logging.Error(err))
			continue
		}
		dirs[dir] = true
	}

	return w, nil
}

// Start begins watching in the background.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("rule watcher error", logging.Error(err))

		case <-timerC:
			timer = nil
			timerC = nil
			w.reload()
		}
	}
}

func (w *Watcher) relevant(name string) bool {
	for _, p := range w.paths {
		if p != "" && filepath.Clean(name) == filepath.Clean(p) {
			return true
		}
	}
	return false
}

func (w *Watcher) reload() {
	// Same fallback as startup and SIGHUP: an empty load means the built-in
	// defaults, never an empty store.
	list := LoadAll(w.logger, w.paths...)
	if len(list) == 0 {
		w.logger.Info("rule files yielded no rules, using built-in defaults")
		list = DefaultRules()
	}
	w.store.Replace(list)
	w.logger.Info("rule files reloaded", logging.Count(len(list)))
	if w.OnReload != nil {
		w.OnReload(list)
	}
}
