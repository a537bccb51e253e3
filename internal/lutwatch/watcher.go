// Package lutwatch keeps the LUT registry in step with a directory of .cube
// files.
package lutwatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Importer receives file changes. *session.Controller implements it.
type Importer interface {
	ReloadLUT(path string)
	RemoveLUTFile(path string)
}

type Watcher struct {
	dir string
	imp Importer
	// Delay debounces bursts of events for one path.
	Delay time.Duration

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func New(dir string, imp Importer) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		dir:    dir,
		imp:    imp,
		Delay:  150 * time.Millisecond,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		timers: map[string]*time.Timer{},
	}
}

// Scan imports every .cube file currently in the directory, in name order.
func (w *Watcher) Scan() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("scan LUT directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && isCube(e.Name()) {
			paths = append(paths, filepath.Join(w.dir, e.Name()))
		}
	}
	sort.Strings(paths)
	for _, p := range paths {
		w.imp.ReloadLUT(p)
	}
	log.Info().Str("dir", w.dir).Int("files", len(paths)).Msg("LUT directory scanned")
	return nil
}

// Start scans the directory, then follows changes until Close.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create LUT directory: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	if err := w.Scan(); err != nil {
		fw.Close()
		return err
	}
	// Close waits on the loop only once a watcher is set.
	w.watcher = fw
	go w.loop()
	return nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isCube(ev.Name) {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				w.schedule(ev.Name, w.imp.ReloadLUT)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				w.schedule(ev.Name, w.imp.RemoveLUTFile)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Str("dir", w.dir).Msg("LUT watcher error")
		}
	}
}

// schedule runs f for path after the debounce delay, replacing anything
// already pending for that path.
func (w *Watcher) schedule(path string, f func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.Delay, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		if w.ctx.Err() != nil {
			return
		}
		log.Debug().Str("path", path).Msg("LUT file changed")
		f(path)
	})
}

// Close stops watching. Pending debounced changes are dropped.
func (w *Watcher) Close() error {
	w.cancel()
	w.mu.Lock()
	for p, t := range w.timers {
		t.Stop()
		delete(w.timers, p)
	}
	w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	<-w.done
	return err
}

func isCube(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".cube") && !strings.HasPrefix(filepath.Base(name), ".")
}
