// Package control delivers operator signals to a running hive through
// files dropped in the signal directory. A separate hiveflow process (or
// a plain touch) creates pause, resume, or kill files; the watcher picks
// them up and invokes the matching scheduler callback.
package control

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hiveworks/hiveflow/internal/hivelog"
)

// Signal file names recognized under the signals directory.
const (
	SignalPause  = "pause"
	SignalResume = "resume"
	SignalKill   = "kill"
)

// Controls are the scheduler callbacks a Watcher drives. Nil callbacks
// are skipped.
type Controls struct {
	Pause  func()
	Resume func()
	Stop   func()
}

// Watcher monitors the signals directory and translates file events into
// control calls. Pause latches until a resume arrives; kill fires once.
type Watcher struct {
	signalsDir string
	controls   Controls
	logger     *hivelog.DebugLogger

	mu      sync.Mutex
	paused  bool
	stopped bool

	fsw  *fsnotify.Watcher
	done chan struct{}
	wg   sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger attaches a debug logger.
func WithLogger(logger *hivelog.DebugLogger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher creates the signals directory under dataDir, starts watching
// it, and applies any signals already on disk. Close releases the watch.
func NewWatcher(dataDir string, controls Controls, opts ...Option) (*Watcher, error) {
	if dataDir == "" {
		return nil, errors.New("control: data dir is required")
	}

	signalsDir := SignalsDir(dataDir)
	if err := os.MkdirAll(signalsDir, 0755); err != nil {
		return nil, fmt.Errorf("create signals dir: %w", err)
	}

	w := &Watcher{
		signalsDir: signalsDir,
		controls:   controls,
		logger:     hivelog.Nop(),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("start signal watcher: %w", err)
	}
	if err := fsw.Add(signalsDir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", signalsDir, err)
	}
	w.fsw = fsw

	// Signals dropped before the watcher came up still count.
	w.catchUp()

	w.wg.Add(1)
	go w.watch()

	return w, nil
}

// Paused reports whether a pause signal is currently latched.
func (w *Watcher) Paused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.paused
}

// Close stops watching. Signal files already on disk are left in place.
func (w *Watcher) Close() {
	select {
	case <-w.done:
		return
	default:
	}
	close(w.done)
	w.fsw.Close()
	w.wg.Wait()
}

func (w *Watcher) catchUp() {
	if _, err := os.Stat(filepath.Join(w.signalsDir, SignalPause)); err == nil {
		w.firePause()
	}
	if _, err := os.Stat(filepath.Join(w.signalsDir, SignalKill)); err == nil {
		w.fireStop()
	}
}

func (w *Watcher) watch() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case <-w.fsw.Errors:
			// Keep watching
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	created := event.Op&(fsnotify.Create|fsnotify.Write) != 0
	removed := event.Op&fsnotify.Remove != 0

	switch filepath.Base(event.Name) {
	case SignalKill:
		if created {
			w.fireStop()
		}
	case SignalPause:
		if created {
			w.firePause()
		} else if removed {
			w.fireResume()
		}
	case SignalResume:
		if created {
			w.fireResume()
			// Consume both markers so the next pause starts clean.
			os.Remove(filepath.Join(w.signalsDir, SignalPause))
			os.Remove(filepath.Join(w.signalsDir, SignalResume))
		}
	}
}

func (w *Watcher) firePause() {
	w.mu.Lock()
	if w.paused || w.stopped {
		w.mu.Unlock()
		return
	}
	w.paused = true
	w.mu.Unlock()

	w.logger.Log("[control] pause signal received")
	if w.controls.Pause != nil {
		w.controls.Pause()
	}
}

func (w *Watcher) fireResume() {
	w.mu.Lock()
	if !w.paused || w.stopped {
		w.mu.Unlock()
		return
	}
	w.paused = false
	w.mu.Unlock()

	w.logger.Log("[control] resume signal received")
	if w.controls.Resume != nil {
		w.controls.Resume()
	}
}

func (w *Watcher) fireStop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	w.mu.Unlock()

	w.logger.Log("[control] kill signal received")
	if w.controls.Stop != nil {
		w.controls.Stop()
	}
}

// SignalsDir returns the signal directory under dataDir.
func SignalsDir(dataDir string) string {
	return filepath.Join(dataDir, "signals")
}

// SendPause creates a pause signal file under dataDir.
func SendPause(dataDir string) error {
	return writeSignal(dataDir, SignalPause)
}

// SendResume creates a resume signal file under dataDir.
func SendResume(dataDir string) error {
	return writeSignal(dataDir, SignalResume)
}

// SendKill creates a kill signal file under dataDir.
func SendKill(dataDir string) error {
	return writeSignal(dataDir, SignalKill)
}

// ClearSignals removes any signal files under dataDir.
func ClearSignals(dataDir string) {
	dir := SignalsDir(dataDir)
	os.Remove(filepath.Join(dir, SignalPause))
	os.Remove(filepath.Join(dir, SignalResume))
	os.Remove(filepath.Join(dir, SignalKill))
}

func writeSignal(dataDir, name string) error {
	dir := SignalsDir(dataDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create signals dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0644); err != nil {
		return fmt.Errorf("write %s signal: %w", name, err)
	}
	return nil
}
