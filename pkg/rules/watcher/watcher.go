package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrAlreadyRunning is returned when Watch is called twice.
var ErrAlreadyRunning = errors.New("watcher already running")

// Config controls which changes trigger a reload.
type Config struct {
	// Path is the rule file or directory to watch
	Path string

	// Debounce is the quiet period after the last change before reloading (default: 100ms)
	Debounce time.Duration

	// Extensions limits which files count as rule files
	Extensions []string

	// SkipHidden ignores dot files and directories
	SkipHidden bool
}

// DefaultConfig returns the default watcher configuration for path.
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		Debounce:   100 * time.Millisecond,
		Extensions: []string{".yaml", ".yml", ".json"},
		SkipHidden: true,
	}
}

// FileWatcher reloads rules when files under the configured path change.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	config   Config
	debounce *Debouncer
	logger   *slog.Logger

	// single-file mode watches the parent directory and filters on this name
	file string

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a watcher. It does not start watching until Watch is called.
func New(config Config, logger *slog.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Debounce <= 0 {
		config.Debounce = 100 * time.Millisecond
	}
	if len(config.Extensions) == 0 {
		config.Extensions = DefaultConfig(config.Path).Extensions
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher:  fsw,
		config:   config,
		debounce: NewDebouncer(config.Debounce),
		logger:   logger.With("component", "rules.watcher"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks until ctx is cancelled or Stop is called, invoking reload once per
// burst of relevant file events.
func (fw *FileWatcher) Watch(ctx context.Context, reload func() error) error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return ErrAlreadyRunning
	}
	fw.running = true
	fw.mu.Unlock()

	defer close(fw.doneCh)

	if err := fw.add(fw.config.Path); err != nil {
		return fmt.Errorf("failed to watch %q: %w", fw.config.Path, err)
	}

	fw.logger.Info("Rules watcher started",
		"path", fw.config.Path,
		"debounce_ms", fw.config.Debounce.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			fw.logger.Info("Rules watcher stopped (context cancelled)")
			return nil

		case <-fw.stopCh:
			fw.logger.Info("Rules watcher stopped")
			return nil

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !fw.relevant(event) {
				continue
			}

			fw.logger.Debug("Rule file changed", "path", event.Name, "op", event.Op.String())

			// New subdirectories need their own watch.
			if event.Op.Has(fsnotify.Create) && fw.file == "" {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := fw.addDirectory(event.Name); err != nil {
						fw.logger.Warn("Failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}

			name := event.Name
			fw.debounce.Trigger(func() {
				fw.logger.Info("Reloading rules", "trigger", name)
				if err := reload(); err != nil {
					fw.logger.Error("Rules reload reported errors", "error", err)
				}
			})

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			fw.logger.Error("Rules watcher error", "error", err)
		}
	}
}

// Stop ends a running Watch and releases the underlying watcher.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	running := fw.running
	fw.running = false
	fw.mu.Unlock()

	fw.debounce.Stop()

	if running {
		close(fw.stopCh)
		<-fw.doneCh
	}

	if err := fw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (fw *FileWatcher) add(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fw.addDirectory(path)
	}

	// Editors often replace files by rename, which drops a watch on the file itself.
	fw.file = filepath.Clean(path)
	return fw.watcher.Add(filepath.Dir(path))
}

func (fw *FileWatcher) addDirectory(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if fw.config.SkipHidden && path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %q: %w", path, err)
		}
		fw.logger.Debug("Watching directory", "path", path)
		return nil
	})
}

// relevant filters out chmod noise, hidden files and non-rule files.
func (fw *FileWatcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}

	if fw.file != "" {
		return filepath.Clean(event.Name) == fw.file
	}

	base := filepath.Base(event.Name)
	if fw.config.SkipHidden && strings.HasPrefix(base, ".") {
		return false
	}

	// Directory creation has no extension but still matters.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			return true
		}
	}

	ext := strings.ToLower(filepath.Ext(base))
	for _, valid := range fw.config.Extensions {
		if ext == strings.ToLower(valid) {
			return true
		}
	}
	return false
}
