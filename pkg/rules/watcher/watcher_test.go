package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func startWatcher(t *testing.T, cfg Config) (*FileWatcher, chan struct{}) {
	t.Helper()

	fw, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	reloads := make(chan struct{}, 16)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = fw.Stop()
	})

	go func() {
		_ = fw.Watch(ctx, func() error {
			reloads <- struct{}{}
			return nil
		})
	}()

	// Give the watcher time to register its paths.
	time.Sleep(50 * time.Millisecond)
	return fw, reloads
}

func waitReload(t *testing.T, reloads <-chan struct{}) {
	t.Helper()
	select {
	case <-reloads:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestFileWatcher_Directory(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.Debounce = 20 * time.Millisecond

	_, reloads := startWatcher(t, cfg)

	if err := os.WriteFile(filepath.Join(dir, "oversight.yaml"), []byte("category_id: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitReload(t, reloads)
}

func TestFileWatcher_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, []byte("category_id: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig(path)
	cfg.Debounce = 20 * time.Millisecond
	_, reloads := startWatcher(t, cfg)

	// A sibling file must not trigger a reload.
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-reloads:
		t.Fatal("unexpected reload for sibling file")
	case <-time.After(150 * time.Millisecond):
	}

	if err := os.WriteFile(path, []byte("category_id: y\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitReload(t, reloads)
}

func TestFileWatcher_Relevant(t *testing.T) {
	fw, err := New(DefaultConfig(t.TempDir()), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer fw.Stop()

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{name: "yaml write", event: fsnotify.Event{Name: "/r/a.yaml", Op: fsnotify.Write}, want: true},
		{name: "json create", event: fsnotify.Event{Name: "/r/a.json", Op: fsnotify.Create}, want: true},
		{name: "remove", event: fsnotify.Event{Name: "/r/a.yml", Op: fsnotify.Remove}, want: true},
		{name: "chmod only", event: fsnotify.Event{Name: "/r/a.yaml", Op: fsnotify.Chmod}, want: false},
		{name: "other extension", event: fsnotify.Event{Name: "/r/notes.md", Op: fsnotify.Write}, want: false},
		{name: "hidden file", event: fsnotify.Event{Name: "/r/.a.yaml.swp", Op: fsnotify.Write}, want: false},
		{name: "hidden yaml", event: fsnotify.Event{Name: "/r/.a.yaml", Op: fsnotify.Write}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fw.relevant(tt.event); got != tt.want {
				t.Errorf("relevant(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestFileWatcher_WatchTwice(t *testing.T) {
	dir := t.TempDir()
	fw, _ := startWatcher(t, DefaultConfig(dir))

	if err := fw.Watch(context.Background(), func() error { return nil }); err != ErrAlreadyRunning {
		t.Errorf("second Watch() error = %v, want ErrAlreadyRunning", err)
	}
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	for i := 0; i < 10; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("callback ran %d times, want 1", got)
	}
}

func TestDebouncer_Stop(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	d.Trigger(func() { calls.Add(1) })

	time.Sleep(80 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("callback ran %d times after Stop, want 0", got)
	}
}
