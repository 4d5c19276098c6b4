package ml

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestArtifactWatcherReportsWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reg.json")
	if err := NewLinearRegression(1, []float64{1, 1, 1, 1, 1, 1}).Save(path); err != nil {
		t.Fatal(err)
	}
	other := filepath.Join(dir, "notes.txt")

	watcher, err := NewArtifactWatcher(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	events := make(chan fsnotify.Event, 8)
	watcher.OnStale(func(e fsnotify.Event) { events <- e })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	if err := os.WriteFile(other, []byte("ignored"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(`{"kind":"linear_regression"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-events:
		if filepath.Base(e.Name) != "reg.json" {
			t.Fatalf("unexpected event for %s", e.Name)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for artifact event")
	}
}
