package ml

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ArtifactWatcher reports changes to a loaded artifact on disk. The
// running model is never replaced; a change only means it is stale until
// the process restarts.
type ArtifactWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *zap.Logger
	onStale func(fsnotify.Event)
}

// NewArtifactWatcher watches the artifact's directory so that editors
// replacing the file by rename are still observed.
func NewArtifactWatcher(path string, logger *zap.Logger) (*ArtifactWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArtifactWatcher{path: abs, watcher: w, logger: logger}, nil
}

// OnStale registers a callback invoked for each relevant event. Must be
// called before Run.
func (aw *ArtifactWatcher) OnStale(fn func(fsnotify.Event)) {
	aw.onStale = fn
}

// Run blocks until ctx is done or the watcher fails.
func (aw *ArtifactWatcher) Run(ctx context.Context) error {
	defer aw.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-aw.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != aw.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Remove) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Create) {
				continue
			}
			aw.logger.Warn("model artifact changed on disk; restart to pick it up",
				zap.String("path", aw.path),
				zap.String("op", event.Op.String()))
			if aw.onStale != nil {
				aw.onStale(event)
			}
		case err, ok := <-aw.watcher.Errors:
			if !ok {
				return nil
			}
			aw.logger.Error("artifact watcher error", zap.Error(err))
			return err
		}
	}
}
