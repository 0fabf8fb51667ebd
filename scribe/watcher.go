package scribe

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/bosley/chatrttm/chat"
)

func (s *Scribe) watchFiles(ctx context.Context) error {
	defer s.watcher.Close()

	// Watch the annotation directory and everything below it
	if err := s.watchTree(s.config.AnnotationDir); err != nil {
		return fmt.Errorf("failed to watch annotation directory: %w", err)
	}

	slog.Info("Started watching annotation directory",
		"path", s.config.AnnotationDir)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-s.watcher.Events:
			if !ok {
				return nil
			}

			// Handle the file system event
			if err := s.handleFSEvent(event); err != nil {
				slog.Error("Failed to handle file system event",
					"error", err,
					"event", event)
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("File watcher error", "error", err)
		}
	}
}

// watchTree adds root and every directory below it. Watches are added under
// root as given so event names stay relative to the annotation directory
// even when root is a symlink.
func (s *Scribe) watchTree(root string) error {
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return err
	}
	return filepath.WalkDir(resolved, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(resolved, path)
		if err != nil {
			return err
		}
		path = filepath.Join(root, rel)
		if err := s.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %q: %w", path, err)
		}
		slog.Debug("Watching directory", "path", path)
		return nil
	})
}

func (s *Scribe) handleFSEvent(event fsnotify.Event) error {
	// New subdirectories get watched too
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := s.watchTree(event.Name); err != nil {
				return err
			}
			slog.Info("Watching new directory", "path", event.Name)
			return s.enqueueTree(event.Name)
		}
	}

	if filepath.Ext(event.Name) != chat.Ext {
		return nil
	}

	id, err := s.transcriptID(event.Name)
	if err != nil {
		return err
	}

	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		return s.enqueue(JobExport, event.Name, id)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return s.enqueue(JobRemove, event.Name, id)
	}
	return nil
}

// enqueueTree queues every transcript already present in a directory that
// appeared after watching started.
func (s *Scribe) enqueueTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != chat.Ext {
			return nil
		}
		id, err := s.transcriptID(path)
		if err != nil {
			return err
		}
		return s.enqueue(JobExport, path, id)
	})
}

func (s *Scribe) transcriptID(path string) (string, error) {
	rel, err := filepath.Rel(s.config.AnnotationDir, path)
	if err != nil {
		return "", fmt.Errorf("failed to get relative path: %w", err)
	}
	return filepath.ToSlash(strings.TrimSuffix(rel, chat.Ext)), nil
}

func (s *Scribe) enqueue(kind JobKind, path, id string) error {
	job := ExportJob{
		ID:           uuid.New(),
		Kind:         kind,
		FilePath:     path,
		TranscriptID: id,
		Queued:       time.Now(),
	}

	// Add the job to the processing queue
	select {
	case s.queue <- job:
		slog.Debug("Queued transcript job",
			"job", job.ID,
			"kind", kind,
			"transcript", id)
	default:
		return fmt.Errorf("job queue is full")
	}

	return nil
}
