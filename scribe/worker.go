package scribe

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/bosley/chatrttm/chat"
	"github.com/bosley/chatrttm/rttm"
)

func (s *Scribe) worker(ctx context.Context) {
	slog.Debug("Worker starting")
	defer slog.Debug("Worker shutting down")

	for {
		select {
		case <-ctx.Done():
			slog.Debug("Worker context cancelled")
			return

		case job := <-s.queue:
			if err := s.processJob(job); err != nil {
				slog.Error("Failed to process transcript job",
					"error", err,
					"job", job.ID,
					"file", job.FilePath)
			}
		}
	}
}

func (s *Scribe) processJob(job ExportJob) error {
	event := Event{
		JobID:        job.ID.String(),
		TranscriptID: job.TranscriptID,
	}

	var err error
	switch job.Kind {
	case JobRemove:
		s.mu.Lock()
		delete(s.transcripts, job.TranscriptID)
		s.mu.Unlock()
		event.Type = EventRemoved
		slog.Info("Dropped removed transcript", "transcript", job.TranscriptID)
	default:
		err = s.export(job, &event)
	}

	if err != nil {
		event.Type = EventFailed
		event.Error = err.Error()
	}
	event.Timestamp = time.Now()
	s.broadcast(event)
	return err
}

func (s *Scribe) export(job ExportJob, event *Event) error {
	t, err := chat.ParseFileAs(job.FilePath, job.TranscriptID, chat.WithFormatter(s.config.Formatter))
	if err != nil {
		return err
	}

	path := rttm.PathFor(s.config.RTTMDir, job.TranscriptID)
	if err := rttm.WriteFile(path, t.Segments()); err != nil {
		return err
	}

	s.mu.Lock()
	s.transcripts[job.TranscriptID] = t
	s.mu.Unlock()

	event.Type = EventExported
	event.Turns = len(t.Turns)
	event.RTTMPath = path

	slog.Info("Exported transcript",
		"job", job.ID,
		"transcript", job.TranscriptID,
		"turns", len(t.Turns),
		"rttm", path,
		"waited", time.Since(job.Queued))
	return nil
}

// broadcast sends event to every subscriber without blocking.
func (s *Scribe) broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal event", "error", err)
		return
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()

	if len(s.subscribers) == 0 {
		slog.Debug("No subscribers for event", "type", event.Type)
		return
	}
	for id, conn := range s.subscribers {
		select {
		case conn.send <- data:
			slog.Debug("Sent event to subscriber", "subscriber", id, "type", event.Type)
		default:
			slog.Warn("Failed to send to subscriber - channel full", "subscriber", id)
		}
	}
}
