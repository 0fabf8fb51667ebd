package scribe

import (
	"time"

	"github.com/google/uuid"
)

// JobKind says what a queued job does to a transcript.
type JobKind string

const (
	JobExport JobKind = "export"
	JobRemove JobKind = "remove"
)

// ExportJob represents a job for the worker pool
type ExportJob struct {
	ID           uuid.UUID
	Kind         JobKind
	FilePath     string
	TranscriptID string
	Queued       time.Time
}

// Event types broadcast to WebSocket subscribers.
const (
	EventExported = "exported"
	EventRemoved  = "removed"
	EventFailed   = "failed"
)

// Event is sent over WebSocket after each job.
type Event struct {
	Type         string    `json:"type"`
	JobID        string    `json:"jobId"`
	TranscriptID string    `json:"transcriptId"`
	Timestamp    time.Time `json:"timestamp"`
	Turns        int       `json:"turns,omitempty"`
	RTTMPath     string    `json:"rttmPath,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// TranscriptSummary is the list view of a stored transcript.
type TranscriptSummary struct {
	ID       string   `json:"id"`
	Media    string   `json:"media,omitempty"`
	Turns    int      `json:"turns"`
	Speakers []string `json:"speakers"`
	Duration float64  `json:"duration"`

	// Roles maps speaker codes to their @Participants role.
	Roles map[string]string `json:"roles,omitempty"`
}
