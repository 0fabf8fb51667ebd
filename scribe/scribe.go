// Package scribe keeps an RTTM directory in step with a directory of CHAT
// transcripts and serves the result over HTTP and WebSocket.
package scribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/bosley/chatrttm/chat"
)

// Configuration for the Scribe service
type Config struct {
	// Directory of .cha files to watch
	AnnotationDir string

	// Directory RTTM files are written to
	RTTMDir string

	// Directory of .wav files, used for pairing. Optional.
	AudioDir string

	// HTTP server address
	HTTPAddr string

	// Certificate files for TLS. Plain HTTP when empty.
	CertFile string
	KeyFile  string

	// Number of workers processing export jobs
	Workers int

	// Formatter applied to utterance text
	Formatter chat.Formatter
}

// Scribe watches transcripts and re-exports them as they change.
type Scribe struct {
	config Config

	// File system watcher
	watcher *fsnotify.Watcher

	// Parsed transcripts by ID
	mu          sync.RWMutex
	transcripts map[string]*chat.Transcript

	// WebSocket subscribers by ID
	subMu       sync.Mutex
	subscribers map[uuid.UUID]*wsConnection

	// Processing queue
	queue chan ExportJob

	// HTTP/Websocket
	server   *http.Server
	upgrader websocket.Upgrader

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a new Scribe instance
func New(cfg Config) (*Scribe, error) {
	if cfg.AnnotationDir == "" || cfg.RTTMDir == "" {
		return nil, errors.New("scribe: annotation and rttm directories are required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	s := &Scribe{
		config:      cfg,
		watcher:     watcher,
		transcripts: make(map[string]*chat.Transcript),
		subscribers: make(map[uuid.UUID]*wsConnection),
		queue:       make(chan ExportJob, 100),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		done: make(chan struct{}),
	}
	s.server = &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: s.Handler(),
	}

	return s, nil
}

// Start loads the annotation directory, writes every RTTM file, and then
// runs the watcher, the workers and the HTTP server until ctx is done or
// Stop is called.
func (s *Scribe) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.runMu.Lock()
	s.cancel = cancel
	s.runMu.Unlock()
	defer close(s.done)
	defer cancel()

	if err := s.Refresh(); err != nil {
		slog.Warn("Initial load incomplete", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < s.config.Workers; i++ {
		g.Go(func() error {
			s.worker(ctx)
			return nil
		})
	}
	g.Go(func() error {
		return s.watchFiles(ctx)
	})
	g.Go(func() error {
		return s.serveHTTP(ctx)
	})

	err := g.Wait()
	s.closeSubscribers()
	return err
}

// Stop gracefully shuts down the Scribe service
func (s *Scribe) Stop(ctx context.Context) error {
	s.runMu.Lock()
	cancel := s.cancel
	s.runMu.Unlock()

	if cancel == nil {
		return s.watcher.Close()
	}
	cancel()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Refresh re-parses the whole annotation directory, rewrites every RTTM
// file and replaces the stored transcripts. Files that fail to parse are
// reported in the returned error; the rest are still exported.
func (s *Scribe) Refresh() error {
	reader, loadErr := chat.FromDir(s.config.AnnotationDir, chat.WithFormatter(s.config.Formatter))
	if reader == nil {
		return loadErr
	}
	if err := reader.SaveRTTMs(s.config.RTTMDir); err != nil {
		return errors.Join(loadErr, err)
	}

	transcripts := make(map[string]*chat.Transcript, reader.Len())
	for _, id := range reader.IDs() {
		t, _ := reader.Get(id)
		transcripts[id] = t
	}

	s.mu.Lock()
	s.transcripts = transcripts
	s.mu.Unlock()

	slog.Info("Exported transcripts", "count", len(transcripts), "rttmDir", s.config.RTTMDir)
	return loadErr
}

func (s *Scribe) transcript(id string) (*chat.Transcript, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transcripts[id]
	return t, ok
}

func (s *Scribe) summaries() []TranscriptSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]TranscriptSummary, 0, len(s.transcripts))
	for id, t := range s.transcripts {
		speakers := t.Speakers()
		roles := make(map[string]string, len(speakers))
		for _, code := range speakers {
			if p, ok := t.Participant(code); ok && p.Role != "" {
				roles[code] = p.Role
			}
		}
		out = append(out, TranscriptSummary{
			ID:       id,
			Media:    t.Media,
			Turns:    len(t.Turns),
			Speakers: speakers,
			Roles:    roles,
			Duration: t.Duration(),
		})
	}
	slices.SortFunc(out, func(a, b TranscriptSummary) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}
