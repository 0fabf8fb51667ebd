package chat

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bosley/chatrttm/rttm"
)

// ErrNoTranscripts is returned when a directory yields no usable transcript.
var ErrNoTranscripts = errors.New("chat: no transcripts")

// BatchError lists the files FromDir could not parse. The Reader returned
// alongside it holds every file that did parse.
type BatchError struct {
	Failures []*FormatError
}

func (e *BatchError) Error() string {
	if len(e.Failures) == 1 {
		return e.Failures[0].Error()
	}
	paths := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		paths = append(paths, f.Path)
	}
	return fmt.Sprintf("chat: %d files failed to parse: %s", len(e.Failures), strings.Join(paths, ", "))
}

func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}

// Reader is a read-only collection of transcripts keyed by ID.
type Reader struct {
	transcripts map[string]*Transcript
}

// NewReader wraps an existing set of transcripts.
func NewReader(transcripts map[string]*Transcript) (*Reader, error) {
	if len(transcripts) == 0 {
		return nil, ErrNoTranscripts
	}
	return &Reader{transcripts: transcripts}, nil
}

// FromDir parses every .cha file below dir. Transcript IDs are the paths
// relative to dir without the extension, slash separated.
//
// Files that fail to parse do not stop the walk. If at least one file
// parsed, FromDir returns the Reader and, when anything failed, a
// *BatchError naming the failures. If nothing parsed the Reader is nil and
// the error wraps ErrNoTranscripts.
func FromDir(dir string, opts ...Option) (*Reader, error) {
	root, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return nil, fmt.Errorf("chat: resolve %q: %w", dir, err)
	}

	// Paths are kept relative to dir as given, not to the resolved root.
	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != Ext {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.Join(dir, rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("chat: walk %q: %w", dir, err)
	}

	transcripts := make(map[string]*Transcript, len(paths))
	var failures []*FormatError
	for _, path := range paths {
		id, err := transcriptID(dir, path)
		if err != nil {
			return nil, err
		}
		t, err := ParseFileAs(path, id, opts...)
		if err != nil {
			var fe *FormatError
			if !errors.As(err, &fe) {
				fe = &FormatError{Path: path, Err: err}
			}
			slog.Warn("Failed to parse transcript", "path", path, "error", err)
			failures = append(failures, fe)
			continue
		}
		transcripts[id] = t
	}

	slog.Info("Loaded transcripts",
		"dir", dir,
		"parsed", len(transcripts),
		"failed", len(failures))

	var batchErr error
	if len(failures) > 0 {
		batchErr = &BatchError{Failures: failures}
	}
	if len(transcripts) == 0 {
		return nil, errors.Join(fmt.Errorf("%w under %q", ErrNoTranscripts, dir), batchErr)
	}
	return &Reader{transcripts: transcripts}, batchErr
}

func transcriptID(dir, path string) (string, error) {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return "", fmt.Errorf("chat: relative path of %q: %w", path, err)
	}
	return filepath.ToSlash(strings.TrimSuffix(rel, Ext)), nil
}

// IDs returns the transcript IDs in sorted order.
func (r *Reader) IDs() []string {
	ids := make([]string, 0, len(r.transcripts))
	for id := range r.transcripts {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Get returns the transcript with the given ID.
func (r *Reader) Get(id string) (*Transcript, bool) {
	t, ok := r.transcripts[id]
	return t, ok
}

// Len returns the number of transcripts.
func (r *Reader) Len() int {
	return len(r.transcripts)
}

// SaveRTTMs writes <dir>/<id>.rttm for every transcript, overwriting
// existing files. It stops at the first failed write; files already
// written stay in place.
func (r *Reader) SaveRTTMs(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("chat: create rttm dir: %w", err)
	}
	for _, id := range r.IDs() {
		path := rttm.PathFor(dir, id)
		if err := rttm.WriteFile(path, r.transcripts[id].Segments()); err != nil {
			return fmt.Errorf("chat: save rttm for %q: %w", id, err)
		}
		slog.Debug("Wrote rttm", "id", id, "path", path)
	}
	return nil
}
