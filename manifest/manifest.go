// Package manifest builds NeMo-style diarization manifests: JSON lines that
// point a diarization run at an audio file and its RTTM ground truth.
package manifest

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bosley/chatrttm/audio"
	"github.com/bosley/chatrttm/chat"
	"github.com/bosley/chatrttm/pairs"
	"github.com/bosley/chatrttm/rttm"
)

// FileExt is the required manifest file extension.
const FileExt = ".jsonl"

var (
	// ErrMissingFile is returned when an entry's audio or RTTM file does
	// not exist and missing files are not skipped.
	ErrMissingFile = errors.New("manifest: missing file")
	// ErrBadExtension is returned by Save for paths not ending in .jsonl.
	ErrBadExtension = errors.New("manifest: file must end with " + FileExt)
)

// Entry is one manifest line.
type Entry struct {
	AudioFilepath string `json:"audio_filepath"`
	Text          string `json:"text"`
	Offset        int    `json:"offset"`
	Duration      int    `json:"duration"`
	NumSpeakers   int    `json:"num_speakers"`
	RTTMFilepath  string `json:"rttm_filepath"`
}

// EntryFor builds the entry for t. Both files must exist. Duration is the
// audio length when the WAV header can be read, and the end of the last
// turn otherwise.
func EntryFor(t *chat.Transcript, audioPath, rttmPath string) (Entry, error) {
	for _, p := range []string{audioPath, rttmPath} {
		if _, err := os.Stat(p); err != nil {
			return Entry{}, fmt.Errorf("%w: %q", ErrMissingFile, p)
		}
	}

	duration := int(t.Duration())
	if info, err := audio.Probe(audioPath); err == nil {
		duration = int(info.Duration.Seconds())
		if t.Duration() > info.Duration.Seconds() {
			slog.Warn("Transcript extends past end of audio",
				"id", t.ID,
				"transcript", t.Duration(),
				"audio", info.Duration.Seconds())
		}
	} else {
		slog.Debug("Using transcript duration", "id", t.ID, "error", err)
	}

	return Entry{
		AudioFilepath: audioPath,
		Text:          "-",
		Offset:        0,
		Duration:      duration,
		NumSpeakers:   len(t.Speakers()),
		RTTMFilepath:  rttmPath,
	}, nil
}

// Build returns one entry per transcript in r, in ID order. Audio is
// expected at <wavDir>/<id>.wav and ground truth at <rttmDir>/<id>.rttm.
// With skip set, transcripts missing either file are dropped; otherwise
// the first one is an error.
func Build(r *chat.Reader, rttmDir, wavDir string, skip bool) ([]Entry, error) {
	var out []Entry
	for _, id := range r.IDs() {
		t, _ := r.Get(id)
		audioPath := filepath.Join(wavDir, filepath.FromSlash(id)+pairs.AudioExt)
		rttmPath := rttm.PathFor(rttmDir, id)

		e, err := EntryFor(t, audioPath, rttmPath)
		if err != nil {
			if skip && errors.Is(err, ErrMissingFile) {
				slog.Debug("Skipping manifest entry", "id", id, "error", err)
				continue
			}
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Encode writes entries to w as JSON lines.
func Encode(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("manifest: encode: %w", err)
		}
	}
	return bw.Flush()
}

// Save writes entries to path, creating its parent directory.
func Save(path string, entries []Entry) error {
	if !strings.HasSuffix(path, FileExt) {
		return fmt.Errorf("%w: %q", ErrBadExtension, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("manifest: create dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("manifest: create %q: %w", path, err)
	}
	if err := Encode(f, entries); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
