// Package rttm reads and writes Rich Transcription Time Marked files, the
// ground-truth format used by diarization scoring tools.
package rttm

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Ext is the file extension of RTTM files.
const Ext = ".rttm"

const (
	recordType  = "SPEAKER"
	channel     = "1"
	placeholder = "<NA>"
	numFields   = 10
)

// ErrSyntax is wrapped by Parse errors.
var ErrSyntax = errors.New("rttm: syntax error")

// Segment is one SPEAKER line. Start and Duration are in seconds.
type Segment struct {
	File     string  `json:"file"`
	Speaker  string  `json:"speaker"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// End returns Start + Duration.
func (s Segment) End() float64 {
	return s.Start + s.Duration
}

// PathFor returns the RTTM path for a transcript ID below dir. IDs may
// contain forward slashes.
func PathFor(dir, id string) string {
	return filepath.Join(dir, filepath.FromSlash(id)+Ext)
}

// Encode writes segs to w, one line each, in slice order.
func Encode(w io.Writer, segs []Segment) error {
	bw := bufio.NewWriter(w)
	for _, s := range segs {
		_, err := fmt.Fprintf(bw, "%s %s %s %.3f %.3f %s %s %s %s %s\n",
			recordType, field(s.File), channel, s.Start, s.Duration,
			placeholder, placeholder, field(s.Speaker), placeholder, placeholder)
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Marshal returns the encoded form of segs.
func Marshal(segs []Segment) []byte {
	var buf bytes.Buffer
	// bytes.Buffer writes do not fail.
	_ = Encode(&buf, segs)
	return buf.Bytes()
}

// WriteFile writes segs to path, creating parent directories and replacing
// any existing file.
func WriteFile(path string, segs []Segment) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("rttm: create dir for %q: %w", path, err)
	}
	if err := os.WriteFile(path, Marshal(segs), 0o644); err != nil {
		return fmt.Errorf("rttm: write %q: %w", path, err)
	}
	return nil
}

// Parse reads SPEAKER lines from r. Blank lines and other record types are
// skipped.
func Parse(r io.Reader) ([]Segment, error) {
	var segs []Segment
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || fields[0] != recordType {
			continue
		}
		if len(fields) != numFields {
			return nil, fmt.Errorf("%w: line %d: want %d fields, got %d", ErrSyntax, n, numFields, len(fields))
		}
		start, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: start: %v", ErrSyntax, n, err)
		}
		dur, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: duration: %v", ErrSyntax, n, err)
		}
		segs = append(segs, Segment{
			File:     fields[1],
			Speaker:  fields[7],
			Start:    start,
			Duration: dur,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("rttm: read: %w", err)
	}
	return segs, nil
}

// field keeps a value to a single whitespace-free token.
func field(s string) string {
	s = strings.Join(strings.Fields(s), "_")
	if s == "" {
		return placeholder
	}
	return s
}
