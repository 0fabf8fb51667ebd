package chat

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Ext is the file extension of CHAT transcripts.
const Ext = ".cha"

var (
	// ErrMalformed is wrapped by every FormatError.
	ErrMalformed = errors.New("chat: malformed transcript")

	errInvalidUTF8  = errors.New("invalid UTF-8")
	errNoStructure  = errors.New("no header or speaker tier found")
	reSpeakerPrefix = regexp.MustCompile(`^\*([A-Za-z0-9_+\-]+):`)
	reTimeMarker    = regexp.MustCompile("\x15([0-9]+)_([0-9]+)\x15")
)

// FormatError reports an annotation file that could not be parsed at all.
type FormatError struct {
	Path string
	Line int
	Err  error
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("chat: %s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("chat: %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() []error {
	return []error{ErrMalformed, e.Err}
}

// Option configures parsing.
type Option func(*parser)

// WithFormatter sets the formatter applied to utterance text. The default
// is DefaultFormatter().
func WithFormatter(f Formatter) Option {
	return func(p *parser) {
		p.formatter = f
	}
}

type parser struct {
	formatter Formatter
	source    string

	transcript *Transcript
	pending    *tier
	structured bool
	skipped    int
}

// ParseFile parses the transcript at path. The transcript ID is the file
// name without its extension.
func ParseFile(path string, opts ...Option) (*Transcript, error) {
	return ParseFileAs(path, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), opts...)
}

// ParseFileAs parses the transcript at path under the given ID.
func ParseFileAs(path, id string, opts ...Option) (*Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FormatError{Path: path, Err: err}
	}
	defer f.Close()

	return parse(path, id, f, opts)
}

// Parse reads a transcript from r and tags it with id.
func Parse(id string, r io.Reader, opts ...Option) (*Transcript, error) {
	return parse(id, id, r, opts)
}

func parse(source, id string, r io.Reader, opts []Option) (*Transcript, error) {
	p := &parser{
		formatter:  DefaultFormatter(),
		source:     source,
		transcript: &Transcript{ID: id, Turns: []Turn{}},
	}
	for _, o := range opts {
		o(p)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &FormatError{Path: source, Err: err}
	}

	text := strings.TrimPrefix(string(raw), "\ufeff")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if !utf8.ValidString(line) {
			return nil, &FormatError{Path: source, Line: i + 1, Err: errInvalidUTF8}
		}
		p.feed(line, i+1)
	}
	p.flush()

	if !p.structured {
		return nil, &FormatError{Path: source, Err: errNoStructure}
	}
	if p.skipped > 0 {
		slog.Debug("Skipped utterances without time alignment",
			"source", source,
			"skipped", p.skipped,
			"turns", len(p.transcript.Turns))
	}
	return p.transcript, nil
}

func (p *parser) feed(line string, n int) {
	kind := classify(line)
	switch kind {
	case kindContinuation:
		if p.pending != nil {
			p.pending.text += " " + strings.TrimSpace(line)
		}
		return
	case kindOther:
		p.flush()
		return
	}
	p.flush()
	p.pending = &tier{kind: kind, text: line, line: n}
}

func (p *parser) flush() {
	if p.pending == nil {
		return
	}
	t := *p.pending
	p.pending = nil
	if h, ok := tierHandlers[t.kind]; ok {
		h(p, t)
	}
}

func (p *parser) handleHeader(t tier) {
	p.structured = true

	name, value, ok := strings.Cut(t.text[1:], ":")
	if !ok {
		// @Begin, @End, @UTF8 and friends carry no value.
		return
	}
	value = strings.TrimSpace(value)

	switch name {
	case "Participants":
		p.transcript.Participants = parseParticipants(value)
	case "Media":
		media, _, _ := strings.Cut(value, ",")
		p.transcript.Media = strings.TrimSpace(media)
	}
}

func (p *parser) handleMain(t tier) {
	p.structured = true

	m := reSpeakerPrefix.FindStringSubmatch(t.text)
	if m == nil {
		slog.Debug("Speaker tier without a speaker code", "source", p.source, "line", t.line)
		p.skipped++
		return
	}
	speaker := m[1]
	body := t.text[len(m[0]):]

	markers := reTimeMarker.FindAllStringSubmatch(body, -1)
	if len(markers) == 0 {
		p.skipped++
		return
	}
	last := markers[len(markers)-1]
	startMs, errStart := strconv.ParseInt(last[1], 10, 64)
	endMs, errEnd := strconv.ParseInt(last[2], 10, 64)
	if errStart != nil || errEnd != nil || endMs < startMs {
		slog.Debug("Unusable time marker",
			"source", p.source,
			"line", t.line,
			"marker", last[1]+"_"+last[2])
		p.skipped++
		return
	}

	utterance := reTimeMarker.ReplaceAllString(body, "")
	p.transcript.Turns = append(p.transcript.Turns, Turn{
		Speaker: speaker,
		Start:   float64(startMs) / 1000,
		End:     float64(endMs) / 1000,
		Text:    p.formatter.Format(utterance),
	})
}

// Dependent tiers (%mor, %gra, %com, ...) carry no timing.
func (p *parser) handleDependent(tier) {}

// parseParticipants splits "CHI Target_Child, MOT Mary Mother" into
// entries. A single word is a code; two words are code and role; anything
// longer is code, name and role.
func parseParticipants(value string) []Participant {
	var out []Participant
	for _, entry := range strings.Split(value, ",") {
		fields := strings.Fields(entry)
		switch len(fields) {
		case 0:
			continue
		case 1:
			out = append(out, Participant{Code: fields[0]})
		case 2:
			out = append(out, Participant{Code: fields[0], Role: fields[1]})
		default:
			out = append(out, Participant{
				Code: fields[0],
				Name: strings.Join(fields[1:len(fields)-1], " "),
				Role: fields[len(fields)-1],
			})
		}
	}
	return out
}
