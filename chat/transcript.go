// Package chat reads CHAT (.cha) conversation transcripts and extracts
// time-aligned speaker turns from their main tiers.
package chat

import (
	"path"
	"slices"
	"strings"

	"github.com/bosley/chatrttm/rttm"
)

// Turn is one timed speaker utterance. Start and End are in seconds.
type Turn struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text,omitempty"`
}

// Duration returns End - Start.
func (t Turn) Duration() float64 {
	return t.End - t.Start
}

// Participant is one entry of the @Participants header.
type Participant struct {
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// Transcript holds the turns parsed from a single annotation file, in the
// order they appear in the file.
type Transcript struct {
	ID           string        `json:"id"`
	Media        string        `json:"media,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
	Turns        []Turn        `json:"turns"`
}

// Speakers returns the distinct speaker codes that own at least one turn,
// sorted.
func (t *Transcript) Speakers() []string {
	seen := make(map[string]struct{}, len(t.Participants))
	var out []string
	for _, turn := range t.Turns {
		if _, ok := seen[turn.Speaker]; ok {
			continue
		}
		seen[turn.Speaker] = struct{}{}
		out = append(out, turn.Speaker)
	}
	slices.Sort(out)
	return out
}

// Duration returns the latest end time of any turn, in seconds.
func (t *Transcript) Duration() float64 {
	var max float64
	for _, turn := range t.Turns {
		if turn.End > max {
			max = turn.End
		}
	}
	return max
}

// Segments projects the turns onto RTTM speaker segments, one per turn and
// in turn order. The segment file ID is the file stem, without any
// directories from a nested transcript ID.
func (t *Transcript) Segments() []rttm.Segment {
	file := path.Base(t.ID)
	segs := make([]rttm.Segment, 0, len(t.Turns))
	for _, turn := range t.Turns {
		segs = append(segs, rttm.Segment{
			File:     file,
			Speaker:  turn.Speaker,
			Start:    turn.Start,
			Duration: turn.Duration(),
		})
	}
	return segs
}

// Participant looks up a participant by speaker code.
func (t *Transcript) Participant(code string) (Participant, bool) {
	for _, p := range t.Participants {
		if strings.EqualFold(p.Code, code) {
			return p, true
		}
	}
	return Participant{}, false
}
