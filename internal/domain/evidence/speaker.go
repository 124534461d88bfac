package evidence

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// UnknownSpeaker labels a segment that no speaker turn overlaps.
const UnknownSpeaker = "Unknown"

// DefaultSpeakerPrefix is the word used in friendly labels ("Speaker 1").
const DefaultSpeakerPrefix = "Speaker"

// diarizer ids such as SPEAKER_00, speaker-3, spk 1
var speakerIDRe = regexp.MustCompile(`^[A-Za-z]+[_\- ]?(\d+)$`)

// Segment is a transcribed span of audio in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Turn is a span of audio attributed to one speaker by a diarizer. One
// speaker usually owns many non-contiguous turns.
type Turn struct {
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	SpeakerID string  `json:"speaker_id"`
}

// LabeledSegment is a Segment with its assigned speaker label.
type LabeledSegment struct {
	Segment
	Speaker string `json:"speaker"`
}

// Aligner assigns speakers to transcript segments.
type Aligner struct {
	prefix string
}

// NewAligner returns an Aligner producing labels such as "<prefix> 1". An
// empty prefix means DefaultSpeakerPrefix.
func NewAligner(prefix string) *Aligner {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultSpeakerPrefix
	}
	return &Aligner{prefix: prefix}
}

var defaultAligner = NewAligner(DefaultSpeakerPrefix)

// Align runs the default Aligner.
func Align(segments []Segment, turns []Turn) []LabeledSegment {
	return defaultAligner.Align(segments, turns)
}

// Align labels each segment with the speaker whose turns overlap it the
// longest in total. Ties go to the speaker seen first in turns; a segment
// with no overlap at all gets UnknownSpeaker. Output order matches segments.
func (a *Aligner) Align(segments []Segment, turns []Turn) []LabeledSegment {
	out := make([]LabeledSegment, 0, len(segments))
	for _, s := range segments {
		out = append(out, LabeledSegment{Segment: s, Speaker: a.assign(s, turns)})
	}
	return out
}

func (a *Aligner) assign(s Segment, turns []Turn) string {
	totals := make(map[string]float64)
	var order []string
	for _, t := range turns {
		overlap := min(s.End, t.End) - max(s.Start, t.Start)
		if overlap <= 0 {
			continue
		}
		if _, seen := totals[t.SpeakerID]; !seen {
			order = append(order, t.SpeakerID)
		}
		totals[t.SpeakerID] += overlap
	}
	if len(order) == 0 {
		return UnknownSpeaker
	}

	best := order[0]
	for _, id := range order[1:] {
		if totals[id] > totals[best] {
			best = id
		}
	}
	return a.Label(best)
}

// Label maps a zero-based diarizer id like "SPEAKER_01" to "<prefix> 2".
// Ids of any other shape are returned unchanged.
func (a *Aligner) Label(speakerID string) string {
	m := speakerIDRe.FindStringSubmatch(speakerID)
	if m == nil {
		return speakerID
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return speakerID
	}
	return a.prefix + " " + strconv.Itoa(n+1)
}

// FormatPlain renders segments without speakers, one "[mm:ss - mm:ss] text"
// line each. Used when diarization is unavailable.
func FormatPlain(segments []Segment) string {
	var sb strings.Builder
	for _, s := range segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&sb, "[%s - %s] %s\n", FormatClock(s.Start), FormatClock(s.End), text)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatLabeled renders one "[mm:ss] speaker: text" line per segment.
func FormatLabeled(segments []LabeledSegment) string {
	var sb strings.Builder
	for _, s := range segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&sb, "[%s] %s: %s\n", FormatClock(s.Start), s.Speaker, text)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatClock renders seconds as mm:ss. Minutes are not wrapped into hours.
func FormatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
