package evidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlign_GreatestOverlapWins(t *testing.T) {
	t.Parallel()

	got := Align(
		[]Segment{{Start: 0, End: 10, Text: "야 이 사기꾼아"}},
		[]Turn{{Start: 0, End: 4, SpeakerID: "A"}, {Start: 4, End: 10, SpeakerID: "B"}},
	)
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].Speaker)
	assert.Equal(t, "야 이 사기꾼아", got[0].Text)
}

func TestAlign_NoOverlapIsUnknown(t *testing.T) {
	t.Parallel()

	got := Align(
		[]Segment{{Start: 20, End: 25, Text: "late"}, {Start: 3, End: 3, Text: "instant"}},
		[]Turn{{Start: 0, End: 10, SpeakerID: "SPEAKER_00"}},
	)
	require.Len(t, got, 2)
	assert.Equal(t, UnknownSpeaker, got[0].Speaker)
	assert.Equal(t, UnknownSpeaker, got[1].Speaker)
}

func TestAlign_AccumulatesAcrossTurns(t *testing.T) {
	t.Parallel()

	turns := []Turn{
		{Start: 0, End: 3, SpeakerID: "SPEAKER_00"},
		{Start: 3, End: 7, SpeakerID: "SPEAKER_01"},
		{Start: 7, End: 10, SpeakerID: "SPEAKER_00"},
	}
	got := Align([]Segment{{Start: 0, End: 10}}, turns)
	assert.Equal(t, "Speaker 1", got[0].Speaker)
}

func TestAlign_TieGoesToFirstSeen(t *testing.T) {
	t.Parallel()

	seg := []Segment{{Start: 0, End: 10}}
	a := Turn{Start: 0, End: 5, SpeakerID: "A"}
	b := Turn{Start: 5, End: 10, SpeakerID: "B"}

	assert.Equal(t, "A", Align(seg, []Turn{a, b})[0].Speaker)
	assert.Equal(t, "B", Align(seg, []Turn{b, a})[0].Speaker)
}

func TestAlign_PreservesOrderAndCount(t *testing.T) {
	t.Parallel()

	segments := []Segment{{Start: 5, End: 6, Text: "2"}, {Start: 0, End: 1, Text: "1"}, {Start: 9, End: 12, Text: "3"}}
	got := Align(segments, []Turn{{Start: 0, End: 10, SpeakerID: "SPEAKER_02"}})
	require.Len(t, got, 3)
	for i := range segments {
		assert.Equal(t, segments[i], got[i].Segment)
		assert.Equal(t, "Speaker 3", got[i].Speaker)
	}
	assert.Empty(t, Align(nil, nil))
}

func TestAligner_Label(t *testing.T) {
	t.Parallel()

	ko := NewAligner("화자")
	assert.Equal(t, "화자 1", ko.Label("SPEAKER_00"))
	assert.Equal(t, "화자 11", ko.Label("SPEAKER_10"))

	en := NewAligner("")
	assert.Equal(t, "Speaker 2", en.Label("speaker-1"))
	assert.Equal(t, "alice", en.Label("alice"))
	assert.Equal(t, "", en.Label(""))
}

func TestFormatPlain(t *testing.T) {
	t.Parallel()

	got := FormatPlain([]Segment{
		{Start: 0, End: 5.5, Text: "안녕"},
		{Start: 6, End: 7, Text: "  "},
		{Start: 65, End: 70.9, Text: " 야 "},
	})
	assert.Equal(t, "[00:00 - 00:05] 안녕\n[01:05 - 01:10] 야", got)
	assert.Equal(t, "", FormatPlain(nil))
}

func TestFormatLabeled(t *testing.T) {
	t.Parallel()

	got := FormatLabeled([]LabeledSegment{
		{Segment: Segment{Start: 1, End: 2, Text: "넌 끝났어"}, Speaker: "화자 1"},
		{Segment: Segment{Start: 3725, End: 3726, Text: "뭐?"}, Speaker: UnknownSpeaker},
	})
	assert.Equal(t, "[00:01] 화자 1: 넌 끝났어\n[62:05] Unknown: 뭐?", got)
}

func TestFormatClock(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "00:00", FormatClock(-1))
	assert.Equal(t, "00:59", FormatClock(59.99))
	assert.Equal(t, "02:00", FormatClock(120))
}
