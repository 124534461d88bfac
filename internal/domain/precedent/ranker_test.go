package precedent

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(id, judgment string, score float64) ScoredCase {
	return Document{ID: id, Metadata: CaseMetadata{CaseID: id, JudgmentText: judgment}}.Candidate(score)
}

func ids(cases []ScoredCase) []string {
	out := make([]string, len(cases))
	for i, c := range cases {
		out[i] = c.Case.ID
	}
	return out
}

func TestRank_ConvictionPreferred(t *testing.T) {
	t.Parallel()

	out := Rank([]ScoredCase{
		scored("X", "acquitted", 0.9),
		scored("Y", "guilty, fine", 0.7),
	}, 5)

	assert.Equal(t, StatusConvictionFound, out.Status)
	assert.True(t, out.ConvictionFound)
	assert.Equal(t, "Y", out.Main.Case.ID)
	assert.Equal(t, 0.7, out.Main.Score)
	assert.Equal(t, []string{"X"}, ids(out.Remainder))
}

func TestRank_WarningWhenNoConviction(t *testing.T) {
	t.Parallel()

	out := Rank([]ScoredCase{
		scored("X", "acquitted", 0.9),
		scored("Z", "dismissed", 0.5),
	}, 5)

	assert.Equal(t, StatusWarning, out.Status)
	assert.False(t, out.ConvictionFound)
	assert.Equal(t, "X", out.Main.Case.ID)
	assert.Equal(t, 0.9, out.Main.Score)
	assert.Equal(t, []string{"Z"}, ids(out.Remainder))
	assert.True(t, out.HasPrecedent())
}

func TestRank_ConvictingFirstPoolOrder(t *testing.T) {
	t.Parallel()

	out := Rank([]ScoredCase{
		scored("n1", "무죄", 0.95),
		scored("g1", "벌금 100만원", 0.9),
		scored("o1", "파기환송", 0.85),
		scored("g2", "징역 1년", 0.8),
		scored("n2", "기각", 0.7),
		scored("g3", "선고유예", 0.6),
	}, 5)

	assert.Equal(t, "g1", out.Main.Case.ID)
	assert.Equal(t, []string{"g2", "g3", "n1", "o1"}, ids(out.Remainder))
	assert.Equal(t, []string{"g1", "g2", "g3", "n1", "o1"}, ids(out.Cases()))
}

func TestRank_EmptyIsNoPrecedent(t *testing.T) {
	t.Parallel()

	out := Rank(nil, 5)
	assert.Equal(t, StatusNoPrecedent, out.Status)
	assert.False(t, out.HasPrecedent())
	assert.False(t, out.ConvictionFound)
	assert.Empty(t, out.Remainder)
	assert.Nil(t, out.Cases())
}

func TestRank_RespectsBudget(t *testing.T) {
	t.Parallel()

	var input []ScoredCase
	for i := 0; i < 12; i++ {
		judgment := "무죄"
		if i%3 == 0 {
			judgment = "벌금"
		}
		input = append(input, scored(fmt.Sprintf("c%d", i), judgment, 1-float64(i)/20))
	}

	for budget := 1; budget <= 15; budget++ {
		out := Rank(input, budget)
		assert.LessOrEqual(t, len(out.Remainder), budget-1, "budget %d", budget)
	}
	assert.Len(t, Rank(input, 0).Remainder, DefaultConvictionBudget-1)
	assert.Len(t, Rank(input, -2).Remainder, DefaultConvictionBudget-1)
}

func TestRank_SingleCandidate(t *testing.T) {
	t.Parallel()

	out := Rank([]ScoredCase{scored("only", "무죄", 0.3)}, 5)
	assert.Equal(t, StatusWarning, out.Status)
	assert.Equal(t, "only", out.Main.Case.ID)
	assert.Empty(t, out.Remainder)
}

func TestRank_DoesNotAliasInput(t *testing.T) {
	t.Parallel()

	input := []ScoredCase{scored("a", "무죄", 0.9), scored("b", "무죄", 0.8), scored("c", "무죄", 0.7)}
	out := Rank(input, 5)
	require.Len(t, out.Remainder, 2)
	out.Remainder[0].Score = -1
	assert.Equal(t, 0.8, input[1].Score)
}

func TestRanker_DefaultBudget(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultConvictionBudget, NewRanker(0).Budget())
	r := NewRanker(2)
	out := r.Rank([]ScoredCase{scored("a", "벌금", 0.5), scored("b", "벌금", 0.4), scored("c", "벌금", 0.3)})
	assert.Equal(t, []string{"b"}, ids(out.Remainder))
}

func TestStatus_Text(t *testing.T) {
	t.Parallel()

	for _, s := range []Status{StatusNoPrecedent, StatusWarning, StatusConvictionFound} {
		b, err := s.MarshalText()
		require.NoError(t, err)
		var back Status
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, s, back)
	}
	var s Status
	assert.Error(t, s.UnmarshalText([]byte("bogus")))
}
