package precedent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want Judgment
	}{
		{"벌금 300만원", JudgmentGuilty},
		{"징역 6월, 집행유예 2년", JudgmentGuilty},
		{"선고유예", JudgmentGuilty},
		{"유죄", JudgmentGuilty},
		{"항소 기각, 벌금 100만원", JudgmentGuilty},
		{"guilty, fine", JudgmentGuilty},
		{"Defendant fined 2,000,000 won", JudgmentGuilty},
		{"suspended sentence", JudgmentGuilty},
		{"무죄", JudgmentNotGuilty},
		{"공소기각", JudgmentNotGuilty},
		{"혐의없음", JudgmentNotGuilty},
		{"acquitted", JudgmentNotGuilty},
		{"dismissed", JudgmentNotGuilty},
		{"Not Guilty", JudgmentNotGuilty},
		{"finest hour", JudgmentOther},
		{"파기환송", JudgmentOther},
		{"", JudgmentOther},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Classify(tc.text), tc.text)
	}
}

func TestIsConviction(t *testing.T) {
	t.Parallel()

	assert.True(t, IsConviction("GUILTY"))
	assert.False(t, IsConviction("not guilty"))
	assert.False(t, IsConviction("acquitted"))
}

func TestJudgment_LabelsAndText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "유죄", JudgmentGuilty.Label())
	assert.Equal(t, "무죄", JudgmentNotGuilty.Label())
	assert.Equal(t, "기타", JudgmentOther.Label())

	b, err := json.Marshal(map[string]Judgment{"j": JudgmentNotGuilty})
	require.NoError(t, err)
	assert.JSONEq(t, `{"j":"NotGuilty"}`, string(b))

	var j Judgment
	require.NoError(t, j.UnmarshalText([]byte("Guilty")))
	assert.Equal(t, JudgmentGuilty, j)
	assert.Error(t, j.UnmarshalText([]byte("maybe")))
}
