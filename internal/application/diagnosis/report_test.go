package diagnosis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/LawLens/internal/domain/precedent"
	"github.com/turtacn/LawLens/internal/testutil"
)

func TestBuildRows(t *testing.T) {
	outcome := precedent.Rank([]precedent.ScoredCase{
		testutil.Scored("2020고단1", "무죄", 0.9),
		testutil.Scored("2021고단2", "벌금 300만원", 0.8),
		{Case: precedent.NewCandidateCase("doc-3", "", precedent.CaseMetadata{}), Score: 0.5},
	}, 5)

	rows := BuildRows(outcome)
	require.Len(t, rows, 3)

	main := rows[0]
	assert.True(t, main.Main)
	assert.Equal(t, "2021고단2", main.CaseID)
	assert.Equal(t, "유죄", main.Category)
	assert.InDelta(t, 80.0, main.Similarity, 1e-9)
	assert.Equal(t, precedent.DisplayYearFallback, main.Year)
	assert.Contains(t, main.Link, "law.go.kr")

	assert.False(t, rows[1].Main)
	assert.Equal(t, "무죄", rows[1].Category)

	blank := rows[2]
	assert.Equal(t, "?", blank.Title)
	assert.Equal(t, "?", blank.CaseID)
	assert.Equal(t, "기타", blank.Judgment)
	assert.Empty(t, blank.Link)
}

func TestBuildRows_NoPrecedent(t *testing.T) {
	assert.Empty(t, BuildRows(precedent.Rank(nil, 5)))
}

func TestAverageSimilarity(t *testing.T) {
	assert.Zero(t, AverageSimilarity(nil))
	rows := []CaseRow{{Similarity: 80}, {Similarity: 60}}
	assert.InDelta(t, 70.0, AverageSimilarity(rows), 1e-9)
}

func TestGlossary_LongestTermWins(t *testing.T) {
	entries := Glossary("사건은 불송치로 끝났고 공연성이 문제였습니다.")

	terms := make([]string, 0, len(entries))
	for _, e := range entries {
		terms = append(terms, e.Term)
	}
	assert.ElementsMatch(t, []string{"불송치", "공연성"}, terms)
	for _, e := range entries {
		assert.NotEmpty(t, e.Definition)
		assert.Contains(t, e.Link, "terms.naver.com")
	}
}

func TestGlossary_Empty(t *testing.T) {
	assert.Nil(t, Glossary(""))
	assert.Empty(t, Glossary("법률 용어가 없는 문장"))
}
