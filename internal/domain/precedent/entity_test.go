package precedent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetadataFromMap(t *testing.T) {
	t.Parallel()

	meta := MetadataFromMap(map[string]any{
		"case_id":  " 2021고정123 ",
		"title":    "모욕",
		"judgment": "벌금 50만원",
		"fine":     "50만원",
		"year":     float64(2021),
	})
	assert.Equal(t, "2021고정123", meta.CaseID)
	assert.Equal(t, "모욕", meta.Title)
	assert.Equal(t, "벌금 50만원", meta.JudgmentText)
	assert.Equal(t, int64(50), meta.Fine)
	assert.Equal(t, 2021, meta.Year)
}

func TestMetadataFromMap_Defaults(t *testing.T) {
	t.Parallel()

	meta := MetadataFromMap(map[string]any{"year": "2019.03.04", "fine": nil})
	assert.Equal(t, int64(0), meta.Fine)
	assert.Equal(t, 2019, meta.Year)
	assert.Empty(t, meta.JudgmentText)

	c := NewCandidateCase("", "본문", meta)
	assert.Equal(t, JudgmentOther, c.Judgment)
	assert.Equal(t, 2019, c.DisplayYear())

	assert.Equal(t, CaseMetadata{}, MetadataFromMap(nil))
	assert.Equal(t, int64(1500), MetadataFromMap(map[string]any{"fine": "1,500"}).Fine)
}

func TestMetadata_RoundTripsThroughMap(t *testing.T) {
	t.Parallel()

	meta := CaseMetadata{CaseID: "2020노1", Title: "명예훼손", JudgmentText: "무죄", Fine: 0, Year: 2020, Court: "서울중앙지법"}
	assert.Equal(t, meta, MetadataFromMap(meta.ToMap()))
}

func TestCandidateCase_Display(t *testing.T) {
	t.Parallel()

	c := NewCandidateCase("doc-1", "", CaseMetadata{CaseID: "2022고단 77", JudgmentText: "징역 4월"})
	assert.Equal(t, JudgmentGuilty, c.Judgment)
	assert.True(t, c.Convicted())
	assert.Equal(t, DisplayYearFallback, c.DisplayYear())
	assert.Equal(t, "https://www.law.go.kr/precSc.do?menuId=7&query=2022%EA%B3%A0%EB%8B%A8+77", c.LawLink())

	c.Metadata.Link = "https://example.org/case"
	assert.Equal(t, "https://example.org/case", c.LawLink())

	assert.Equal(t, "", CandidateCase{}.LawLink())
	assert.Equal(t, "2022고단 77", NewCandidateCase("", "", CaseMetadata{CaseID: "2022고단 77"}).ID)
}

func TestCandidateCase_ConvictedFromRawText(t *testing.T) {
	t.Parallel()

	c := CandidateCase{Metadata: CaseMetadata{JudgmentText: "벌금형"}}
	assert.True(t, c.Convicted())
}
