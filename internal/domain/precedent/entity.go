package precedent

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// DisplayYearFallback is shown for cases whose year is unknown.
const DisplayYearFallback = 2020

const lawSearchURL = "https://www.law.go.kr/precSc.do?menuId=7&query="

var digitsRe = regexp.MustCompile(`\d+`)

// CaseMetadata is the structured form of the metadata a search backend
// returns with each precedent. Missing numeric fields are zero.
type CaseMetadata struct {
	CaseID       string `json:"case_id"`
	Title        string `json:"title"`
	JudgmentText string `json:"judgment"`
	Court        string `json:"court,omitempty"`
	Fine         int64  `json:"fine"` // 만원 (10,000 KRW)
	Year         int    `json:"year"`
	Link         string `json:"link,omitempty"`
}

// MetadataFromMap converts a loosely typed metadata record, as stored in
// vector stores and search indices, into CaseMetadata. Fine and year accept
// numbers or strings such as "300만원" and "2021.03.04".
func MetadataFromMap(m map[string]any) CaseMetadata {
	meta := CaseMetadata{
		CaseID:       strings.TrimSpace(cast.ToString(m["case_id"])),
		Title:        strings.TrimSpace(cast.ToString(m["title"])),
		JudgmentText: strings.TrimSpace(cast.ToString(m["judgment"])),
		Court:        strings.TrimSpace(cast.ToString(m["court"])),
		Link:         strings.TrimSpace(cast.ToString(m["link"])),
		Fine:         leadingInt64(m["fine"]),
		Year:         int(leadingInt64(m["year"])),
	}
	if meta.Year > 9999 {
		meta.Year = 0
	}
	return meta
}

// ToMap is the inverse of MetadataFromMap, used when indexing.
func (m CaseMetadata) ToMap() map[string]any {
	return map[string]any{
		"case_id":  m.CaseID,
		"title":    m.Title,
		"judgment": m.JudgmentText,
		"court":    m.Court,
		"fine":     m.Fine,
		"year":     m.Year,
		"link":     m.Link,
	}
}

func leadingInt64(v any) int64 {
	switch t := v.(type) {
	case nil:
		return 0
	case string:
		d := digitsRe.FindString(strings.ReplaceAll(t, ",", ""))
		n, _ := strconv.ParseInt(d, 10, 64)
		return n
	}
	if n, err := cast.ToInt64E(v); err == nil {
		return n
	}
	return int64(cast.ToFloat64(v))
}

// CandidateCase is a precedent returned by similarity search.
type CandidateCase struct {
	ID       string       `json:"id"`
	Content  string       `json:"content"`
	Judgment Judgment     `json:"judgment"`
	Metadata CaseMetadata `json:"metadata"`
}

// NewCandidateCase builds a case from search output and classifies its
// judgment. An empty id falls back to the case number.
func NewCandidateCase(id, content string, meta CaseMetadata) CandidateCase {
	if id == "" {
		id = meta.CaseID
	}
	return CandidateCase{
		ID:       id,
		Content:  content,
		Judgment: Classify(meta.JudgmentText),
		Metadata: meta,
	}
}

// Convicted reports whether the case's judgment signals guilt, using the
// raw judgment text when the case was built without NewCandidateCase.
func (c CandidateCase) Convicted() bool {
	return c.Judgment == JudgmentGuilty || IsConviction(c.Metadata.JudgmentText)
}

// DisplayYear returns the decision year or DisplayYearFallback.
func (c CandidateCase) DisplayYear() int {
	if c.Metadata.Year > 0 {
		return c.Metadata.Year
	}
	return DisplayYearFallback
}

// LawLink returns the stored link or a national law portal search URL for
// the case number.
func (c CandidateCase) LawLink() string {
	if c.Metadata.Link != "" {
		return c.Metadata.Link
	}
	if c.Metadata.CaseID == "" {
		return ""
	}
	return lawSearchURL + url.QueryEscape(c.Metadata.CaseID)
}

// ScoredCase pairs a case with its relevance score. The scale belongs to the
// search backend.
type ScoredCase struct {
	Case  CandidateCase `json:"case"`
	Score float64       `json:"score"`
}
