package diagnosis

import (
	"net/url"
	"sort"
	"strings"

	"github.com/turtacn/LawLens/internal/domain/precedent"
)

// NoPrecedentNotice is the advice given when the search returns nothing.
const NoPrecedentNotice = "죄송합니다. 유사한 판례를 찾을 수 없습니다."

const glossarySearchURL = "https://terms.naver.com/search.naver?query="

// BuildRows converts a ranked outcome into table rows, main case first.
// Similarity is the backend score as a percentage.
func BuildRows(outcome precedent.RankedOutcome) []CaseRow {
	cases := outcome.Cases()
	rows := make([]CaseRow, 0, len(cases))
	for i, sc := range cases {
		c := sc.Case
		judgment := c.Metadata.JudgmentText
		if judgment == "" {
			judgment = "기타"
		}
		title := c.Metadata.Title
		if title == "" {
			title = "?"
		}
		caseID := c.Metadata.CaseID
		if caseID == "" {
			caseID = "?"
		}
		rows = append(rows, CaseRow{
			Title:      title,
			CaseID:     caseID,
			Fine:       c.Metadata.Fine,
			Year:       c.DisplayYear(),
			Judgment:   judgment,
			Category:   precedent.Classify(c.Metadata.JudgmentText).Label(),
			Similarity: sc.Score * 100,
			Link:       c.LawLink(),
			Main:       i == 0,
		})
	}
	return rows
}

// AverageSimilarity is the mean row similarity, 0 for no rows.
func AverageSimilarity(rows []CaseRow) float64 {
	if len(rows) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rows {
		sum += r.Similarity
	}
	return sum / float64(len(rows))
}

var legalGlossary = map[string]string{
	"공연성":    "불특정 또는 다수인이 인식할 수 있는 상태 (인터넷 댓글은 기본적으로 충족됨)",
	"특정성":    "제3자가 봤을 때 누구를 향한 표현인지 알 수 있는 상태",
	"모욕성":    "사실 적시 없이 경멸적 감정을 표현하여 사회적 평가를 떨어뜨리는 것",
	"비방할 목적": "공익이 아닌, 오로지 상대방을 깎아내리려는 악의적 의도",
	"전파가능성":  "한 사람에게 말했어도 그 말이 퍼질 가능성이 있으면 공연성이 인정됨",
	"송치":     "경찰이 죄가 있다고 보아 사건을 검찰로 넘기는 것",
	"불송치":    "경찰이 죄가 안 된다고 보아 사건을 자체 종결하는 것",
	"기소":     "검사가 법원에 재판을 청구하는 것",
	"불기소":    "검사가 재판에 넘기지 않고 사건을 끝내는 처분",
	"기소유예":   "죄는 인정되나 정상을 참작해 검사가 재판에 넘기지 않는 처분",
	"약식명령":   "재판 없이 서류 심사만으로 벌금형을 내리는 절차",
	"구약식":    "검사가 판사에게 벌금형 약식명령을 청구하는 것",
	"선고유예":   "죄가 가벼워 형 선고를 미루고 2년이 지나면 면소된 것으로 보는 판결",
	"집행유예":   "형을 선고하되 집행을 일정 기간 미루는 판결",
	"친고죄":    "피해자가 직접 고소해야만 처벌할 수 있는 범죄 (모욕죄)",
	"반의사불벌죄": "피해자가 처벌을 원치 않으면 처벌할 수 없는 범죄 (명예훼손)",
	"위법성 조각": "죄의 요건은 갖췄으나 정당행위 등의 이유로 처벌하지 않는 것",
	"사실적시":   "허위가 아닌 사실을 드러내어 말함",
	"고소":     "피해자가 수사기관에 처벌을 요구하는 것",
	"고발":     "제3자가 수사기관에 처벌을 요구하는 것",
	"합의":     "가해자가 보상하고 피해자가 처벌불원 의사를 밝히는 것",
}

// Glossary lists the legal terms that occur in text, longest term first so
// a term that contains another (불송치, 송치) is reported once.
func Glossary(text string) []GlossaryEntry {
	if text == "" {
		return nil
	}
	terms := make([]string, 0, len(legalGlossary))
	for t := range legalGlossary {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		li, lj := len([]rune(terms[i])), len([]rune(terms[j]))
		if li != lj {
			return li > lj
		}
		return terms[i] < terms[j]
	})

	var out []GlossaryEntry
	remaining := text
	for _, t := range terms {
		if !strings.Contains(remaining, t) {
			continue
		}
		remaining = strings.ReplaceAll(remaining, t, " ")
		out = append(out, GlossaryEntry{
			Term:       t,
			Definition: legalGlossary[t],
			Link:       glossarySearchURL + url.QueryEscape(t),
		})
	}
	return out
}
