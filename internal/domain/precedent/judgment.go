package precedent

import (
	"fmt"
	"regexp"
	"strings"
)

// Judgment is the outcome bucket of a precedent.
type Judgment int

const (
	// JudgmentOther matches neither vocabulary.
	JudgmentOther Judgment = iota
	JudgmentGuilty
	JudgmentNotGuilty
)

var (
	convictionTerms = []string{"유죄", "벌금", "징역", "선고유예", "집행유예", "imprisonment", "imprisoned", "suspended sentence"}
	acquittalTerms  = []string{"무죄", "공소기각", "기각", "혐의없음", "acquitted", "acquittal", "dismissed", "not guilty"}

	guiltyRe = regexp.MustCompile(`\bguilty\b`)
	fineRe   = regexp.MustCompile(`\bfine[sd]?\b`)
)

// Classify buckets free-form judgment text. Conviction terms are checked
// first, so "항소 기각, 벌금 300만원" is Guilty. "not guilty" never counts as
// a conviction.
func Classify(text string) Judgment {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return JudgmentOther
	}
	if isConviction(lower) {
		return JudgmentGuilty
	}
	for _, term := range acquittalTerms {
		if strings.Contains(lower, term) {
			return JudgmentNotGuilty
		}
	}
	return JudgmentOther
}

// IsConviction reports whether text signals a finding of guilt.
func IsConviction(text string) bool {
	return isConviction(strings.ToLower(text))
}

func isConviction(lower string) bool {
	for _, term := range convictionTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	withoutNegation := strings.ReplaceAll(lower, "not guilty", "")
	return guiltyRe.MatchString(withoutNegation) || fineRe.MatchString(lower)
}

func (j Judgment) String() string {
	switch j {
	case JudgmentGuilty:
		return "Guilty"
	case JudgmentNotGuilty:
		return "NotGuilty"
	default:
		return "Other"
	}
}

// Label is the Korean display category.
func (j Judgment) Label() string {
	switch j {
	case JudgmentGuilty:
		return "유죄"
	case JudgmentNotGuilty:
		return "무죄"
	default:
		return "기타"
	}
}

func (j Judgment) MarshalText() ([]byte, error) {
	return []byte(j.String()), nil
}

func (j *Judgment) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Guilty":
		*j = JudgmentGuilty
	case "NotGuilty":
		*j = JudgmentNotGuilty
	case "Other", "":
		*j = JudgmentOther
	default:
		return fmt.Errorf("precedent: unknown judgment %q", string(b))
	}
	return nil
}
