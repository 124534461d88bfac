package precedent

import "fmt"

// DefaultConvictionBudget is the total number of precedents, main included,
// that Rank returns.
const DefaultConvictionBudget = 5

// Status tells the caller which narrative the outcome supports.
type Status int

const (
	// StatusNoPrecedent means search returned nothing.
	StatusNoPrecedent Status = iota
	// StatusWarning means precedents exist but none convicted; the main case
	// is the closest non-conviction and the advice must say so.
	StatusWarning
	StatusConvictionFound
)

func (s Status) String() string {
	switch s {
	case StatusConvictionFound:
		return "conviction_found"
	case StatusWarning:
		return "warning"
	default:
		return "no_precedent"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "conviction_found":
		*s = StatusConvictionFound
	case "warning":
		*s = StatusWarning
	case "no_precedent", "":
		*s = StatusNoPrecedent
	default:
		return fmt.Errorf("precedent: unknown status %q", string(b))
	}
	return nil
}

// RankedOutcome is the anchor precedent plus the ordered supporting cases.
type RankedOutcome struct {
	Status          Status       `json:"status"`
	Main            ScoredCase   `json:"main"`
	Remainder       []ScoredCase `json:"remainder"`
	ConvictionFound bool         `json:"conviction_found"`
}

// HasPrecedent is false only for StatusNoPrecedent.
func (o RankedOutcome) HasPrecedent() bool {
	return o.Status != StatusNoPrecedent
}

// Cases returns the main case followed by the remainder.
func (o RankedOutcome) Cases() []ScoredCase {
	if !o.HasPrecedent() {
		return nil
	}
	return append([]ScoredCase{o.Main}, o.Remainder...)
}

// Ranker applies the conviction-first policy with a fixed budget.
type Ranker struct {
	budget int
}

// NewRanker returns a Ranker. A budget <= 0 means DefaultConvictionBudget.
func NewRanker(budget int) *Ranker {
	if budget <= 0 {
		budget = DefaultConvictionBudget
	}
	return &Ranker{budget: budget}
}

// Budget returns the effective conviction budget.
func (r *Ranker) Budget() int { return r.budget }

// Rank calls the package-level Rank with the Ranker's budget.
func (r *Ranker) Rank(scored []ScoredCase) RankedOutcome {
	return Rank(scored, r.budget)
}

// Rank picks the anchor precedent from scored, which must already be sorted
// by descending relevance.
//
// When any case convicted, the first conviction becomes Main and the pool is
// the remaining convictions followed by every other case. Otherwise the
// overall best match becomes Main under StatusWarning and the pool is the
// rest of the input. Remainder is the first budget-1 cases of the pool; each
// judgment bucket keeps its input order. Empty input yields
// StatusNoPrecedent.
func Rank(scored []ScoredCase, budget int) RankedOutcome {
	if budget <= 0 {
		budget = DefaultConvictionBudget
	}
	if len(scored) == 0 {
		return RankedOutcome{Status: StatusNoPrecedent, Remainder: []ScoredCase{}}
	}

	var convicting, other []ScoredCase
	for _, sc := range scored {
		if sc.Case.Convicted() {
			convicting = append(convicting, sc)
		} else {
			other = append(other, sc)
		}
	}

	var (
		out  RankedOutcome
		pool []ScoredCase
	)
	if len(convicting) > 0 {
		out.Main = convicting[0]
		out.Status = StatusConvictionFound
		out.ConvictionFound = true
		pool = append(append(pool, convicting[1:]...), other...)
	} else {
		out.Main = scored[0]
		out.Status = StatusWarning
		pool = scored[1:]
	}

	n := min(budget-1, len(pool))
	out.Remainder = make([]ScoredCase, n)
	copy(out.Remainder, pool[:n])
	return out
}
