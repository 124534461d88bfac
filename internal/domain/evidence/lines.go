package evidence

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

// DefaultYThreshold is the vertical tolerance, in pixels, for treating two
// word boxes as one line. Tuned for phone screenshots.
const DefaultYThreshold = 15.0

// Fragment is one OCR-detected text region anchored at its top-left corner.
type Fragment struct {
	Text       string  `json:"text"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Reconstruct orders fragments top-to-bottom, left-to-right and returns the
// lines joined by newlines. A yThreshold <= 0 uses DefaultYThreshold.
func Reconstruct(fragments []Fragment, yThreshold float64) string {
	return strings.Join(ReconstructLines(fragments, yThreshold), "\n")
}

// ReconstructLines groups fragments into lines. A fragment joins the open
// line when its Y is within yThreshold of the last fragment added to that
// line, so a gently sloped row stays together. Every fragment lands in
// exactly one line and fragments is not modified.
func ReconstructLines(fragments []Fragment, yThreshold float64) []string {
	if len(fragments) == 0 {
		return nil
	}
	if yThreshold <= 0 {
		yThreshold = DefaultYThreshold
	}

	sorted := slices.Clone(fragments)
	slices.SortStableFunc(sorted, func(a, b Fragment) int {
		return cmp.Compare(a.Y, b.Y)
	})

	var lines []string
	group := []Fragment{sorted[0]}
	for _, f := range sorted[1:] {
		last := group[len(group)-1]
		if math.Abs(f.Y-last.Y) < yThreshold {
			group = append(group, f)
			continue
		}
		lines = append(lines, closeLine(group))
		group = []Fragment{f}
	}
	return append(lines, closeLine(group))
}

func closeLine(group []Fragment) string {
	slices.SortStableFunc(group, func(a, b Fragment) int {
		return cmp.Compare(a.X, b.X)
	})
	texts := make([]string, len(group))
	for i, f := range group {
		texts[i] = f.Text
	}
	return strings.Join(texts, " ")
}
