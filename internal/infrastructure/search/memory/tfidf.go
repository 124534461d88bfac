package memory

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// vectorizer is a smoothed TF-IDF model over a fixed vocabulary.
type vectorizer struct {
	vocabulary map[string]int
	idf        []float64
}

type sparseVector map[int]float64

// fitVectorizer builds the vocabulary and IDF weights from corpus.
func fitVectorizer(corpus []string) *vectorizer {
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	v := &vectorizer{vocabulary: make(map[string]int, len(terms)), idf: make([]float64, len(terms))}
	n := float64(len(corpus))
	for i, term := range terms {
		v.vocabulary[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return v
}

// transform returns the L2-normalized TF-IDF vector of text. Terms outside
// the vocabulary are ignored.
func (v *vectorizer) transform(text string) sparseVector {
	tf := make(map[int]int)
	total := 0
	for _, tok := range tokenize(text) {
		if idx, ok := v.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	vec := make(sparseVector, len(tf))
	if total == 0 {
		return vec
	}

	var norm float64
	for idx, count := range tf {
		w := float64(count) / float64(total) * v.idf[idx]
		vec[idx] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	for idx := range vec {
		vec[idx] /= norm
	}
	return vec
}

func (a sparseVector) dot(b sparseVector) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for idx, w := range a {
		sum += w * b[idx]
	}
	return sum
}

// tokenize lowercases text and splits it into letter/digit runs. Hangul
// words also contribute their character bigrams so that inflected forms
// ("모욕죄로", "모욕죄가") still share terms.
func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := make([]string, 0, len(raw)*2)
	for _, tok := range raw {
		out = append(out, tok)
		if utf8.RuneCountInString(tok) < 3 || !isHangul(tok) {
			continue
		}
		runes := []rune(tok)
		for i := 0; i+1 < len(runes); i++ {
			out = append(out, "#"+string(runes[i:i+2]))
		}
	}
	return out
}

func isHangul(s string) bool {
	for _, r := range s {
		if !unicode.Is(unicode.Hangul, r) {
			return false
		}
	}
	return true
}
