package evidence

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/forPelevin/gomoji"
	"golang.org/x/text/unicode/norm"
)

// DefaultPhonePlaceholder replaces redacted mobile numbers.
const DefaultPhonePlaceholder = "[PHONE]"

// maxCleanPasses bounds the fixpoint loop in Clean. Real inputs settle in two.
const maxCleanPasses = 6

const (
	datePart    = `\d{4}[ \t]*[년./-][ \t]*\d{1,2}[ \t]*[월./-][ \t]*\d{1,2}(?:[ \t]*[일.])?`
	weekdayPart = `(?:[ \t]*(?:[월화수목금토일]요일|\([월화수목금토일]\)|\(?(?i:monday|tuesday|wednesday|thursday|friday|saturday|sunday|mon|tue|wed|thu|fri|sat|sun)\b\.?\)?))?`
	nickPart    = `[^\s:]{1,20}`
	clockPart   = `(?:(?:오전|오후|\b(?i:am|pm)\b)[ \t]*)?\d{1,2}:\d{2}(?::\d{2})?(?:[ \t]*\b(?i:am|pm)\b)?`
)

var (
	// "--------- 2024년 1월 15일 월요일 ---------"
	dateBannerRe = regexp.MustCompile(`(?m)^[ \t]*[-=]*[ \t]*` + datePart + weekdayPart + `[ \t]*[-=]*[ \t]*$`)
	// "2024. 1. 15. 오후 3:04, 홍길동 : ..." keeps the message part.
	datePrefixRe = regexp.MustCompile(`(?m)^[ \t]*` + datePart + weekdayPart + `[ \t,]*` + clockPart + `[ \t]*,?`)
	// Bare clock times are only stripped at line start or when they carry
	// seconds, so "2:10 으로 졌다" mid-sentence keeps its score.
	timestampRe = regexp.MustCompile(`(?m)\[[ \t]*` + clockPart + `(?:[ \t]*[-~][ \t]*` + clockPart + `)?[ \t]*\]` +
		`|(?:오전|오후|\b(?i:am|pm)\b)[ \t]*\b\d{1,2}:\d{2}(?::\d{2})?\b` +
		`|\b\d{1,2}:\d{2}(?::\d{2})?[ \t]*\b(?i:am|pm)\b` +
		`|^[ \t]*\d{1,2}:\d{2}(?::\d{2})?\b` +
		`|\b\d{1,2}:\d{2}:\d{2}\b`)

	systemNoticeRes = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^[ \t]*` + nickPart + `님이 (?:입장하셨습니다|들어왔습니다)\.?[ \t]*$`),
		regexp.MustCompile(`(?m)^[ \t]*` + nickPart + `님이 나갔습니다\.?[ \t]*$`),
		regexp.MustCompile(`(?m)^[ \t]*` + nickPart + `님이 ` + nickPart + `님(?:,[ \t]*` + nickPart + `님)*[을를] 초대(?:했|하였)습니다\.?[ \t]*$`),
		regexp.MustCompile(`(?m)^[ \t]*(?:` + nickPart + `님이 )?채팅방을 나갔습니다\.?[ \t]*$`),
	}
	englishNoticeRes = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^[ \t]*([^\s:]+) (?:joined|left) the (?:chat|chatroom|group)\.?[ \t]*$`),
		regexp.MustCompile(`(?m)^[ \t]*([^\s:]+) invited [^\s:]+(?:,? (?:and )?[^\s:]+)* to the (?:chat|chatroom|group)\.?[ \t]*$`),
	}
	// Pronoun actors mark ordinary sentences, not notices.
	pronouns = map[string]bool{"i": true, "we": true, "you": true, "he": true, "she": true, "they": true, "it": true}

	phoneRe = regexp.MustCompile(`01[016789][-. \t]?\d{3,4}[-. \t]?\d{4}`)
)

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithPhonePlaceholder overrides the text substituted for phone numbers.
func WithPhonePlaceholder(placeholder string) NormalizerOption {
	return func(n *Normalizer) {
		if placeholder != "" {
			n.phonePlaceholder = placeholder
		}
	}
}

// WithoutEmojiNames leaves pictographs untouched instead of naming them.
func WithoutEmojiNames() NormalizerOption {
	return func(n *Normalizer) { n.nameEmoji = false }
}

// Normalizer cleans raw chat, comment and transcript text. The zero value is
// not usable; call NewNormalizer.
type Normalizer struct {
	phonePlaceholder string
	nameEmoji        bool
}

// NewNormalizer returns a Normalizer with the given options applied.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		phonePlaceholder: DefaultPhonePlaceholder,
		nameEmoji:        true,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var defaultNormalizer = NewNormalizer()

// Clean runs the default Normalizer.
func Clean(raw string) string {
	return defaultNormalizer.Clean(raw)
}

// Clean applies the cleaning pipeline until the text stops changing, so
// Clean(Clean(x)) == Clean(x). Whitespace collapsing can join lines into a
// new whole-line match, which a single pass would miss.
func (n *Normalizer) Clean(raw string) string {
	text := raw
	for i := 0; i < maxCleanPasses; i++ {
		next := n.pass(text)
		if next == text {
			break
		}
		text = next
	}
	return text
}

func (n *Normalizer) pass(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	// Exports saved on macOS carry decomposed Hangul jamo.
	text = norm.NFC.String(text)
	text = stripDates(text)
	text = stripSystemNotices(text)
	text = phoneRe.ReplaceAllLiteralString(text, n.phonePlaceholder)
	text = CollapseRepeats(text, 2)
	if n.nameEmoji {
		text = nameEmoji(text)
	}
	return strings.Join(strings.Fields(text), " ")
}

func stripDates(text string) string {
	text = dateBannerRe.ReplaceAllLiteralString(text, "")
	text = datePrefixRe.ReplaceAllLiteralString(text, "")
	return timestampRe.ReplaceAllLiteralString(text, " ")
}

func stripSystemNotices(text string) string {
	for _, re := range systemNoticeRes {
		text = re.ReplaceAllLiteralString(text, "")
	}
	for _, re := range englishNoticeRes {
		text = re.ReplaceAllStringFunc(text, func(line string) string {
			if m := re.FindStringSubmatch(line); pronouns[strings.ToLower(m[1])] {
				return line
			}
			return ""
		})
	}
	return text
}

// CollapseRepeats shortens every run of the same rune longer than max down
// to max runes. "ㅋㅋㅋㅋㅋ" with max 2 becomes "ㅋㅋ".
func CollapseRepeats(text string, max int) string {
	if max < 1 {
		max = 1
	}
	var sb strings.Builder
	sb.Grow(len(text))
	var prev rune
	run := 0
	for i, r := range text {
		if i > 0 && r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run <= max {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// nameEmoji swaps each pictograph for its short name padded with spaces,
// e.g. "좋네😡" becomes "좋네 enraged_face ".
func nameEmoji(text string) string {
	if !gomoji.ContainsEmoji(text) {
		return text
	}
	return gomoji.ReplaceEmojisWithFunc(text, func(e gomoji.Emoji) string {
		name := strings.Map(func(r rune) rune {
			switch {
			case r == ':':
				return -1
			case r == '-' || unicode.IsSpace(r):
				return '_'
			}
			return r
		}, e.Slug)
		return " " + name + " "
	})
}
