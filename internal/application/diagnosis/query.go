package diagnosis

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	sectionImage = "image"
	sectionAudio = "audio"

	// commentsPlaceholder stands in for the comment body when only files
	// were uploaded.
	commentsPlaceholder = "(사용자가 업로드한 스크린샷/녹음 파일 내용을 참조하여 분석하세요)"
)

// BuildSituation frames the typed text for the selected mode. Comments mode
// uses a fixed template so the advisor analyzes each author separately.
func BuildSituation(req Request) string {
	if req.Mode != ModeComments {
		return req.Text
	}
	body := req.Text
	if strings.TrimSpace(body) == "" {
		body = commentsPlaceholder
	}
	var b strings.Builder
	b.WriteString("[분석 모드: 기사/커뮤니티 악플]\n")
	fmt.Fprintf(&b, "1. 게시글 제목: %s\n", req.PostTitle)
	fmt.Fprintf(&b, "2. 피해 대상: %s\n", req.Victim)
	b.WriteString("3. 악플 내용들 (작성자별 분석 필요):\n")
	b.WriteString(body)
	return b.String()
}

// MergeSections appends extracted evidence text after situation, grouped
// under image and audio headings in input order. Sections without text
// are skipped.
func MergeSections(situation string, sections []Section) string {
	images := renderSections(sections, sectionImage, "이미지")
	audio := renderSections(sections, sectionAudio, "음성")

	var b strings.Builder
	b.WriteString(situation)
	if images != "" {
		b.WriteString("\n\n[이미지 내용]\n")
		b.WriteString(images)
	}
	if audio != "" {
		b.WriteString("\n\n[음성 내용]\n")
		b.WriteString(audio)
	}
	return b.String()
}

func renderSections(sections []Section, kind, heading string) string {
	var b strings.Builder
	for _, s := range sections {
		if s.Kind != kind || strings.TrimSpace(s.Text) == "" {
			continue
		}
		fmt.Fprintf(&b, "\n[%s %d]\n%s\n", heading, s.Index, s.Text)
	}
	return b.String()
}

// SearchQuery appends the candidate crime as a keyword line.
func SearchQuery(cleaned string, f Features) string {
	crime := strings.TrimSpace(f.CandidateCrime)
	if crime == "" {
		crime = "기타"
	}
	return cleaned + "\n키워드: " + crime
}

// QueryHash is the cache key for a search query.
func QueryHash(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])
}
