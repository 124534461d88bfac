package diagnosis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSituation_GeneralModeIsVerbatim(t *testing.T) {
	req := Request{Mode: ModeGeneral, Text: "너 진짜 바보냐", PostTitle: "ignored"}
	assert.Equal(t, "너 진짜 바보냐", BuildSituation(req))
}

func TestBuildSituation_CommentsTemplate(t *testing.T) {
	req := Request{Mode: ModeComments, Text: "작성자A: 꺼져\n작성자B: 한심하다", PostTitle: "공지", Victim: "홍길동"}

	want := "[분석 모드: 기사/커뮤니티 악플]\n" +
		"1. 게시글 제목: 공지\n" +
		"2. 피해 대상: 홍길동\n" +
		"3. 악플 내용들 (작성자별 분석 필요):\n" +
		"작성자A: 꺼져\n작성자B: 한심하다"
	assert.Equal(t, want, BuildSituation(req))
}

func TestBuildSituation_CommentsPlaceholderWhenOnlyFiles(t *testing.T) {
	req := Request{Mode: ModeComments, Text: "  \n", Images: []Evidence{{Name: "a.png", Data: []byte{1}}}}
	got := BuildSituation(req)
	assert.True(t, strings.HasSuffix(got, commentsPlaceholder))
}

func TestMergeSections(t *testing.T) {
	sections := []Section{
		{Kind: sectionAudio, Index: 1, Text: "[00:00] 화자 1: 안녕"},
		{Kind: sectionImage, Index: 1, Text: "첫 줄\n둘째 줄"},
		{Kind: sectionImage, Index: 2, Text: "   "},
		{Kind: sectionImage, Index: 3, Text: "셋째 이미지"},
	}

	got := MergeSections("상황", sections)

	want := "상황" +
		"\n\n[이미지 내용]\n" +
		"\n[이미지 1]\n첫 줄\n둘째 줄\n" +
		"\n[이미지 3]\n셋째 이미지\n" +
		"\n\n[음성 내용]\n" +
		"\n[음성 1]\n[00:00] 화자 1: 안녕\n"
	assert.Equal(t, want, got)
}

func TestMergeSections_NoSections(t *testing.T) {
	assert.Equal(t, "상황", MergeSections("상황", nil))
}

func TestSearchQuery(t *testing.T) {
	tests := []struct {
		name  string
		crime string
		want  string
	}{
		{"candidate crime", "모욕죄", "본문\n키워드: 모욕죄"},
		{"blank falls back", "  ", "본문\n키워드: 기타"},
		{"analysis failed", AnalysisFailed, "본문\n키워드: 분석실패"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SearchQuery("본문", Features{CandidateCrime: tt.crime}))
		})
	}
}

func TestQueryHash(t *testing.T) {
	a := QueryHash("same")
	assert.Len(t, a, 64)
	assert.Equal(t, a, QueryHash("same"))
	assert.NotEqual(t, a, QueryHash("other"))
}
