package evidence

import (
	"strings"
	"testing"

	"github.com/forPelevin/gomoji"
	"github.com/stretchr/testify/assert"
	"golang.org/x/text/unicode/norm"
)

func TestClean_EmptyInput(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", Clean(""))
	assert.Equal(t, "", Clean(" \n\t "))
}

func TestClean_Pipeline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "date banner line",
			in:   "--------------- 2024년 1월 15일 월요일 ---------------\n홍길동 : 안녕",
			want: "홍길동 : 안녕",
		},
		{
			name: "dotted date banner with english weekday",
			in:   "2024.01.15 Mon\n철수 : hi",
			want: "철수 : hi",
		},
		{
			name: "bracketed korean timestamp",
			in:   "[오후 3:04] 홍길동 : 바보야",
			want: "홍길동 : 바보야",
		},
		{
			name: "bare timestamp with seconds",
			in:   "10:12:33 hello",
			want: "hello",
		},
		{
			name: "export line date prefix",
			in:   "2024. 1. 15. 오후 3:04, 홍길동 : 사기꾼",
			want: "홍길동 : 사기꾼",
		},
		{
			name: "system notices",
			in:   "홍길동님이 입장하셨습니다.\n철수 : 안녕\n영희님이 나갔습니다.\n홍길동님이 김철수님을 초대했습니다.\n채팅방을 나갔습니다.",
			want: "철수 : 안녕",
		},
		{
			name: "notice text inside an ordinary sentence is kept",
			in:   "어제 선생님이 입장하셨습니다 라고 말했다",
			want: "어제 선생님이 입장하셨습니다 라고 말했다",
		},
		{
			name: "english notices",
			in:   "kim joined the chat\nkim: you liar\nlee invited park to the group",
			want: "kim: you liar",
		},
		{
			name: "speaker line ending in notice wording is kept",
			in:   "철수 : 이 바보야 너 때문에 영희님이 나갔습니다",
			want: "철수 : 이 바보야 너 때문에 영희님이 나갔습니다",
		},
		{
			name: "multi-word sentences ending in notice wording are kept",
			in:   "어제 회의 도중 부장님이 나갔습니다\n너 때문에 선생님이 나갔습니다",
			want: "어제 회의 도중 부장님이 나갔습니다 너 때문에 선생님이 나갔습니다",
		},
		{
			name: "invite notice with several guests",
			in:   "홍길동님이 김철수님, 이영희님을 초대했습니다.\n철수 : 안녕",
			want: "철수 : 안녕",
		},
		{
			name: "english sentences with a pronoun actor are kept",
			in:   "I left the group\nkim left the chat",
			want: "I left the group",
		},
		{
			name: "numbers shaped like clocks inside a message are kept",
			in:   "철수 : 계좌 123:45 끝자리, 2:10 으로 졌다",
			want: "철수 : 계좌 123:45 끝자리, 2:10 으로 졌다",
		},
		{
			name: "bracketed time range from a plain transcript",
			in:   "[01:01 - 01:03] 조용히 해",
			want: "조용히 해",
		},
		{
			name: "meridiem timestamp inside a line",
			in:   "홍길동 : 바보야 오후 3:04",
			want: "홍길동 : 바보야",
		},
		{
			name: "whitespace",
			in:   "  a \n\n b\t c  ",
			want: "a b c",
		},
		{
			name: "elongation",
			in:   "sooooo 웃기네ㅋㅋㅋㅋㅋ!!!!",
			want: "soo 웃기네ㅋㅋ!!",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Clean(tc.in))
		})
	}
}

func TestClean_RedactsPhoneNumbers(t *testing.T) {
	t.Parallel()

	for _, number := range []string{"010-1234-5678", "010 1234 5678", "01012345678", "011.123.4567"} {
		out := Clean("연락처 " + number + " 로 연락해")
		assert.Equal(t, "연락처 [PHONE] 로 연락해", out, number)
		assert.NotContains(t, out, strings.NewReplacer("-", "", " ", "", ".", "").Replace(number))
	}
}

func TestClean_CustomPhonePlaceholder(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(WithPhonePlaceholder("<전화번호>"))
	assert.Equal(t, "번호 <전화번호>", n.Clean("번호 010-9999-0000"))
}

func TestClean_RepetitionCollapse(t *testing.T) {
	t.Parallel()

	out := Clean("진짜" + strings.Repeat("가", 10) + "끝")
	assert.Equal(t, "진짜가가끝", out)
}

func TestClean_EmojiBecomesWord(t *testing.T) {
	t.Parallel()

	out := Clean("최고😀야")
	assert.False(t, gomoji.ContainsEmoji(out))
	assert.NotContains(t, out, ":")
	assert.True(t, strings.HasPrefix(out, "최고 "), out)
	assert.True(t, strings.HasSuffix(out, " 야"), out)
	assert.Contains(t, out, "grinning")
}

func TestClean_WithoutEmojiNames(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(WithoutEmojiNames())
	assert.Equal(t, "최고😀", n.Clean("최고😀"))
}

func TestClean_ComposesDecomposedHangul(t *testing.T) {
	t.Parallel()

	raw := norm.NFD.String("홍길동님이 입장하셨습니다.\n너 진짜 사기꾼이네")
	assert.NotEqual(t, "너 진짜 사기꾼이네", raw)
	assert.Equal(t, "너 진짜 사기꾼이네", Clean(raw))
}

func TestClean_Idempotent(t *testing.T) {
	t.Parallel()

	samples := []string{
		"",
		"홍길동님이 \n입장하셨습니다",
		"2024.01.1111 hello",
		"[오전 9:01] 김 : 010-1111-2222 로 연락줘 ㅋㅋㅋㅋㅋ 😂😂😂",
		"--- 2023-12-31 (일) ---\n[PM 11:59] 이 : 넌 진짜 쓰레기야!!!!!\n이님이 나갔습니다.",
		"a  aaa   b\n\n\nc",
		"sooooo  good 👍 👍",
	}
	for _, s := range samples {
		once := Clean(s)
		assert.Equal(t, once, Clean(once), "input %q", s)
	}
}

func TestCollapseRepeats(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "aab", CollapseRepeats("aaaab", 2))
	assert.Equal(t, "ab", CollapseRepeats("aaab", 1))
	assert.Equal(t, "ab", CollapseRepeats("aab", 0))
	assert.Equal(t, "", CollapseRepeats("", 2))
	assert.Equal(t, "ㅋㅋ하하", CollapseRepeats("ㅋㅋㅋ하하하하", 2))
}
