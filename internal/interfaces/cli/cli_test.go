package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCorpus = `[
  {"id":"2021고단100","content":"단체 대화방에서 피해자를 사기꾼이라고 지칭하여 모욕","metadata":{"case_id":"2021고단100","title":"모욕","judgment":"벌금 100만원","fine":100,"year":2021}},
  {"id":"2020고정55","content":"게임 채팅에서 피해자의 외모를 비하하는 욕설","metadata":{"case_id":"2020고정55","title":"모욕","judgment":"무죄","year":2020}}
]`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// testEnv writes a memory-backend config and returns its path and directory.
func testEnv(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	corpus := writeFile(t, dir, "corpus.json", testCorpus)
	cfg := writeFile(t, dir, "lawlens.yaml", "server:\n  mode: test\nsearch:\n  backend: memory\n  corpus_path: "+corpus+"\n")
	return cfg, dir
}

func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append([]string{"--config", cfgPath, "--no-color"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestRootCommand_Structure(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "lawlens", root.Use)

	names := map[string]bool{}
	for _, sub := range root.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"clean", "lines", "align", "rank", "diagnose", "index", "migrate", "serve", "version"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
	for _, flag := range []string{"config", "log-level", "output", "verbose", "no-color", "timeout"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "missing flag %q", flag)
	}
}

func TestRootCommand_RejectsUnknownOutput(t *testing.T) {
	cfg, _ := testEnv(t)
	_, err := run(t, cfg, "-o", "yaml", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestCleanCmd(t *testing.T) {
	cfg, _ := testEnv(t)

	out, err := run(t, cfg, "clean", "-t", "2024년 3월 1일\n연락처 010-1234-5678 ㅋㅋㅋㅋㅋㅋ", "-o", "json")
	require.NoError(t, err)

	var res cleanResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Contains(t, res.Cleaned, "[PHONE]")
	assert.NotContains(t, res.Cleaned, "010-1234-5678")
	assert.NotContains(t, res.Cleaned, "2024년 3월 1일")
}

func TestCleanCmd_EmptyInput(t *testing.T) {
	cfg, _ := testEnv(t)
	_, err := run(t, cfg, "clean", "-t", "   ")
	require.Error(t, err)
}

func TestLinesCmd(t *testing.T) {
	cfg, dir := testEnv(t)
	frags := writeFile(t, dir, "frags.json", `[
		{"text":"world","x":60,"y":12},
		{"text":"second","x":5,"y":40},
		{"text":"hello","x":5,"y":10}
	]`)

	out, err := run(t, cfg, "lines", frags)
	require.NoError(t, err)
	assert.Equal(t, "hello world\nsecond\n", out)

	out, err = run(t, cfg, "lines", frags, "--y-threshold", "100")
	require.NoError(t, err)
	assert.Equal(t, "hello second world\n", out)
}

func TestAlignCmd(t *testing.T) {
	cfg, dir := testEnv(t)
	segments := writeFile(t, dir, "segments.json", `[
		{"start":0,"end":2,"text":"안녕하세요"},
		{"start":2,"end":5,"text":"왜 그러세요"}
	]`)
	turns := writeFile(t, dir, "turns.json", `[
		{"start":0,"end":2.1,"speaker_id":"SPEAKER_00"},
		{"start":2.1,"end":5,"speaker_id":"SPEAKER_01"}
	]`)

	out, err := run(t, cfg, "align", segments, "--turns", turns)
	require.NoError(t, err)
	assert.Contains(t, out, "[00:00] 화자 1: 안녕하세요")
	assert.Contains(t, out, "[00:02] 화자 2: 왜 그러세요")

	out, err = run(t, cfg, "align", segments)
	require.NoError(t, err)
	assert.Contains(t, out, "[00:00 - 00:02] 안녕하세요")
	assert.NotContains(t, out, "화자")
}

func TestRankCmd_FromFile(t *testing.T) {
	cfg, dir := testEnv(t)
	scored := writeFile(t, dir, "scored.json", `[
		{"case":{"id":"a","metadata":{"case_id":"2022고정1","title":"명예훼손","judgment":"무죄"}},"score":0.9},
		{"case":{"id":"b","metadata":{"case_id":"2021고단7","title":"모욕","judgment":"벌금 50만원","fine":50,"year":2021}},"score":0.8}
	]`)

	out, err := run(t, cfg, "rank", scored, "-o", "json")
	require.NoError(t, err)
	var res rankResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "conviction_found", res.Outcome.Status.String())
	assert.Equal(t, "b", res.Outcome.Main.Case.ID)
	require.Len(t, res.Rows, 2)
	assert.True(t, res.Rows[0].Main)

	out, err = run(t, cfg, "rank", scored, "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "2021고단7")
	assert.Contains(t, out, "50만원")
}

func TestRankCmd_Empty(t *testing.T) {
	cfg, dir := testEnv(t)
	scored := writeFile(t, dir, "scored.json", `[]`)

	out, err := run(t, cfg, "rank", scored)
	require.NoError(t, err)
	assert.Contains(t, out, "no_precedent")
}

func TestRankCmd_Query(t *testing.T) {
	cfg, _ := testEnv(t)

	out, err := run(t, cfg, "rank", "-q", "단체 대화방 사기꾼 모욕", "-o", "json")
	require.NoError(t, err)
	var res rankResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "2021고단100", res.Outcome.Main.Case.ID)
}

func TestDiagnoseCmd(t *testing.T) {
	cfg, _ := testEnv(t)

	out, err := run(t, cfg, "diagnose", "-t", "게임 채팅에서 외모를 비하하는 욕설을 들었어요", "-o", "json")
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.NotEmpty(t, report["id"])
	assert.Contains(t, report["cleaned_text"], "욕설")
}

func TestDiagnoseCmd_MissingEvidenceFile(t *testing.T) {
	cfg, dir := testEnv(t)
	_, err := run(t, cfg, "diagnose", "--image", filepath.Join(dir, "absent.png"))
	require.Error(t, err)
}

func TestIndexCmd_Memory(t *testing.T) {
	cfg, dir := testEnv(t)

	out, err := run(t, cfg, "index", filepath.Join(dir, "corpus.json"), "--batch-size", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "indexed 2 precedents")
}

func TestVersionCmd(t *testing.T) {
	cfg, _ := testEnv(t)

	out, err := run(t, cfg, "version", "-o", "json")
	require.NoError(t, err)
	var v versionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, Version, v.Version)
	assert.NotEmpty(t, v.GoVersion)
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderTable(&buf, []string{"Case", "Judgment"}, [][]string{{"2021고단7", "벌금"}}))
	assert.Contains(t, buf.String(), "2021고단7")
	assert.Contains(t, buf.String(), "벌금")

	buf.Reset()
	require.NoError(t, RenderTable(&buf, nil, nil))
	assert.Empty(t, buf.String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "모욕죄", truncate("모욕죄", 5))
	assert.Equal(t, "명예...", truncate("명예훼손죄 판결", 5))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
