package jsonl

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestReadFile_Empty(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.jsonl", "")

	res, err := ReadFile(path)
	require.NoError(t, err)
	require.Empty(t, res.Messages)
	require.Equal(t, 0, res.Metadata.MessageCount)
	require.Empty(t, res.Metadata.FirstUserMessage)
}

func TestReadFile_Missing(t *testing.T) {
	res, err := ReadFile("/nonexistent/path/session.jsonl")
	require.NoError(t, err)
	require.Empty(t, res.Messages)
}

func TestReadFile_CountsOnlyUserAndAssistant(t *testing.T) {
	dir := t.TempDir()
	content := `{"uuid":"1","type":"user","timestamp":"2025-01-01T00:00:00Z","content":"hi"}
{"uuid":"2","type":"assistant","timestamp":"2025-01-01T00:01:00Z","content":"hello","usage":{"input_tokens":10,"output_tokens":20}}
{"uuid":"3","type":"file-history-snapshot","timestamp":"2025-01-01T00:02:00Z","content":""}
{"uuid":"4","type":"summary","timestamp":"2025-01-01T00:03:00Z","content":"a summary"}
`
	path := writeFile(t, dir, "s.jsonl", content)

	res, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, res.Messages, 4)
	require.Equal(t, 2, res.Metadata.MessageCount)
	require.Equal(t, 1, res.Metadata.UserMessageCount)
	require.Equal(t, 1, res.Metadata.AssistantMessageCount)
	require.Equal(t, res.Metadata.MessageCount, res.Metadata.UserMessageCount+res.Metadata.AssistantMessageCount)
	require.Equal(t, 10, res.Metadata.TotalInputTokens)
	require.Equal(t, 20, res.Metadata.TotalOutputTokens)
}

func TestReadFile_OnlySummaryHasZeroMessageCount(t *testing.T) {
	dir := t.TempDir()
	content := `{"uuid":"1","type":"summary","timestamp":"2025-01-01T00:00:00Z","content":"a summary"}
`
	path := writeFile(t, dir, "s.jsonl", content)

	res, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 0, res.Metadata.MessageCount)
	require.Equal(t, 0, res.Metadata.UserMessageCount)
	require.Equal(t, 0, res.Metadata.AssistantMessageCount)
}

func TestReadFile_SkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	content := `{"uuid":"1","type":"user","timestamp":"2025-01-01T00:00:00Z","content":"one"}
not valid json at all
{"uuid":"2","type":"assistant","timestamp":"2025-01-01T00:01:00Z","content":"two"}
`
	path := writeFile(t, dir, "s.jsonl", content)

	res, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, res.Messages, 2)
	require.Equal(t, 1, res.Warnings)
}

func TestReadFile_FirstUserMessageTruncatedByRune(t *testing.T) {
	dir := t.TempDir()
	long := ""
	for i := 0; i < 250; i++ {
		long += "a"
	}
	content := `{"uuid":"1","type":"user","timestamp":"2025-01-01T00:00:00Z","content":"` + long + `"}
`
	path := writeFile(t, dir, "s.jsonl", content)

	res, err := ReadFile(path)
	require.NoError(t, err)
	runes := []rune(res.Metadata.FirstUserMessage)
	require.Len(t, runes, 201) // 200 + the "…" marker
	require.True(t, runes[200] == '…')
}

func TestReadFile_ContentArrayExtractsTextBlocksOnly(t *testing.T) {
	dir := t.TempDir()
	content := `{"uuid":"1","type":"assistant","timestamp":"2025-01-01T00:00:00Z","content":[{"type":"text","text":"part one"},{"type":"tool_use","text":"ignored"},{"type":"text","text":"part two"}]}
`
	path := writeFile(t, dir, "s.jsonl", content)

	res, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	require.Equal(t, "part one\npart two", res.Messages[0].TextBody)
}

func TestReadFile_CreatedAndLastAccessedSpanCountedMessages(t *testing.T) {
	dir := t.TempDir()
	content := `{"uuid":"1","type":"user","timestamp":"2025-01-01T00:00:00Z","content":"a"}
{"uuid":"2","type":"assistant","timestamp":"2025-01-02T00:00:00Z","content":"b"}
`
	path := writeFile(t, dir, "s.jsonl", content)

	res, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), res.Metadata.CreatedAt)
	require.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), res.Metadata.LastAccessedAt)
}

func TestReadFile_ModelPrefersAssistantRecord(t *testing.T) {
	dir := t.TempDir()
	content := `{"uuid":"1","type":"user","timestamp":"2025-01-01T00:00:00Z","content":"a","model":"user-hint-model"}
{"uuid":"2","type":"assistant","timestamp":"2025-01-01T00:01:00Z","content":"b","model":"claude-real-model"}
`
	path := writeFile(t, dir, "s.jsonl", content)

	res, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "claude-real-model", res.Metadata.Model)
}

func TestReadFileIncremental_AppendBetweenReads(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "s.jsonl", `{"uuid":"1","type":"user","timestamp":"2025-01-01T00:00:00Z","content":"a"}
`)

	first, err := ReadFileIncremental(path, 0)
	require.NoError(t, err)
	require.Len(t, first.Messages, 1)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
	require.NoError(t, err)
	_, err = f.WriteString(`{"uuid":"2","type":"assistant","timestamp":"2025-01-01T00:01:00Z","content":"b"}
`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	second, err := ReadFileIncremental(path, first.Offset)
	require.NoError(t, err)
	require.Len(t, second.Messages, 1)
	require.Equal(t, "assistant", string(second.Messages[0].Type))
}

func TestReadFileIncremental_TrailingPartialLineNotConsumed(t *testing.T) {
	dir := t.TempDir()
	// No trailing newline: the producer is still mid-write on this line.
	path := writeFile(t, dir, "s.jsonl", `{"uuid":"1","type":"user","timestamp":"2025-01-01T00:00:00Z","content":"a"}
{"uuid":"2","type":"user","timestamp":"2025-01-01T00:01:00Z","content":"partial`)

	res, err := ReadFileIncremental(path, 0)
	require.ErrorIs(t, err, ErrTruncated)
	require.Len(t, res.Messages, 1)
}
