package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RishiKendai/textguard/internal/plagiarism"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.txt":     "Hello world",
		"B.TXT":     "Hello there",
		"notes.md":  "# ignored",
		"image.png": "ignored",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.txt"), 0o755))

	texts, err := loadDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a.txt": "Hello world", "B.TXT": "Hello there"}, texts)
}

func TestLoadDirectoryNeedsTwoFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"only.txt": "text"})

	_, err := loadDirectory(dir)
	assert.ErrorIs(t, err, plagiarism.ErrInsufficientDocuments)

	_, err = loadDirectory(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestFormatReport(t *testing.T) {
	color.NoColor = true

	report, err := plagiarism.NewComparator(plagiarism.DefaultOptions(), nil).Compare(
		t.Context(),
		map[string]string{"a.txt": "Hello world\nFoo bar", "b.txt": "Hello world\nBaz qux", "c.txt": "  "},
		plagiarism.MethodLineBased,
	)
	require.NoError(t, err)

	out := formatReport(report, plagiarism.DefaultOptions().Thresholds)

	assert.Contains(t, out, "PLAGIARISM DETECTION RESULTS")
	assert.Regexp(t, `a\.txt\s+b\.txt\s+50\.00%\s+1\s+MEDIUM`, out)
	assert.Contains(t, out, "Method used: line_based")
	assert.Contains(t, out, "Suspicious pairs (>=50%): 1")
	assert.Contains(t, out, "EXCLUDED")
	assert.Contains(t, out, "c.txt")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short.txt", truncate("short.txt", 24))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

func TestWriteReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	report := &plagiarism.Report{
		Method:      plagiarism.MethodCharBased,
		Comparisons: []plagiarism.ScoreResult{},
	}

	path, err := writeReport(report, dir, at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report_20240309_140507_char_based.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "char_based", decoded["method"])
	assert.Contains(t, decoded, "summary")
}

func TestRunEndToEnd(t *testing.T) {
	color.NoColor = true
	dir := t.TempDir()
	out := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"student1.txt": "The quick brown fox jumps over the lazy dog.",
		"student2.txt": "The quick brown fox jumps over the lazy dog.",
	})

	require.NoError(t, run(dir, "unknown", out, "", 2, false))

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Regexp(t, `^report_\d{8}_\d{6}_word_based\.json$`, entries[0].Name())
}
