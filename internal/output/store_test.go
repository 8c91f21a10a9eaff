package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLayoutPaths(t *testing.T) {
	p, err := MergedPath("Abc-123")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("Abc-123", "merged_input_Abc-123.txt"), p)

	p, err = ReportPath("Abc-123", "gemini_api", "smart")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("Abc-123", "gemini_api", "smart_report_Abc-123.txt"), p)

	p, err = ReadabilityPath("Abc-123")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("Abc-123", "readibility_report.txt"), p)
}

func TestLayoutRejectsTraversal(t *testing.T) {
	for _, id := range []string{"", "..", "a/b", `a\b`, "."} {
		_, err := MergedPath(id)
		require.Error(t, err, "id %q", id)
	}
	_, err := ReportPath("ok", "../x", "smart")
	require.Error(t, err)
}

func TestStoreWriteOverwritesAndReads(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "output"))
	require.NoError(t, err)

	rel, err := ReportPath("a1", "openai_api", "smart")
	require.NoError(t, err)

	abs, err := s.WriteFile(rel, "first")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "output", rel), abs)

	_, err = s.WriteFile(rel, "second")
	require.NoError(t, err)

	got, err := s.ReadFile(rel)
	require.NoError(t, err)
	require.Equal(t, "second", got)

	ok, err := s.Exists(rel)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Exists(filepath.Join("a1", "missing.txt"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStorePreventsTraversal(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.WriteFile("../escape.txt", "x")
	require.ErrorIs(t, err, ErrEscapesOutput)
	_, err = s.WriteFile("a/../../escape.txt", "x")
	require.ErrorIs(t, err, ErrEscapesOutput)
	_, err = s.ReadFile("/etc/passwd")
	require.ErrorIs(t, err, ErrEscapesOutput)

	_, err = s.WriteFile("..data/ok.txt", "x")
	require.NoError(t, err)
}

func TestNewStoreDefaultsToWorkingDir(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	s, err := NewStore("")
	require.NoError(t, err)
	require.Equal(t, wd, s.Dir())
}
