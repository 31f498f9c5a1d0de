package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve_FallsBackToEnglishForUnknownLanguage(t *testing.T) {
	got := Resolve(nil, "zz")
	require.Equal(t, Builtin["en"], got)
}

func TestLanguages_IncludesAllBuiltinTags(t *testing.T) {
	for _, lang := range []string{"en", "es", "fr", "de", "ja", "ar", "he", "ko", "zh", "ru", "fa"} {
		require.Contains(t, Languages, lang, "Languages must list builtin tag %q", lang)
		_, ok := Builtin[lang]
		require.True(t, ok, "Builtin must define %q", lang)
	}
}

func TestResolve_MergesSparseOverrideOntoBuiltin(t *testing.T) {
	custom := Table{
		"en": {Heading: "Custom heading"},
	}
	got := Resolve(custom, "en")
	require.Equal(t, "Custom heading", got.Heading)
	require.Equal(t, Builtin["en"].Message, got.Message)
}

func TestParseTable_ParsesSparseYAMLOverrides(t *testing.T) {
	raw := []byte(`
en:
  heading: Custom heading
  try_again: Retry now
fr:
  heading: En-tête personnalisé
  rtl: false
`)
	table, err := ParseTable(raw)
	require.NoError(t, err)
	require.Equal(t, "Custom heading", table["en"].Heading)
	require.Equal(t, "Retry now", table["en"].TryAgain)
	require.Equal(t, "En-tête personnalisé", table["fr"].Heading)

	merged := Resolve(table, "en")
	require.Equal(t, "Custom heading", merged.Heading)
	require.Equal(t, Builtin["en"].Message, merged.Message)
}

func TestLoadTableFile_ReadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte("en:\n  heading: From disk\n"), 0o644))

	table, err := LoadTableFile(path)
	require.NoError(t, err)
	require.Equal(t, "From disk", table["en"].Heading)
}

func TestLoadTableFile_MissingFileReturnsError(t *testing.T) {
	_, err := LoadTableFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
