package langmatch

import "testing"

func TestMatch(t *testing.T) {
	available := []string{"en", "es", "fr", "de"}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"exact single tag", "es", "es"},
		{"prefix match regional tag", "en-GB", "en"},
		{"header form picks highest q", "fr-CA,fr;q=0.8,en;q=0.9", "fr"},
		{"header form unmatched top tag falls back to en", "pt-BR,fr-CA;q=0.7", "en"},
		{"unknown falls back to en", "zh-CN", "en"},
		{"empty input falls back to en", "", "en"},
		{"wildcard ignored", "*;q=1.0,de;q=0.5", "de"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Match(tt.input, available)
			if got != tt.want {
				t.Errorf("Match(%q, %v) = %q, want %q", tt.input, available, got, tt.want)
			}
		})
	}
}

func TestMatch_NoEnglishAvailableFallsBackToFirst(t *testing.T) {
	available := []string{"ja", "de"}
	got := Match("zh-CN", available)
	if got != "ja" {
		t.Errorf("got %q, want first available %q", got, "ja")
	}
}

func TestMatch_NoAvailableLanguages(t *testing.T) {
	if got := Match("en", nil); got != "" {
		t.Errorf("expected empty string for no available languages, got %q", got)
	}
}

// TestMatch_OnlyTheTopQTagIsResolved pins down the rule a two-pass
// global scan gets wrong: resolution runs once, against whichever tag
// has the (unique) highest q — never falling through to a
// lower-q tag's own exact or prefix match.
func TestMatch_OnlyTheTopQTagIsResolved(t *testing.T) {
	available := []string{"en", "de"}
	got := Match("fr;q=0.9,de;q=0.8", available)
	if got != "en" {
		t.Errorf("got %q, want %q (resolveSingle(\"fr\") falls back to en, ignoring that de also matched)", got, "en")
	}
}
