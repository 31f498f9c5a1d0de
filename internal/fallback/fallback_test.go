package fallback

import (
	"strings"
	"testing"

	"github.com/spaguard/spaguard/internal/i18n"
	"github.com/spaguard/spaguard/internal/options"
	"github.com/spaguard/spaguard/internal/orchestrator"
)

func TestRenderForLanguage_DefaultTemplateEnglish(t *testing.T) {
	r := New(options.HTMLOptions{}, nil)

	out, err := r.RenderForLanguage("en")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Something went wrong") {
		t.Errorf("expected English heading in output, got: %s", out)
	}
	if strings.Contains(out, `data-spa-guard-action="reload" hidden=""`) {
		t.Error("reload button should be unhidden")
	}
}

func TestRenderForLanguage_RTLSetsDir(t *testing.T) {
	r := New(options.HTMLOptions{}, nil)

	out, err := r.RenderForLanguage("ar")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `dir="rtl"`) {
		t.Errorf("expected rtl dir attribute, got: %s", out)
	}
}

func TestRenderForLanguage_CustomOverrideMerges(t *testing.T) {
	custom := i18n.Table{
		"en": {Heading: "Custom heading only"},
	}
	r := New(options.HTMLOptions{}, custom)

	out, err := r.RenderForLanguage("en")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Custom heading only") {
		t.Error("expected custom heading override")
	}
	if !strings.Contains(out, "Reload") {
		t.Error("expected built-in Reload text to survive a partial override")
	}
}

func TestRenderForLanguage_InjectsSpinnerByDefault(t *testing.T) {
	r := New(options.HTMLOptions{}, nil)
	out, err := r.RenderForLanguage("en")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "spa-guard-spinner-dot") {
		t.Errorf("expected default spinner markup in output, got: %s", out)
	}
}

func TestRenderForLanguage_CustomSpinnerContent(t *testing.T) {
	r := New(options.HTMLOptions{SpinnerContent: `<svg class="my-spinner"></svg>`}, nil)
	out, err := r.RenderForLanguage("en")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `class="my-spinner"`) {
		t.Errorf("expected custom spinner markup in output, got: %s", out)
	}
}

func TestRenderForLanguage_SpinnerDisabledHidesMarker(t *testing.T) {
	r := New(options.HTMLOptions{SpinnerDisabled: true}, nil)
	out, err := r.RenderForLanguage("en")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "spa-guard-spinner-dot") {
		t.Error("spinner content should not be injected when disabled")
	}
	if !strings.Contains(out, `data-spa-guard-spinner="" hidden=""`) {
		t.Errorf("expected spinner marker to carry the hidden attribute, got: %s", out)
	}
}

func TestRenderForLanguage_NoPriorAttemptsHidesRetryingSection(t *testing.T) {
	r := New(options.HTMLOptions{}, nil)
	out, err := r.RenderForLanguage("en")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `data-spa-guard-section="retrying" hidden=""`) {
		t.Errorf("expected retrying section hidden with no prior attempts, got: %s", out)
	}
}

func TestRenderForLanguage_ShowsRetryingSectionWithAttemptCount(t *testing.T) {
	r := New(options.HTMLOptions{}, nil)
	if err := r.Show(orchestrator.Snapshot{Phase: orchestrator.PhaseFallback, Attempt: 3}); err != nil {
		t.Fatal(err)
	}

	out, err := r.RenderForLanguage("en")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, `data-spa-guard-section="retrying" hidden=""`) {
		t.Errorf("expected retrying section visible after prior attempts, got: %s", out)
	}
	if !strings.Contains(out, ">3<") {
		t.Errorf("expected attempt count 3 in output, got: %s", out)
	}
}

func TestShowAndReset(t *testing.T) {
	r := New(options.HTMLOptions{}, nil)
	if r.Engaged() {
		t.Fatal("should not be engaged before Show")
	}
	if err := r.Show(orchestrator.Snapshot{Phase: orchestrator.PhaseFallback}); err != nil {
		t.Fatal(err)
	}
	if !r.Engaged() {
		t.Fatal("should be engaged after Show")
	}
	r.Reset()
	if r.Engaged() {
		t.Fatal("should not be engaged after Reset")
	}
}
