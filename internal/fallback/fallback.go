// Package fallback renders the last-resort HTML shown once the
// orchestrator's attempt budget is exhausted. It implements
// orchestrator.FallbackShower so the orchestrator can notify it
// without importing it.
package fallback

import (
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/spaguard/spaguard/internal/domhelpers"
	"github.com/spaguard/spaguard/internal/i18n"
	"github.com/spaguard/spaguard/internal/langmatch"
	"github.com/spaguard/spaguard/internal/options"
	"github.com/spaguard/spaguard/internal/orchestrator"
	apperrors "github.com/spaguard/spaguard/pkg/errors"
)

// defaultSpinnerHTML is used whenever HTMLOptions.SpinnerContent is
// empty and the spinner is not disabled.
const defaultSpinnerHTML = `<div class="spa-guard-spinner-dot"></div>`

// defaultTemplate is used whenever HTMLOptions.FallbackContent is
// empty. Markers use the value-matched data-spa-guard-content /
// data-spa-guard-action / data-spa-guard-section contract, not a
// presence-only per-field attribute.
const defaultTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body>
  <div class="spa-guard-fallback">
    <h1 data-spa-guard-content="heading"></h1>
    <p data-spa-guard-content="message"></p>
    <div data-spa-guard-content="loading" hidden></div>
    <div data-spa-guard-spinner></div>
    <div data-spa-guard-section="retrying" hidden>
      <p data-spa-guard-content="retrying"></p>
      <span class="spa-guard-retry-id" data-spa-guard-content="attempt"></span>
    </div>
    <button data-spa-guard-action="reload" hidden></button>
    <button data-spa-guard-action="try-again" hidden></button>
  </div>
</body>
</html>`

// Renderer patches the configured fallback template with
// language-resolved copy on demand.
type Renderer struct {
	mu sync.RWMutex

	html      options.HTMLOptions
	i18nTable i18n.Table

	engaged      bool
	lastSnapshot orchestrator.Snapshot
}

// New constructs a Renderer. customI18n may be nil.
func New(htmlOpts options.HTMLOptions, customI18n i18n.Table) *Renderer {
	return &Renderer{html: htmlOpts, i18nTable: customI18n}
}

// Show marks the fallback as engaged. The actual per-request,
// per-language document is produced by RenderForLanguage — Show only
// records that the orchestrator reached fallback, for diagnostics and
// for the attempt count RenderForLanguage displays in the retrying
// section.
func (r *Renderer) Show(snap orchestrator.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engaged = true
	r.lastSnapshot = snap
	return nil
}

// Engaged reports whether Show has been called since construction or
// the last Reset.
func (r *Renderer) Engaged() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.engaged
}

// Reset clears the engaged flag. Used when the orchestrator returns to
// idle (MarkHealthyBoot) on a subsequent successful page load.
func (r *Renderer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engaged = false
	r.lastSnapshot = orchestrator.Snapshot{}
}

// AcceptLanguages returns every language this renderer can serve:
// every built-in plus any custom table entries.
func (r *Renderer) AcceptLanguages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool, len(i18n.Languages))
	out := append([]string(nil), i18n.Languages...)
	for _, l := range i18n.Languages {
		seen[l] = true
	}
	for lang := range r.i18nTable {
		if !seen[lang] {
			out = append(out, lang)
			seen[lang] = true
		}
	}
	return out
}

// RenderForLanguage patches the fallback template for the resolved
// language and returns the serialized document. It follows the
// fallback rendering steps: (1) patch the i18n copy into the content
// markers, (2) inject the spinner, (3) when attempts were made before
// the budget was exhausted, show the retrying section with the attempt
// count.
func (r *Renderer) RenderForLanguage(acceptLanguageHeader string) (string, error) {
	r.mu.RLock()
	htmlOpts := r.html
	table := r.i18nTable
	snap := r.lastSnapshot
	r.mu.RUnlock()

	available := r.AcceptLanguages()
	lang := langmatch.Match(acceptLanguageHeader, available)
	if lang == "" {
		return "", apperrors.NewUnsupportedLanguageError("no fallback languages configured")
	}
	strs := i18n.Resolve(table, lang)

	template := htmlOpts.FallbackContent
	if template == "" {
		template = defaultTemplate
	}

	_, hasOverride := table[lang]
	patched, err := domhelpers.PatchHTMLI18n(template, lang, hasOverride)
	if err != nil {
		return "", err
	}

	doc, err := domhelpers.Parse(patched)
	if err != nil {
		return "", err
	}

	patchContent(doc, "heading", strs.Heading)
	patchContent(doc, "message", strs.Message)
	patchContent(doc, "loading", strs.Loading)
	patchContent(doc, "retrying", strs.Retrying)

	if htmlEl := domhelpers.FindTag(doc, "html"); htmlEl != nil && strs.RTL {
		domhelpers.SetAttr(htmlEl, "dir", "rtl")
	}

	patchAction(doc, "reload", strs.Reload)
	patchAction(doc, "try-again", strs.TryAgain)

	injectSpinner(doc, htmlOpts)

	retrying := snap.Attempt > 0
	if n := domhelpers.FindByAttrValue(doc, domhelpers.SectionAttr, "retrying"); n != nil {
		domhelpers.SetHidden(n, !retrying)
	}
	if retrying {
		if n := domhelpers.FindByAttrValue(doc, domhelpers.ContentAttr, "attempt"); n != nil {
			domhelpers.SetText(n, strconv.Itoa(snap.Attempt))
		}
	}

	return domhelpers.Render(doc)
}

func patchContent(doc *html.Node, marker, text string) {
	if n := domhelpers.FindByAttrValue(doc, domhelpers.ContentAttr, marker); n != nil {
		domhelpers.SetText(n, text)
	}
}

// patchAction sets the button text for a data-spa-guard-action element
// and unhides it — the template ships these hidden so a caller-supplied
// custom template without an action button never gets one conjured up,
// but the two built-in ones are always meant to be visible.
func patchAction(doc *html.Node, action, text string) {
	n := domhelpers.FindByAttrValue(doc, domhelpers.ActionAttr, action)
	if n == nil {
		return
	}
	domhelpers.SetText(n, text)
	domhelpers.SetHidden(n, false)
}

// injectSpinner fills the data-spa-guard-spinner marker with the
// configured spinner HTML, or hides it entirely when disabled.
func injectSpinner(doc *html.Node, htmlOpts options.HTMLOptions) {
	n := domhelpers.FindByMarker(doc, "spinner")
	if n == nil {
		return
	}
	if htmlOpts.SpinnerDisabled {
		domhelpers.SetHidden(n, true)
		return
	}

	spinnerHTML := htmlOpts.SpinnerContent
	if spinnerHTML == "" {
		spinnerHTML = defaultSpinnerHTML
	}
	frag, err := html.ParseFragment(strings.NewReader(spinnerHTML), n)
	if err != nil {
		return
	}
	for _, c := range frag {
		n.AppendChild(c)
	}

	if htmlOpts.SpinnerBackground != "" {
		domhelpers.SetAttr(n, "style", "background:"+htmlOpts.SpinnerBackground+";")
	}
}
