package domhelpers

import (
	"strings"
	"testing"
)

const sampleDoc = `<!DOCTYPE html><html><body>
<div data-spa-guard-heading>placeholder</div>
<div data-spa-guard-message class="msg">placeholder</div>
<button data-spa-guard-reload hidden>Reload</button>
</body></html>`

func TestFindByMarker(t *testing.T) {
	doc, err := Parse(sampleDoc)
	if err != nil {
		t.Fatal(err)
	}
	n := FindByMarker(doc, "heading")
	if n == nil {
		t.Fatal("expected to find heading marker")
	}
	if n.Data != "div" {
		t.Errorf("got %q, want div", n.Data)
	}
}

func TestSetTextEscapesContent(t *testing.T) {
	doc, err := Parse(sampleDoc)
	if err != nil {
		t.Fatal(err)
	}
	n := FindByMarker(doc, "heading")
	SetText(n, "<script>alert(1)</script>")

	out, err := Render(doc)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "<script>alert(1)</script>") {
		t.Fatal("text content was not escaped")
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Errorf("expected escaped script tag in output, got %s", out)
	}
}

func TestAddClassAndRemoveClass(t *testing.T) {
	doc, err := Parse(sampleDoc)
	if err != nil {
		t.Fatal(err)
	}
	n := FindByMarker(doc, "message")
	AddClass(n, "visible")
	v, _ := AttrValue(n, "class")
	if v != "msg visible" {
		t.Errorf("got class %q", v)
	}
	AddClass(n, "visible") // idempotent
	v, _ = AttrValue(n, "class")
	if v != "msg visible" {
		t.Errorf("AddClass should be idempotent, got %q", v)
	}
	RemoveClass(n, "msg")
	v, _ = AttrValue(n, "class")
	if v != "visible" {
		t.Errorf("got class %q after remove", v)
	}
}

func TestPatchHTMLI18n_EnglishNoOverrideIsByteIdentical(t *testing.T) {
	const doc = `<!DOCTYPE html><html data-lang="keep-me" x-on:click.prevent="go()"><head><title>x</title></head><body>hi</body></html>`
	out, err := PatchHTMLI18n(doc, "en", false)
	if err != nil {
		t.Fatal(err)
	}
	if out != doc {
		t.Errorf("expected byte-identical passthrough, got %q", out)
	}
}

func TestPatchHTMLI18n_SetsLangAndInjectsMeta(t *testing.T) {
	const doc = `<!DOCTYPE html><html xml:lang="en" data-lang="other"><head><title>x</title></head><body>hi</body></html>`
	out, err := PatchHTMLI18n(doc, "ko", false)
	if err != nil {
		t.Fatal(err)
	}

	doc2, err := Parse(out)
	if err != nil {
		t.Fatal(err)
	}

	htmlEl := FindTag(doc2, "html")
	if v, ok := AttrValue(htmlEl, "lang"); !ok || v != "ko" {
		t.Errorf("got lang=%q, ok=%v, want ko", v, ok)
	}
	if v, _ := AttrValue(htmlEl, "xml:lang"); v != "en" {
		t.Errorf("xml:lang must be untouched, got %q", v)
	}
	if v, _ := AttrValue(htmlEl, "data-lang"); v != "other" {
		t.Errorf("data-lang must be untouched, got %q", v)
	}

	head := FindTag(doc2, "head")
	if head.FirstChild == nil || head.FirstChild.Data != "meta" {
		t.Fatalf("expected meta to be head's first child, got %v", head.FirstChild)
	}
	if v, _ := AttrValue(head.FirstChild, "name"); v != "spa-guard-i18n" {
		t.Errorf("got meta name %q", v)
	}
	if v, _ := AttrValue(head.FirstChild, "content"); v != "ko" {
		t.Errorf("got meta content %q", v)
	}
}

func TestPatchHTMLI18n_EnglishWithOverrideIsPatched(t *testing.T) {
	const doc = `<!DOCTYPE html><html><head><title>x</title></head><body>hi</body></html>`
	out, err := PatchHTMLI18n(doc, "en", true)
	if err != nil {
		t.Fatal(err)
	}
	if out == doc {
		t.Error("expected patched output when an override is present, got byte-identical passthrough")
	}
	if !strings.Contains(out, `lang="en"`) {
		t.Errorf("expected lang attribute set, got %s", out)
	}
}

func TestFindByAttrValue(t *testing.T) {
	doc, err := Parse(sampleDoc)
	if err != nil {
		t.Fatal(err)
	}
	n := FindByAttrValue(doc, "class", "msg")
	if n == nil || n.Data != "div" {
		t.Fatalf("expected to find div.msg, got %v", n)
	}
	if n2 := FindByAttrValue(doc, "class", "nope"); n2 != nil {
		t.Errorf("expected no match, got %v", n2)
	}
}

func TestSetHidden(t *testing.T) {
	doc, err := Parse(sampleDoc)
	if err != nil {
		t.Fatal(err)
	}
	n := FindByMarker(doc, "reload")
	SetHidden(n, false)
	if _, ok := AttrValue(n, "hidden"); ok {
		t.Error("expected hidden attribute removed")
	}
	SetHidden(n, true)
	if _, ok := AttrValue(n, "hidden"); !ok {
		t.Error("expected hidden attribute present")
	}
}
