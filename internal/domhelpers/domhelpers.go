// Package domhelpers provides the small set of golang.org/x/net/html
// utilities shared by package fallback and package htmlcache: finding
// elements by a marker attribute and replacing their text content
// without ever concatenating untrusted strings into raw HTML.
package domhelpers

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// MarkerAttrPrefix is the attribute prefix used to tag presence-only
// patchable elements ("data-spa-guard-spinner", "data-spa-guard-version",
// …) shared by the fallback template and the cached index document.
const MarkerAttrPrefix = "data-spa-guard-"

// Value-matched marker attributes used by the fallback template
// contract. Unlike MarkerAttrPrefix-based markers (presence-only),
// these are looked up with FindByAttrValue/FindAllByAttrValue: the same
// attribute key can appear on several elements, each carrying a
// different value.
const (
	ContentAttr = "data-spa-guard-content"
	ActionAttr  = "data-spa-guard-action"
	SectionAttr = "data-spa-guard-section"
)

// Parse parses a full HTML document.
func Parse(doc string) (*html.Node, error) {
	return html.Parse(strings.NewReader(doc))
}

// Render serializes node back to an HTML string.
func Render(node *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, node); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FindByMarker walks the tree rooted at node depth-first and returns
// the first element carrying the attribute MarkerAttrPrefix+marker.
func FindByMarker(node *html.Node, marker string) *html.Node {
	attr := MarkerAttrPrefix + marker
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && hasAttr(n, attr) {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
			if found != nil {
				return
			}
		}
	}
	walk(node)
	return found
}

// FindAllByMarker returns every element carrying the given marker
// attribute, in document order.
func FindAllByMarker(node *html.Node, marker string) []*html.Node {
	attr := MarkerAttrPrefix + marker
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasAttr(n, attr) {
			found = append(found, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return found
}

// FindByAttrValue walks the tree rooted at node depth-first and returns
// the first element whose attribute key equals value exactly (unlike
// FindByMarker, which only checks presence of a MarkerAttrPrefix-ed
// attribute regardless of its value).
func FindByAttrValue(node *html.Node, key, value string) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode {
			if v, ok := AttrValue(n, key); ok && v == value {
				found = n
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
			if found != nil {
				return
			}
		}
	}
	walk(node)
	return found
}

// FindAllByAttrValue returns every element whose attribute key equals
// value exactly, in document order.
func FindAllByAttrValue(node *html.Node, key, value string) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if v, ok := AttrValue(n, key); ok && v == value {
				found = append(found, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return found
}

// FindTag walks the tree rooted at node depth-first and returns the
// first element whose tag name matches tag case-insensitively.
func FindTag(node *html.Node, tag string) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
			if found != nil {
				return
			}
		}
	}
	walk(node)
	return found
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// AttrValue returns the value of attribute key on n, and whether it
// was present.
func AttrValue(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets (or replaces) attribute key on n.
func SetAttr(n *html.Node, key, value string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

// SetText replaces every child of n with a single text node holding
// text. html.Render escapes text-node content automatically, so
// callers never need to (and must never) pre-escape text before
// calling this.
func SetText(n *html.Node, text string) {
	n.FirstChild = nil
	n.LastChild = nil
	n.AppendChild(&html.Node{
		Type: html.TextNode,
		Data: text,
	})
}

// AddClass appends class to n's class attribute if not already
// present.
func AddClass(n *html.Node, class string) {
	existing, _ := AttrValue(n, "class")
	for _, c := range strings.Fields(existing) {
		if c == class {
			return
		}
	}
	if existing == "" {
		SetAttr(n, "class", class)
		return
	}
	SetAttr(n, "class", existing+" "+class)
}

// RemoveClass removes class from n's class attribute, if present.
func RemoveClass(n *html.Node, class string) {
	existing, ok := AttrValue(n, "class")
	if !ok {
		return
	}
	fields := strings.Fields(existing)
	kept := fields[:0]
	for _, c := range fields {
		if c != class {
			kept = append(kept, c)
		}
	}
	SetAttr(n, "class", strings.Join(kept, " "))
}

// SetHidden toggles the boolean "hidden" attribute on n.
func SetHidden(n *html.Node, hidden bool) {
	if !hidden {
		removeAttr(n, "hidden")
		return
	}
	if _, ok := AttrValue(n, "hidden"); ok {
		return
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "hidden"})
}

func removeAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// i18nMetaName is the <meta name="..."> marker PatchHTMLI18n injects so
// that a client script can tell which language a served document was
// patched for without re-reading <html lang>.
const i18nMetaName = "spa-guard-i18n"

// PatchHTMLI18n sets the root <html> element's lang attribute to lang
// and injects a <meta name="spa-guard-i18n" content="lang"> as the
// first child of <head>. It touches only the exact "lang" attribute
// key, so data-lang, xml:lang and x-on:click.prevent on the same or
// other elements are left untouched.
//
// When lang is "en" and hasOverride is false, docHTML is returned
// unchanged, byte-for-byte: parsing and re-serializing an HTML document
// can reorder or re-quote attributes, so the no-op case is special
// cased rather than routed through html.Parse/html.Render.
func PatchHTMLI18n(docHTML string, lang string, hasOverride bool) (string, error) {
	if lang == "en" && !hasOverride {
		return docHTML, nil
	}

	doc, err := Parse(docHTML)
	if err != nil {
		return "", err
	}

	if htmlEl := FindTag(doc, "html"); htmlEl != nil {
		SetAttr(htmlEl, "lang", lang)
	}

	if head := FindTag(doc, "head"); head != nil {
		meta := &html.Node{
			Type: html.ElementNode,
			Data: "meta",
			Attr: []html.Attribute{
				{Key: "name", Val: i18nMetaName},
				{Key: "content", Val: lang},
			},
		}
		head.InsertBefore(meta, head.FirstChild)
	}

	return Render(doc)
}
