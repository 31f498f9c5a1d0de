// Package langmatch resolves a requested language (an Accept-Language
// header, or a single tag) against the set of languages the host
// actually has fallback copy for.
package langmatch

import (
	"strconv"
	"strings"
)

// Match resolves input against available and returns one of
// available's entries. input may be a full Accept-Language header
// ("fr-CA,fr;q=0.8,en;q=0.5") or a single tag ("fr-CA"); header form is
// detected by the presence of "," or ";q=". For header input, entries
// are parsed into {tag, q} pairs (q defaults to 1.0, an invalid q also
// defaults to 1.0) and stable-sorted descending by q; single-tag
// resolution then runs once, on the tag with the (unique) highest q.
// Single-tag resolution order: case-insensitive exact match, then
// language-subtag prefix match (e.g. "en-GB" against available "en"),
// then "en" if present, then available's first entry.
func Match(input string, available []string) string {
	if len(available) == 0 {
		return ""
	}
	return resolveSingle(topTag(input), available)
}

func resolveSingle(tag string, available []string) string {
	if m, ok := matchExact(tag, available); ok {
		return m
	}
	if m, ok := matchPrefix(tag, available); ok {
		return m
	}
	for _, a := range available {
		if strings.EqualFold(a, "en") {
			return a
		}
	}
	return available[0]
}

func matchExact(tag string, available []string) (string, bool) {
	for _, a := range available {
		if strings.EqualFold(a, tag) {
			return a, true
		}
	}
	return "", false
}

func matchPrefix(tag string, available []string) (string, bool) {
	base := primarySubtag(tag)
	for _, a := range available {
		if strings.EqualFold(primarySubtag(a), base) {
			return a, true
		}
	}
	return "", false
}

func primarySubtag(tag string) string {
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		return tag[:i]
	}
	return tag
}

// topTag returns the tag with the highest q-value out of input, or
// input itself (trimmed) if it is a bare single tag. Ties keep the
// first-seen tag (stable).
func topTag(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	if !strings.Contains(input, ",") && !strings.Contains(input, ";q=") {
		return input
	}

	var best string
	bestQ := -1.0
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tag, q := splitQValue(part)
		if tag == "" || tag == "*" {
			continue
		}
		if q > bestQ {
			bestQ = q
			best = tag
		}
	}
	return best
}

func splitQValue(part string) (tag string, q float64) {
	q = 1.0
	segments := strings.Split(part, ";")
	tag = strings.TrimSpace(segments[0])
	for _, seg := range segments[1:] {
		seg = strings.TrimSpace(seg)
		if !strings.HasPrefix(seg, "q=") {
			continue
		}
		if v, err := strconv.ParseFloat(strings.TrimPrefix(seg, "q="), 64); err == nil {
			q = v
		}
	}
	return tag, q
}
