package htmlcache

import (
	"sort"
	"strconv"
	"strings"

	"github.com/spaguard/spaguard/internal/langmatch"
)

// Request is the subset of an inbound HTTP request this package needs
// to pick and negotiate a response.
type Request struct {
	AcceptEncoding string
	// AcceptLanguage is the raw Accept-Language header value, resolved
	// against the cache's built languages via langmatch.Match.
	AcceptLanguage string
	// Lang, when non-empty and present in the cache, is served directly
	// and takes priority over AcceptLanguage — for callers that already
	// resolved a language themselves (a query param, a cookie, …).
	Lang        string
	IfNoneMatch string
}

// Response is what the caller's HTTP handler should write back.
// Headers never includes Content-Length — callers derive it from
// len(Body) the way their framework expects.
type Response struct {
	Status  int
	Body    []byte
	Headers map[string]string
}

// Get resolves req against c and returns the response to serve: a 304
// when If-None-Match matches the resolved language's current ETag,
// otherwise that language's best-negotiated encoding body with a 200.
func (c *Cache) Get(req Request) Response {
	lang := c.resolveLang(req)
	lc := c.byLang[lang]

	headers := map[string]string{
		"ETag":             lc.etag,
		"Vary":             "Accept-Language, Accept-Encoding",
		"Content-Type":     "text/html; charset=utf-8",
		"Content-Language": lang,
	}

	if ifNoneMatchHits(req.IfNoneMatch, lc.etag) {
		return Response{Status: 304, Headers: map[string]string{"ETag": lc.etag}}
	}

	enc := negotiateEncoding(req.AcceptEncoding)
	entry := lc.variants[enc]
	if entry.ContentEncoding != EncodingIdentity {
		headers["Content-Encoding"] = entry.ContentEncoding
	}
	return Response{Status: 200, Body: entry.Body, Headers: headers}
}

// resolveLang picks which built language to serve: req.Lang when it is
// an exact hit, otherwise whatever langmatch.Match resolves from
// req.AcceptLanguage against c's built languages.
func (c *Cache) resolveLang(req Request) string {
	if req.Lang != "" {
		if _, ok := c.byLang[req.Lang]; ok {
			return req.Lang
		}
	}
	return langmatch.Match(req.AcceptLanguage, c.languages)
}

func ifNoneMatchHits(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" {
		return false
	}
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

type encCandidate struct {
	name string
	q    float64
}

// negotiateEncoding parses an Accept-Encoding header and returns the
// first encoding in encodingPriority that the header accepts with a
// q-value above zero ("*" accepts the first of them). Non-zero q-values
// are not compared against each other; an empty header yields identity.
func negotiateEncoding(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return EncodingIdentity
	}

	var candidates []encCandidate
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, q := splitQValue(part)
		if q <= 0 {
			continue
		}
		candidates = append(candidates, encCandidate{name: normalizeEncoding(name), q: q})
	}
	if len(candidates) == 0 {
		return EncodingIdentity
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].q > candidates[j].q })

	accepted := make(map[string]bool, len(candidates))
	wildcard := false
	for _, c := range candidates {
		if c.name == "*" {
			wildcard = true
			continue
		}
		accepted[c.name] = true
	}

	for _, preferred := range encodingPriority {
		if accepted[preferred] {
			return preferred
		}
	}
	if wildcard {
		return encodingPriority[0]
	}
	return EncodingIdentity
}

func normalizeEncoding(name string) string {
	switch strings.ToLower(name) {
	case "x-gzip":
		return EncodingGzip
	default:
		return strings.ToLower(name)
	}
}

func splitQValue(part string) (name string, q float64) {
	q = 1.0
	segments := strings.Split(part, ";")
	name = strings.TrimSpace(segments[0])
	for _, seg := range segments[1:] {
		seg = strings.TrimSpace(seg)
		if !strings.HasPrefix(seg, "q=") {
			continue
		}
		if v, err := strconv.ParseFloat(strings.TrimPrefix(seg, "q="), 64); err == nil {
			q = v
		}
	}
	return name, q
}
