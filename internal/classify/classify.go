// Package classify recognizes chunk/preload/dynamic-import load
// failures by matching an error's message against a closed pattern
// set, the way the teacher gateway's model-failover layer matches
// provider errors against a retryable-pattern list.
package classify

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/spaguard/spaguard/internal/options"
)

// ForceRetryError is the sentinel application code throws to
// deliberately request a retry, bypassing classifier heuristics.
type ForceRetryError struct {
	Message string
}

// ForceRetrySentinelPrefix marks a ForceRetryError's message.
const ForceRetrySentinelPrefix = "__SPA_GUARD_FORCE_RETRY__"

func (e *ForceRetryError) Error() string {
	return ForceRetrySentinelPrefix + ": " + e.Message
}

// NewForceRetryError builds a sentinel error that always triggers a
// retry regardless of the installed classifier patterns.
func NewForceRetryError(message string) *ForceRetryError {
	return &ForceRetryError{Message: message}
}

var chunkErrorPatterns = compilePatterns([]string{
	`failed to fetch dynamically imported module`,
	`importing a module script failed`,
	`error loading dynamically imported module`,
	`unable to preload css`,
	`loading chunk \d+ failed`,
	`loading css chunk \d+ failed`,
	`chunkloaderror`,
})

func compilePatterns(raw []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(raw))
	for _, p := range raw {
		out = append(out, regexp.MustCompile("(?i)"+p))
	}
	return out
}

// Message extracts a comparable message string from an arbitrary
// value: it walks a wrapped-error chain, falls back to error.Error(),
// and finally coerces non-error values via fmt.Sprint.
func Message(v any) string {
	if v == nil {
		return ""
	}
	if err, ok := v.(error); ok {
		return deepestMessage(err)
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// deepestMessage follows errors.Unwrap as far as it goes, returning
// the innermost message — mirroring the browser runtime walking
// value.reason chains to find the ultimate failure message.
func deepestMessage(err error) string {
	for {
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			return err.Error()
		}
		err = unwrapped
	}
}

// IsChunkError reports whether v looks like a code-split asset load
// failure. It returns false for empty messages, non-object/non-string
// non-error inputs with no useful message, and generic network errors
// such as "TypeError: Failed to fetch".
func IsChunkError(v any) bool {
	msg := Message(v)
	if msg == "" {
		return false
	}
	lower := strings.ToLower(msg)
	if lower == "typeerror: failed to fetch" || lower == "failed to fetch" {
		return false
	}
	for _, re := range chunkErrorPatterns {
		if re.MatchString(msg) {
			return true
		}
	}
	return false
}

// ShouldForceRetry reports whether any of msgs should force a retry:
// either it matches a configured errors.forceRetry pattern, or it
// carries the ForceRetryError sentinel prefix.
func ShouldForceRetry(msgs []string, patterns []options.Pattern) bool {
	for _, msg := range msgs {
		if strings.Contains(msg, ForceRetrySentinelPrefix) {
			return true
		}
		if matchesAny(msg, patterns) {
			return true
		}
	}
	return false
}

// ShouldIgnore reports whether msg matches a configured errors.ignore
// pattern — when true, the message must not generate telemetry, only
// invoke the application's own error callback.
func ShouldIgnore(msg string, patterns []options.Pattern) bool {
	return matchesAny(msg, patterns)
}

func matchesAny(msg string, patterns []options.Pattern) bool {
	for _, p := range patterns {
		if p.Substring != "" {
			if strings.Contains(msg, p.Substring) {
				return true
			}
			continue
		}
		if p.Regexp == "" {
			continue
		}
		re, err := regexp.Compile(p.Regexp)
		if err != nil {
			continue
		}
		if re.MatchString(msg) {
			return true
		}
	}
	return false
}
