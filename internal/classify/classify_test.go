package classify

import (
	"errors"
	"fmt"
	"testing"

	"github.com/spaguard/spaguard/internal/options"
)

func TestIsChunkError(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected bool
	}{
		{"chunk load error", errors.New("ChunkLoadError: Loading chunk 4 failed"), true},
		{"failed to fetch dynamic import", errors.New("Failed to fetch dynamically imported module"), true},
		{"importing module script failed", errors.New("Importing a module script failed"), true},
		{"css chunk failed", errors.New("Loading CSS chunk 12 failed"), true},
		{"unable to preload css", errors.New("Unable to preload CSS"), true},
		{"generic network error", errors.New("TypeError: Failed to fetch"), false},
		{"empty message", errors.New(""), false},
		{"unrelated error", errors.New("permission denied"), false},
		{"nil", nil, false},
		{"non error string", "ChunkLoadError", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsChunkError(tt.value); got != tt.expected {
				t.Errorf("IsChunkError(%v) = %v, want %v", tt.value, got, tt.expected)
			}
		})
	}
}

func TestIsChunkErrorUnwrapsChain(t *testing.T) {
	inner := errors.New("loading chunk 7 failed")
	wrapped := fmt.Errorf("navigation failed: %w", inner)
	if !IsChunkError(wrapped) {
		t.Fatalf("expected wrapped chunk error to classify as chunk error")
	}
}

func TestShouldForceRetry(t *testing.T) {
	patterns := []options.Pattern{{Substring: "maintenance-mode"}}

	if !ShouldForceRetry([]string{NewForceRetryError("please retry").Error()}, patterns) {
		t.Fatal("expected sentinel error to force retry")
	}
	if !ShouldForceRetry([]string{"server entered maintenance-mode"}, patterns) {
		t.Fatal("expected configured pattern to force retry")
	}
	if ShouldForceRetry([]string{"unrelated failure"}, patterns) {
		t.Fatal("expected unrelated message not to force retry")
	}
}

func TestShouldIgnore(t *testing.T) {
	patterns := []options.Pattern{{Regexp: `^ResizeObserver loop`}}
	if !ShouldIgnore("ResizeObserver loop limit exceeded", patterns) {
		t.Fatal("expected regexp pattern to match")
	}
	if ShouldIgnore("unrelated", patterns) {
		t.Fatal("expected no match")
	}
}
