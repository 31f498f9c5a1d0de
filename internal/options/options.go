// Package options holds the process-wide SPA-guard configuration
// surface. It is written once at boot and read by every other package;
// no component mutates it afterward.
package options

import (
	"sync"
	"time"
)

// Pattern is a substring or regular-expression match rule applied to
// classified error messages.
type Pattern struct {
	// Substring, when non-empty, is matched with strings.Contains.
	Substring string
	// Regexp, when non-empty, is compiled at match time and matched with
	// MatchString; an invalid expression never matches. Substring takes
	// precedence when both are set.
	Regexp string
}

// LazyRetryOptions configures the lazy-import retry wrapper (package
// lazyretry).
type LazyRetryOptions struct {
	RetryDelays         []time.Duration
	CallReloadOnFailure bool
}

// HTMLOptions configures the fallback renderer's templates and spinner.
type HTMLOptions struct {
	FallbackContent   string
	LoadingContent    string
	SpinnerContent    string
	SpinnerBackground string
	SpinnerDisabled   bool
}

// ErrorOptions configures classifier overrides.
type ErrorOptions struct {
	Ignore     []Pattern
	ForceRetry []Pattern
}

// Options is the full process-wide configuration record.
type Options struct {
	Version              string
	ReloadDelays         []time.Duration
	MinTimeBetweenResets time.Duration
	LazyRetry            LazyRetryOptions
	UseRetryID           bool
	HTML                 HTMLOptions
	Errors               ErrorOptions
	AutoRetryChunkErrors bool
}

// Default returns the documented defaults from the specification.
func Default() Options {
	return Options{
		ReloadDelays:         []time.Duration{0, 1000 * time.Millisecond, 3000 * time.Millisecond},
		MinTimeBetweenResets: 5000 * time.Millisecond,
		LazyRetry: LazyRetryOptions{
			RetryDelays:         []time.Duration{1000 * time.Millisecond, 2000 * time.Millisecond},
			CallReloadOnFailure: true,
		},
		UseRetryID:           true,
		AutoRetryChunkErrors: true,
	}
}

var (
	mu       sync.RWMutex
	current  Options
	initDone bool
)

// Init sets the process-wide options. Safe to call once at boot;
// production code must not call it twice. Tests use ResetForTests
// followed by Init to install a fresh configuration.
func Init(opts Options) {
	mu.Lock()
	defer mu.Unlock()
	current = opts
	initDone = true
}

// Get returns a copy of the current options. If Init has never been
// called, it returns the documented defaults so library consumers that
// skip explicit bootstrapping still get sane behavior.
func Get() Options {
	mu.RLock()
	defer mu.RUnlock()
	if !initDone {
		return Default()
	}
	return current
}

// ResetForTests wipes the singleton back to its never-initialized
// state. Production code must never call this.
func ResetForTests() {
	mu.Lock()
	defer mu.Unlock()
	current = Options{}
	initDone = false
}
