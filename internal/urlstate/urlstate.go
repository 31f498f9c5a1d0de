// Package urlstate encodes and decodes the three reserved query
// parameters the orchestrator persists across page reloads.
package urlstate

import (
	"net/url"
	"strconv"
	"time"
)

// Reserved, stable query-parameter names. Bit-exact across deploys —
// never rename these.
const (
	RetryAttemptParam = "spa_guard_retry_attempt"
	RetryIDParam      = "spa_guard_retry_id"
	CacheBustParam    = "spa_guard_cb"
)

// State is the result of decoding a URL's retry parameters.
type State struct {
	HasAttempt bool
	Attempt    int
	RetryID    string
}

// Decode reads the reserved parameters from u. A missing, malformed, or
// negative attempt value yields State{HasAttempt: false} rather than an
// error — callers always get "no attempt recorded" instead of having
// to handle a decode failure.
func Decode(u *url.URL) State {
	if u == nil {
		return State{}
	}
	q := u.Query()
	raw := q.Get(RetryAttemptParam)
	if raw == "" {
		return State{}
	}
	attempt, err := strconv.Atoi(raw)
	if err != nil || attempt < 0 {
		return State{}
	}
	return State{
		HasAttempt: true,
		Attempt:    attempt,
		RetryID:    q.Get(RetryIDParam),
	}
}

// Encode returns a copy of u with the reserved parameters overwritten
// to the given attempt/retryID, and CacheBustParam set to the given
// timestamp when cacheBust is true (otherwise left untouched). All
// other query parameters and the fragment are preserved.
func Encode(u *url.URL, attempt int, retryID string, cacheBust bool, now time.Time) *url.URL {
	out := *u
	q := out.Query()
	q.Set(RetryAttemptParam, strconv.Itoa(attempt))
	q.Set(RetryIDParam, retryID)
	if cacheBust {
		q.Set(CacheBustParam, strconv.FormatInt(now.UnixMilli(), 10))
	}
	out.RawQuery = q.Encode()
	return &out
}
