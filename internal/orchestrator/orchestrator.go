// Package orchestrator implements the single-owner retry state machine:
// idle → scheduled → fallback. It is modeled directly on the teacher
// gateway's domain/service.StateMachine (an explicit transition table
// guarded by a mutex, snapshot-returning transitions, listeners
// notified after the lock is released) and on
// infrastructure/llm.CircuitBreaker's time-based recovery edge, which
// is the same "single mutable phase plus a recovery timeout" shape
// this package needs for scheduled → (fallback | next attempt).
package orchestrator

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spaguard/spaguard/internal/diagnostics"
	"github.com/spaguard/spaguard/internal/eventbus"
	"github.com/spaguard/spaguard/internal/options"
	"github.com/spaguard/spaguard/internal/urlstate"
	apperrors "github.com/spaguard/spaguard/pkg/errors"
)

// Phase is one of the three states the orchestrator can be in.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseScheduled Phase = "scheduled"
	PhaseFallback  Phase = "fallback"
)

// Snapshot is a read-only copy of the orchestrator's state.
type Snapshot struct {
	Phase           Phase
	Attempt         int
	RetryID         string
	LastSource      string
	LastTriggerTime time.Time
}

// TriggerRequest describes one call into the orchestrator.
type TriggerRequest struct {
	Source string
	Err    error
	// CacheBust, when true, appends a cache-busting timestamp to the
	// reload URL.
	CacheBust bool
	// Forced bypasses the AutoRetryChunkErrors gate — set by callers
	// that already classified the error as a force-retry sentinel or
	// configured forceRetry pattern.
	Forced bool
}

// TriggerStatus is the closed set of outcomes Trigger can report.
type TriggerStatus string

const (
	StatusAccepted      TriggerStatus = "accepted"
	StatusDeduped       TriggerStatus = "deduped"
	StatusFallback      TriggerStatus = "fallback"
	StatusRetryDisabled TriggerStatus = "retry-disabled"
)

// TriggerResult is the tagged-sum result of a Trigger call.
type TriggerResult struct {
	Status TriggerStatus
	Reason string
}

// Navigator replaces the browsing context's location with target. In a
// real deployment this is wired to whatever "reload the page" means
// for the host (an HTTP redirect response, a process restart signal,
// …); it has no meaningful default beyond NopNavigator because an
// in-process Go runtime has no browsing context of its own to replace.
type Navigator interface {
	Navigate(target *url.URL)
}

// NopNavigator discards navigation requests. Useful when the
// orchestrator is embedded in a context where reload is handled
// entirely by the caller observing RetryAttempt events.
type NopNavigator struct{}

func (NopNavigator) Navigate(*url.URL) {}

// FallbackShower renders the fallback template. Kept as a minimal
// interface here (rather than importing package fallback) to avoid an
// import cycle — package fallback implements this.
type FallbackShower interface {
	Show(Snapshot) error
}

// Scheduler abstracts the single delayed callback the orchestrator
// arms per scheduled phase, so tests can inject a synchronous fake
// instead of sleeping.
type Scheduler interface {
	After(d time.Duration, fn func()) (cancel func())
}

type timeScheduler struct{}

func (timeScheduler) After(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// CurrentURL returns the page's current URL. In a browser this is
// `window.location`; here it is supplied by the host (an HTTP handler
// reads the inbound request URL, for instance).
type CurrentURL func() *url.URL

// Orchestrator is the single-owner retry state machine described in
// §4.E of the specification.
type Orchestrator struct {
	mu sync.Mutex

	opts       options.Options
	bus        *eventbus.Bus
	nav        Navigator
	scheduler  Scheduler
	currentURL CurrentURL
	fallback   FallbackShower
	bootTime   time.Time

	phase           Phase
	attempt         int
	retryID         string
	lastSource      string
	lastTriggerTime time.Time

	bootReconciled bool
	cancelTimer    func()
}

// New constructs an orchestrator. bootTime should be the moment this
// process/page load began — it anchors the "time since reload"
// staleness check in §4.E's first-trigger boot behavior.
func New(opts options.Options, bus *eventbus.Bus, nav Navigator, currentURL CurrentURL, fallback FallbackShower, bootTime time.Time) *Orchestrator {
	if nav == nil {
		nav = NopNavigator{}
	}
	return &Orchestrator{
		opts:       opts,
		bus:        bus,
		nav:        nav,
		scheduler:  timeScheduler{},
		currentURL: currentURL,
		fallback:   fallback,
		bootTime:   bootTime,
		phase:      PhaseIdle,
	}
}

// WithScheduler overrides the default time.AfterFunc-based scheduler.
// Exposed for tests.
func (o *Orchestrator) WithScheduler(s Scheduler) *Orchestrator {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scheduler = s
	return o
}

// Snapshot returns a read-only copy of the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	return Snapshot{
		Phase:           o.phase,
		Attempt:         o.attempt,
		RetryID:         o.retryID,
		LastSource:      o.lastSource,
		LastTriggerTime: o.lastTriggerTime,
	}
}

// MarkHealthyBoot clears retry state: cancels any pending timer, wipes
// the URL-derived attempt/retryID, returns to idle, and resets the
// fallback renderer when it has a Reset method. Idempotent.
func (o *Orchestrator) MarkHealthyBoot() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancelTimerLocked()
	o.phase = PhaseIdle
	o.attempt = 0
	o.retryID = ""
	o.bootReconciled = true // a healthy boot is itself a reconciliation
	if r, ok := o.fallback.(interface{ Reset() }); ok {
		r.Reset()
	}
}

// ResetForTests performs a full wipe, including whatever boot
// reconciliation already happened. Production code must never call
// this.
func (o *Orchestrator) ResetForTests() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancelTimerLocked()
	o.phase = PhaseIdle
	o.attempt = 0
	o.retryID = ""
	o.lastSource = ""
	o.lastTriggerTime = time.Time{}
	o.bootReconciled = false
}

func (o *Orchestrator) cancelTimerLocked() {
	if o.cancelTimer != nil {
		o.cancelTimer()
		o.cancelTimer = nil
	}
}

// Trigger evaluates req against the current phase and either schedules
// a reload, dedupes, or transitions to fallback. It never panics or
// returns an error to the caller — internal failures degrade to a
// deduped result and a diagnostics report, per the specification's
// error-handling design.
func (o *Orchestrator) Trigger(req TriggerRequest) (result TriggerResult) {
	defer func() {
		if r := recover(); r != nil {
			err := &apperrors.AppError{
				Code:    apperrors.CodeOrchestratorInternal,
				Message: "panic recovered during Trigger",
				Err:     fmt.Errorf("%v", r),
			}
			diagnostics.Report("orchestrator", err)
			result = TriggerResult{Status: StatusDeduped, Reason: "internal-error"}
		}
	}()

	o.mu.Lock()

	o.lastSource = req.Source
	o.lastTriggerTime = time.Now()

	if !o.bootReconciled {
		o.reconcileBootLocked()
	}

	switch o.phase {
	case PhaseFallback:
		o.mu.Unlock()
		return TriggerResult{Status: StatusFallback}

	case PhaseScheduled:
		// Dedupe only while the reload timer is still pending; once it
		// has fired, the next trigger continues the attempt sequence.
		if o.cancelTimer != nil {
			o.mu.Unlock()
			return TriggerResult{Status: StatusDeduped, Reason: "already-scheduled"}
		}
	}

	if !req.Forced && !o.opts.AutoRetryChunkErrors {
		o.mu.Unlock()
		return TriggerResult{Status: StatusRetryDisabled}
	}

	budget := len(o.opts.ReloadDelays)
	if o.attempt >= budget {
		finalAttempt := o.attempt
		retryID := o.retryID
		o.phase = PhaseFallback
		o.mu.Unlock()

		o.bus.Publish(eventbus.RetryExhausted{FinalAttempt: finalAttempt, RetryID: retryID})
		o.showFallback()
		return TriggerResult{Status: StatusFallback}
	}

	delay := o.opts.ReloadDelays[o.attempt]
	if o.retryID == "" {
		o.retryID = uuid.NewString()
	}
	nextAttempt := o.attempt + 1
	retryID := o.retryID
	cacheBust := req.CacheBust

	o.phase = PhaseScheduled
	o.attempt = nextAttempt
	o.cancelTimer = o.scheduler.After(delay, func() {
		o.fireTimer(nextAttempt, retryID, cacheBust)
	})
	o.mu.Unlock()

	o.bus.Publish(eventbus.RetryAttempt{Attempt: nextAttempt, Delay: delay, RetryID: retryID})
	return TriggerResult{Status: StatusAccepted}
}

// reconcileBootLocked must be called with o.mu held. It implements the
// first-trigger boot behavior of §4.E: stale URL-encoded sessions are
// discarded (emitting retry-reset) and fresh ones are continued.
func (o *Orchestrator) reconcileBootLocked() {
	o.bootReconciled = true
	if o.currentURL == nil {
		return
	}
	u := o.currentURL()
	if u == nil {
		return
	}
	state := urlstate.Decode(u)
	if !state.HasAttempt {
		return
	}

	timeSinceReload := time.Since(o.bootTime)
	if timeSinceReload > o.opts.MinTimeBetweenResets {
		prevAttempt, prevRetryID := state.Attempt, state.RetryID
		o.attempt = 0
		o.retryID = ""
		o.mu.Unlock()
		o.bus.Publish(eventbus.RetryReset{
			PreviousAttempt: prevAttempt,
			PreviousRetryID: prevRetryID,
			TimeSinceReload: timeSinceReload,
		})
		o.mu.Lock()
		return
	}

	o.attempt = state.Attempt
	o.retryID = state.RetryID
}

func (o *Orchestrator) fireTimer(attempt int, retryID string, cacheBust bool) {
	o.mu.Lock()
	o.cancelTimer = nil
	var target *url.URL
	if o.currentURL != nil {
		target = o.currentURL()
	}
	o.mu.Unlock()

	if target == nil {
		return
	}
	o.nav.Navigate(urlstate.Encode(target, attempt, retryID, cacheBust, time.Now()))
}

func (o *Orchestrator) showFallback() {
	snap := o.Snapshot()
	if o.fallback != nil {
		if err := o.fallback.Show(snap); err != nil {
			diagnostics.Report("orchestrator", err)
		}
	}
	o.bus.Publish(eventbus.FallbackUIShown{})
}
