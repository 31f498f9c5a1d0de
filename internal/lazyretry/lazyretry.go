// Package lazyretry wraps a single dynamic-import-style load with
// delayed retries, modeled on the teacher's
// infrastructure/llm.ModelFailover.ExecuteWithFailover: a small ordered
// list of attempts and a terminal action once the list is exhausted.
// Every load error is retried; errors are not classified first.
package lazyretry

import (
	"context"
	"time"

	"github.com/spaguard/spaguard/internal/eventbus"
	"github.com/spaguard/spaguard/internal/orchestrator"
)

// Loader performs the guarded operation — typically a dynamic import of
// a versioned chunk. T is whatever the import resolves to (a module
// handle, a decoded component, …).
type Loader[T any] func(ctx context.Context) (T, error)

// Options configures a single Retry call. CallReloadOnFailure, when
// true, triggers orch on final exhaustion; the final error is still
// returned to the caller.
type Options struct {
	Delays              []time.Duration
	CallReloadOnFailure bool
}

// Retry runs load, and on failure retries it after each delay in
// opts.Delays in turn. Only the inter-attempt wait is cancellable via
// ctx — an in-flight load is never abandoned mid-call, matching
// ModelFailover's "don't cancel a request that's already in flight"
// rule. If every attempt fails and CallReloadOnFailure is set, orch is
// triggered with a forced request before the final error is returned.
func Retry[T any](ctx context.Context, bus *eventbus.Bus, orch *orchestrator.Orchestrator, load Loader[T], opts Options) (T, error) {
	var zero T
	var lastErr error

	// totalAttempts is the reported retry-count field (length of the
	// delay schedule), distinct from maxCalls, the number of times load
	// itself actually runs (one initial call plus one per delay).
	totalAttempts := len(opts.Delays)
	maxCalls := totalAttempts + 1
	for attempt := 0; attempt < maxCalls; attempt++ {
		if attempt > 0 {
			delay := opts.Delays[attempt-1]
			if bus != nil {
				bus.Publish(eventbus.LazyRetryAttempt{
					Attempt:       attempt,
					Delay:         delay,
					TotalAttempts: totalAttempts,
				})
			}
			if err := sleep(ctx, delay); err != nil {
				return zero, err
			}
		}

		v, err := load(ctx)
		if err == nil {
			if attempt > 0 && bus != nil {
				bus.Publish(eventbus.LazyRetrySuccess{Attempt: attempt})
			}
			return v, nil
		}
		lastErr = err
	}

	willReload := opts.CallReloadOnFailure && orch != nil
	if bus != nil {
		bus.Publish(eventbus.LazyRetryExhausted{TotalAttempts: totalAttempts, WillReload: willReload})
	}
	if willReload {
		orch.Trigger(orchestrator.TriggerRequest{Source: "lazy-import", Forced: true})
	}
	return zero, lastErr
}

// sleep waits for d, or returns ctx.Err() if ctx is cancelled first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
