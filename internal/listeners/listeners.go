// Package listeners is the single funnel every error-reporting call
// site in the host application goes through before it reaches the
// orchestrator. It owns classification and the asset-404 coalescing
// window; it never mutates orchestrator state directly beyond calling
// Trigger, matching the retry-ownership rule the teacher's
// ModelFailover observes around its cooldown map.
package listeners

import (
	"sync"
	"time"

	"github.com/spaguard/spaguard/internal/classify"
	"github.com/spaguard/spaguard/internal/eventbus"
	"github.com/spaguard/spaguard/internal/options"
	"github.com/spaguard/spaguard/internal/orchestrator"
)

const defaultAssetErrorQuietWindow = 2 * time.Second

// Listeners is the installed error-reporting funnel. Construct with
// Install.
type Listeners struct {
	mu   sync.Mutex
	bus  *eventbus.Bus
	orch *orchestrator.Orchestrator
	opts options.Options

	quietWindow     time.Duration
	lastAssetReport time.Time
}

// Install wires a Listeners instance to bus and orch and returns a
// shutdown function. Nothing in this package registers process-wide
// hooks (there is no window.onerror equivalent in a Go process), so
// shutdown exists for API symmetry with the browser original and for
// callers that want a single defer to stop reporting.
func Install(bus *eventbus.Bus, orch *orchestrator.Orchestrator, opts options.Options) (*Listeners, func()) {
	l := &Listeners{
		bus:         bus,
		orch:        orch,
		opts:        opts,
		quietWindow: defaultAssetErrorQuietWindow,
	}
	shutdown := func() {}
	return l, shutdown
}

// ReportError is the generic entry point: any error observed anywhere
// in the host application (a panic recovered by HTTP middleware, a
// failed lazy import outside the lazyretry wrapper, …) should be
// routed here rather than handled ad hoc.
func (l *Listeners) ReportError(err any, source string) {
	msg := classify.Message(err)
	if msg == "" {
		return
	}

	l.mu.Lock()
	opts := l.opts
	l.mu.Unlock()

	if classify.ShouldIgnore(msg, opts.Errors.Ignore) {
		return
	}

	forced := classify.ShouldForceRetry([]string{msg}, opts.Errors.ForceRetry)
	_, isAsset := err.(assetErr)
	isChunk := forced || isAsset || classify.IsChunkError(err)

	if !isChunk || (!opts.AutoRetryChunkErrors && !forced) {
		l.bus.Publish(eventbus.ChunkError{Err: asError(err), IsRetrying: false})
		return
	}

	result := l.orch.Trigger(orchestrator.TriggerRequest{Source: source, Forced: forced})
	if result.Status != orchestrator.StatusAccepted {
		l.bus.Publish(eventbus.ChunkError{Err: asError(err), IsRetrying: false})
	}
}

// ReportAssetError reports a failed static-asset load (a 404 on a
// hashed chunk file, typically). Repeated reports within the quiet
// window collapse into the first one, since a single stale deploy
// usually breaks many assets at once and each would otherwise trigger
// its own retry.
func (l *Listeners) ReportAssetError(assetURL string) {
	l.mu.Lock()
	now := time.Now()
	since := now.Sub(l.lastAssetReport)
	if l.lastAssetReport.IsZero() || since >= l.quietWindow {
		l.lastAssetReport = now
		l.mu.Unlock()
		l.ReportError(assetErr(assetURL), "asset-error")
		return
	}
	l.mu.Unlock()
}

type assetErr string

func (a assetErr) Error() string { return "asset load failed: " + string(a) }

func asError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return assetErr(classify.Message(v))
}
