package listeners

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spaguard/spaguard/internal/eventbus"
	"github.com/spaguard/spaguard/internal/options"
	"github.com/spaguard/spaguard/internal/orchestrator"
)

func newTestRig(t *testing.T, opts options.Options) (*Listeners, *orchestrator.Orchestrator, *eventbus.Bus) {
	t.Helper()
	bus := eventbus.New()
	current := func() *url.URL {
		u, err := url.Parse("https://app.example.com/")
		require.NoError(t, err)
		return u
	}
	orch := orchestrator.New(opts, bus, nil, current, nil, time.Now())
	l, _ := Install(bus, orch, opts)
	return l, orch, bus
}

func TestReportError_ChunkErrorTriggersRetry(t *testing.T) {
	opts := options.Default()
	l, orch, _ := newTestRig(t, opts)

	l.ReportError(errors.New("ChunkLoadError: Loading chunk 4 failed"), "script-error")

	require.Equal(t, orchestrator.PhaseScheduled, orch.Snapshot().Phase)
}

func TestReportError_NonChunkErrorPublishesWithoutTriggering(t *testing.T) {
	opts := options.Default()
	l, orch, bus := newTestRig(t, opts)

	var events []eventbus.ChunkError
	bus.Subscribe(func(ev eventbus.Event) {
		if ce, ok := ev.(eventbus.ChunkError); ok {
			events = append(events, ce)
		}
	})

	l.ReportError(errors.New("some unrelated failure"), "script-error")

	require.Equal(t, orchestrator.PhaseIdle, orch.Snapshot().Phase)
	require.Len(t, events, 1)
}

func TestReportError_IgnoredPatternIsDropped(t *testing.T) {
	opts := options.Default()
	opts.Errors.Ignore = []options.Pattern{{Substring: "benign"}}
	l, orch, bus := newTestRig(t, opts)

	var count int
	bus.Subscribe(func(ev eventbus.Event) { count++ })

	l.ReportError(errors.New("benign noise"), "script-error")

	require.Equal(t, 0, count)
	require.Equal(t, orchestrator.PhaseIdle, orch.Snapshot().Phase)
}

func TestReportError_AutoRetryDisabledStillPublishesChunkError(t *testing.T) {
	opts := options.Default()
	opts.AutoRetryChunkErrors = false
	l, orch, bus := newTestRig(t, opts)

	var events []eventbus.ChunkError
	bus.Subscribe(func(ev eventbus.Event) {
		if ce, ok := ev.(eventbus.ChunkError); ok {
			events = append(events, ce)
		}
	})

	l.ReportError(errors.New("ChunkLoadError"), "script-error")

	require.Equal(t, orchestrator.PhaseIdle, orch.Snapshot().Phase)
	require.Len(t, events, 1)
	require.False(t, events[0].IsRetrying)
}

func TestReportAssetError_CoalescesWithinQuietWindow(t *testing.T) {
	opts := options.Default()
	l, orch, _ := newTestRig(t, opts)
	l.quietWindow = time.Hour

	l.ReportAssetError("/static/app.abc123.js")
	l.ReportAssetError("/static/vendor.def456.js")

	snap := orch.Snapshot()
	require.Equal(t, 1, snap.Attempt)
}
