package httpserver

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/spaguard/spaguard/internal/eventbus"
)

// metrics are hand-rolled Prometheus counters, grounded on the
// teacher's monitoring package precomputing its own text exposition
// rather than pulling in the full client_golang dependency tree for a
// handful of counters.
type metrics struct {
	retryAttempts  atomic.Int64
	retryExhausted atomic.Int64
	retryResets    atomic.Int64
	fallbackShown  atomic.Int64
	lazyRetries    atomic.Int64
	lazyExhausted  atomic.Int64
}

func newMetrics(bus *eventbus.Bus) *metrics {
	m := &metrics{}
	bus.Subscribe(func(ev eventbus.Event) {
		switch ev.(type) {
		case eventbus.RetryAttempt:
			m.retryAttempts.Add(1)
		case eventbus.RetryExhausted:
			m.retryExhausted.Add(1)
		case eventbus.RetryReset:
			m.retryResets.Add(1)
		case eventbus.FallbackUIShown:
			m.fallbackShown.Add(1)
		case eventbus.LazyRetryAttempt:
			m.lazyRetries.Add(1)
		case eventbus.LazyRetryExhausted:
			m.lazyExhausted.Add(1)
		}
	})
	return m
}

type counterSpec struct {
	name string
	help string
	get  func(*metrics) int64
}

var counterSpecs = []counterSpec{
	{"spaguard_retry_attempts_total", "Total reload retries scheduled.", func(m *metrics) int64 { return m.retryAttempts.Load() }},
	{"spaguard_retry_exhausted_total", "Total times the retry budget was exhausted.", func(m *metrics) int64 { return m.retryExhausted.Load() }},
	{"spaguard_retry_resets_total", "Total stale retry sessions discarded on boot.", func(m *metrics) int64 { return m.retryResets.Load() }},
	{"spaguard_fallback_shown_total", "Total times the fallback page was shown.", func(m *metrics) int64 { return m.fallbackShown.Load() }},
	{"spaguard_lazy_retries_total", "Total lazy-import retry attempts.", func(m *metrics) int64 { return m.lazyRetries.Load() }},
	{"spaguard_lazy_retries_exhausted_total", "Total lazy-import retry budgets exhausted.", func(m *metrics) int64 { return m.lazyExhausted.Load() }},
}

// render writes the Prometheus text exposition format for all
// registered counters.
func (m *metrics) render() string {
	var b strings.Builder
	for _, spec := range counterSpecs {
		fmt.Fprintf(&b, "# HELP %s %s\n", spec.name, spec.help)
		fmt.Fprintf(&b, "# TYPE %s counter\n", spec.name)
		fmt.Fprintf(&b, "%s %d\n", spec.name, spec.get(m))
	}
	return b.String()
}
