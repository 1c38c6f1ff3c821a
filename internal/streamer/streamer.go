// Package streamer implements the Progress Streamer: a lazy, pull-based
// sequence of Job snapshots at a fixed cadence, ending once the Job reaches
// a terminal state.
package streamer

import (
	"context"
	"time"

	"github.com/cedarline/schema-propagation/internal/metrics"
	"github.com/cedarline/schema-propagation/internal/registry"
)

// DefaultInterval is the snapshot cadence.
const DefaultInterval = 500 * time.Millisecond

// Streamer emits periodic snapshots for a single job until it terminates.
type Streamer struct {
	registry *registry.Registry
	interval time.Duration
	metrics  *metrics.PropagationMetrics
}

// New creates a Streamer polling at the default cadence. m may be nil, in
// which case the streamer does not publish the RatePerSecond gauge.
func New(reg *registry.Registry, m *metrics.PropagationMetrics) *Streamer {
	return &Streamer{registry: reg, interval: DefaultInterval, metrics: m}
}

// WithInterval overrides the polling cadence (tests use a shorter interval).
func (s *Streamer) WithInterval(interval time.Duration) *Streamer {
	s.interval = interval
	return s
}

// Stream returns a channel of snapshots for jobID, one every interval, plus
// one final snapshot when the job reaches a terminal state, after which the
// channel is closed. Multiple callers streaming the same job each get an
// independent, consistent sequence: this is a pull loop, not a subscription.
func (s *Streamer) Stream(ctx context.Context, jobID string) (<-chan registry.Snapshot, bool) {
	job, ok := s.registry.Get(jobID)
	if !ok {
		return nil, false
	}

	out := make(chan registry.Snapshot)

	go func() {
		defer close(out)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			snap := job.Snapshot()

			if s.metrics != nil {
				s.metrics.RatePerSecond.Set(snap.Rate)
			}

			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}

			if snap.Status.IsTerminal() {
				return
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, true
}
