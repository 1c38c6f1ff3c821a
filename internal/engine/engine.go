// Package engine implements the Propagation Engine: bounded-concurrency
// fan-out of the DB Executor over a database list, with circuit breaking and
// cooperative cancellation.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/cedarline/schema-propagation/internal/executor"
	"github.com/cedarline/schema-propagation/internal/metrics"
	"github.com/cedarline/schema-propagation/internal/registry"
)

// Applier is the unit of work the engine fans out: apply one artifact to one database.
type Applier interface {
	Apply(ctx context.Context, database, versionID, checksum, sql string, dryRun bool, cancelSignal func() bool) executor.Outcome
}

// Engine fans work out over a bounded semaphore and aggregates outcomes into a Job.
type Engine struct {
	applier               Applier
	registry              *registry.Registry
	errorThresholdPercent float64
	metrics               *metrics.PropagationMetrics
	logger                *slog.Logger
}

// New creates an Engine. errorThresholdPercent is the circuit breaker's
// failure-rate trigger (e.g. 10.0 for 10%).
func New(applier Applier, reg *registry.Registry, errorThresholdPercent float64, m *metrics.PropagationMetrics, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{applier: applier, registry: reg, errorThresholdPercent: errorThresholdPercent, metrics: m, logger: logger}
}

// Propagate creates a Job, fans the artifact out over databases with bounded
// concurrency maxConcurrent, and returns the Job once all units have
// produced an outcome (or immediately, for an empty database list).
func (e *Engine) Propagate(ctx context.Context, versionID, checksum, sql string, databases []string, maxConcurrent int, dryRun bool) (*registry.Job, error) {
	if maxConcurrent <= 0 {
		return nil, fmt.Errorf("max_concurrent must be greater than 0, got %d", maxConcurrent)
	}

	job := e.registry.Create(versionID, len(databases))

	if len(databases) == 0 {
		job.FinishEmpty()
		return job, nil
	}

	job.Start()

	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	for _, database := range databases {
		wg.Add(1)
		go func(db string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			outcome := e.applier.Apply(ctx, db, versionID, checksum, sql, dryRun, job.StopRequested)
			e.record(job, outcome)
			e.tripBreakerIfNeeded(job)
		}(database)
	}

	wg.Wait()
	job.Finish()

	return job, nil
}

func (e *Engine) record(job *registry.Job, outcome executor.Outcome) {
	switch outcome.Status {
	case executor.StatusSuccess:
		job.RecordSuccess()
	case executor.StatusSkipped:
		job.RecordSkipped()
	default:
		job.RecordFailed(outcome.Database, outcome.Error)
	}

	if e.metrics != nil {
		e.metrics.OutcomesTotal.WithLabelValues(strings.ToLower(string(outcome.Status)), "ddl").Inc()
		e.metrics.DurationSeconds.WithLabelValues("ddl").Observe(float64(outcome.DurationMs) / 1000.0)
	}
}

// tripBreakerIfNeeded implements the global circuit breaker: once more than
// 10 units have completed and the failure rate exceeds the configured
// threshold, request a stop. Pending units observing the flag return
// SKIPPED without opening a connection; in-flight units run to completion.
func (e *Engine) tripBreakerIfNeeded(job *registry.Job) {
	snap := job.Snapshot()
	if snap.StopRequested || snap.Total == 0 {
		return
	}

	if snap.Completed > 10 {
		failureRate := (float64(snap.Failed) / float64(snap.Total)) * 100
		if failureRate > e.errorThresholdPercent {
			job.RequestStop()
			e.logger.Warn("circuit breaker tripped", "job_id", job.JobID, "failed", snap.Failed, "total", snap.Total, "failure_rate", failureRate)
			if e.metrics != nil {
				e.metrics.BreakerTripsTotal.Inc()
			}
		}
	}
}
