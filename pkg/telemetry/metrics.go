// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics tracks run counts, latencies, and degradation for the
// orchestration pipeline.
type PipelineMetrics struct {
	runCounter       metric.Int64Counter
	runErrorCounter  metric.Int64Counter
	runLatencyMs     metric.Float64Histogram
	parseFallbacks   metric.Int64Counter
	degradedRuns     metric.Int64Counter
	toolDispatches   metric.Int64Counter
	stageLatencyMs   metric.Float64Histogram
}

// NewPipelineMetrics registers the pipeline instruments on the global meter.
func NewPipelineMetrics() (*PipelineMetrics, error) {
	meter := otel.Meter("dirigent/pipeline")

	runCounter, err := meter.Int64Counter(
		"dirigent.pipeline.runs",
		metric.WithDescription("Total pipeline runs started"),
	)
	if err != nil {
		return nil, err
	}
	runErrorCounter, err := meter.Int64Counter(
		"dirigent.pipeline.run_errors",
		metric.WithDescription("Pipeline runs that returned success=false"),
	)
	if err != nil {
		return nil, err
	}
	runLatencyMs, err := meter.Float64Histogram(
		"dirigent.pipeline.run_latency_ms",
		metric.WithDescription("End-to-end run latency in milliseconds"),
	)
	if err != nil {
		return nil, err
	}
	parseFallbacks, err := meter.Int64Counter(
		"dirigent.pipeline.parse_fallbacks",
		metric.WithDescription("Analyze-stage completions that fell back to the deterministic analysis"),
	)
	if err != nil {
		return nil, err
	}
	degradedRuns, err := meter.Int64Counter(
		"dirigent.pipeline.degraded_runs",
		metric.WithDescription("Runs served by the keyword-routing fallback"),
	)
	if err != nil {
		return nil, err
	}
	toolDispatches, err := meter.Int64Counter(
		"dirigent.pipeline.tool_dispatches",
		metric.WithDescription("Tool invocations attempted during Execute"),
	)
	if err != nil {
		return nil, err
	}
	stageLatencyMs, err := meter.Float64Histogram(
		"dirigent.pipeline.stage_latency_ms",
		metric.WithDescription("Per-stage latency in milliseconds"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		runCounter:      runCounter,
		runErrorCounter: runErrorCounter,
		runLatencyMs:    runLatencyMs,
		parseFallbacks:  parseFallbacks,
		degradedRuns:    degradedRuns,
		toolDispatches:  toolDispatches,
		stageLatencyMs:  stageLatencyMs,
	}, nil
}

// RecordRunStart increments the run counter.
func (m *PipelineMetrics) RecordRunStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.runCounter.Add(ctx, 1)
}

// RecordRunEnd records the run latency and failure count.
func (m *PipelineMetrics) RecordRunEnd(ctx context.Context, durationMs float64, success bool) {
	if m == nil {
		return
	}
	m.runLatencyMs.Record(ctx, durationMs)
	if !success {
		m.runErrorCounter.Add(ctx, 1)
	}
}

// RecordParseFallback counts an Analyze-stage parse fallback.
func (m *PipelineMetrics) RecordParseFallback(ctx context.Context) {
	if m == nil {
		return
	}
	m.parseFallbacks.Add(ctx, 1)
}

// RecordDegradedRun counts a run served by the routing fallback.
func (m *PipelineMetrics) RecordDegradedRun(ctx context.Context, agentType string) {
	if m == nil {
		return
	}
	m.degradedRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route.agent_type", agentType),
	))
}

// RecordToolDispatch counts one tool dispatch attempt.
func (m *PipelineMetrics) RecordToolDispatch(ctx context.Context, toolName string, success bool) {
	if m == nil {
		return
	}
	m.toolDispatches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool.name", toolName),
		attribute.Bool("tool.success", success),
	))
}

// RecordStage records a stage latency sample.
func (m *PipelineMetrics) RecordStage(ctx context.Context, stage string, durationMs float64) {
	if m == nil {
		return
	}
	m.stageLatencyMs.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("pipeline.stage", stage),
	))
}
