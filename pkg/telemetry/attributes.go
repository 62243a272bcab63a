// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// AgentAttributes describe the agent driving a pipeline run.
func AgentAttributes(agentID, agentName, runID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("agent.id", agentID),
		attribute.String("agent.name", agentName),
		attribute.String("run.id", runID),
	}
}

// StageAttributes describe one pipeline stage outcome.
func StageAttributes(stage string, fallback bool, durationMs float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("pipeline.stage", stage),
		attribute.Bool("pipeline.stage.fallback", fallback),
		attribute.Float64("pipeline.stage.duration_ms", durationMs),
	}
}

// AnalysisAttributes describe the classified task.
func AnalysisAttributes(taskType, complexity string, requiredTools []string, parsed bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("analysis.task_type", taskType),
		attribute.String("analysis.complexity", complexity),
		attribute.StringSlice("analysis.required_tools", requiredTools),
		attribute.Bool("analysis.parsed", parsed),
	}
}

// ToolCallAttributes describe one tool dispatch within Execute.
func ToolCallAttributes(name string, success bool, durationMs float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("tool.name", name),
		attribute.Bool("tool.success", success),
		attribute.Float64("tool.duration_ms", durationMs),
	}
}

// RouteAttributes describe a fallback routing decision.
func RouteAttributes(agentType, branch string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("route.agent_type", agentType),
		attribute.String("route.branch", branch),
	}
}

// Truncate bounds attribute payloads so spans stay affordable.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
