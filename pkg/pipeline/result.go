// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"time"

	"github.com/dirigent-ai/dirigent/pkg/routing"
	"github.com/dirigent-ai/dirigent/pkg/tool"
)

// ExecutionStatus reports how the Execute stage ended.
type ExecutionStatus string

const (
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
)

// ToolCall is one {tool, result} record from the Execute stage. Tool failures
// are recorded here as data; they never fail the stage.
type ToolCall struct {
	Tool   string      `json:"tool"`
	Result tool.Result `json:"result"`
}

// Execution is the Execute-stage record. Status is failed only when the
// dispatch loop itself broke, in which case the lists are empty.
type Execution struct {
	Results   []tool.Result   `json:"results"`
	ToolCalls []ToolCall      `json:"toolCalls"`
	Status    ExecutionStatus `json:"status"`
}

// Result is what every run returns. Success carries the full stage bundle;
// failure carries only the error description plus identifying fields. Runs
// served by the routing fallback additionally carry the route record.
type Result struct {
	Success   bool            `json:"success"`
	AgentID   string          `json:"agentId"`
	AgentName string          `json:"agentName,omitempty"`
	Task      string          `json:"task"`
	Analysis  *Analysis       `json:"analysis,omitempty"`
	Plan      *Plan           `json:"plan,omitempty"`
	Execution *Execution      `json:"execution,omitempty"`
	Response  string          `json:"response,omitempty"`
	ToolCalls []ToolCall      `json:"toolCalls"`
	Timestamp time.Time       `json:"timestamp"`
	Error     string          `json:"error,omitempty"`
	Degraded  bool            `json:"degraded,omitempty"`
	Route     *routing.Result `json:"route,omitempty"`

	// trippable marks failures that count against the primary path.
	// Caller errors (unknown agent, empty task) do not trip the latch.
	trippable bool
}

func failure(agentID, task, errMsg string, trippable bool) Result {
	return Result{
		Success:   false,
		AgentID:   agentID,
		Task:      task,
		Error:     errMsg,
		Timestamp: time.Now().UTC(),
		trippable: trippable,
	}
}
