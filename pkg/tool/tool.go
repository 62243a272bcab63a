// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

// Package tool implements the capability registry and the dispatch contract
// used by the pipeline's Execute stage.
package tool

import (
	"context"

	"github.com/dirigent-ai/dirigent/pkg/core"
)

// Result is what every capability invocation returns. Failures are data, not
// errors: a capability reports its own missing-input or execution problems
// through Success=false and Error, and the dispatcher never lets anything
// escape past its boundary.
type Result struct {
	Success bool           `json:"success"`
	Tool    string         `json:"tool,omitempty"`
	Output  string         `json:"output,omitempty"`
	Error   string         `json:"error,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Capability is a named external collaborator invoked during the Execute
// stage. Each capability defines which RunContext fields it requires and
// reports missing fields through a failed Result.
type Capability interface {
	Name() string
	Invoke(ctx context.Context, rc *core.RunContext) Result
}

// Func adapts a function to the Capability interface.
type Func struct {
	ToolName string
	Fn       func(ctx context.Context, rc *core.RunContext) Result
}

// Name returns the capability name.
func (f Func) Name() string { return f.ToolName }

// Invoke runs the wrapped function.
func (f Func) Invoke(ctx context.Context, rc *core.RunContext) Result {
	return f.Fn(ctx, rc)
}

// Fail builds a failed result for the named tool.
func Fail(tool, msg string) Result {
	return Result{Success: false, Tool: tool, Error: msg}
}

// OK builds a successful result for the named tool.
func OK(tool, output string) Result {
	return Result{Success: true, Tool: tool, Output: output}
}
