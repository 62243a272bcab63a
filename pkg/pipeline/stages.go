// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/dirigent-ai/dirigent/pkg/core"
	"github.com/dirigent-ai/dirigent/pkg/llm"
	"github.com/dirigent-ai/dirigent/pkg/memory"
	"github.com/dirigent-ai/dirigent/pkg/registry"
	"github.com/dirigent-ai/dirigent/pkg/telemetry"
	"github.com/dirigent-ai/dirigent/pkg/tool"
)

// stageOutcome is the transient state a run threads through its four stages.
type stageOutcome struct {
	analysis  *Analysis
	plan      *Plan
	execution *Execution
	response  string
}

func (p *Pipeline) stages(ctx context.Context, agent *registry.Agent, task string, rc *core.RunContext) *stageOutcome {
	analysis := p.analyze(ctx, agent, task, rc)
	plan := p.plan(ctx, agent, task, analysis)
	execution := p.execute(ctx, plan, rc)
	response := p.respond(ctx, agent, task, execution)
	return &stageOutcome{
		analysis:  analysis,
		plan:      plan,
		execution: execution,
		response:  response,
	}
}

// analyze classifies the task. Completion or parse failure substitutes the
// deterministic fallback analysis; either way the stage succeeds.
func (p *Pipeline) analyze(ctx context.Context, agent *registry.Agent, task string, rc *core.RunContext) *Analysis {
	started := time.Now()
	ctx, span := p.tracer.Start(ctx, "pipeline.analyze")
	defer span.End()

	content, err := p.complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: analyzeSystemPrompt(agent)},
			{Role: llm.RoleUser, Content: analyzeUserPrompt(task, rc)},
		},
		// Classification wants determinism and a bounded reply.
		Options: llm.Options{Temperature: 0.2, MaxTokens: 500},
	})

	var analysis *Analysis
	switch {
	case err != nil:
		analysis = FallbackAnalysis(agent.Tools, "")
	default:
		parsed, ok := ParseAnalysis(content)
		if ok {
			analysis = parsed
		} else {
			analysis = FallbackAnalysis(agent.Tools, content)
		}
	}

	if !analysis.Parsed {
		p.metrics.RecordParseFallback(ctx)
		p.emitter.Emit(ctx, core.NewEvent(core.EventStageRecover, agent.ID, runIDOf(ctx), map[string]any{
			"stage": "analyze",
		}))
		p.logger.DebugContext(ctx, "pipeline.analyze.fallback",
			slog.String("agent_id", agent.ID),
			slog.String("raw", telemetry.Truncate(analysis.Raw, 200)),
		)
	}

	durationMs := float64(time.Since(started).Milliseconds())
	p.metrics.RecordStage(ctx, "analyze", durationMs)
	span.SetAttributes(telemetry.AnalysisAttributes(analysis.TaskType, analysis.Complexity, analysis.RequiredTools, analysis.Parsed)...)
	span.SetAttributes(telemetry.StageAttributes("analyze", !analysis.Parsed, durationMs)...)
	return analysis
}

// plan asks for step text seeded with the analysis; any failure substitutes
// the fallback plan.
func (p *Pipeline) plan(ctx context.Context, agent *registry.Agent, task string, analysis *Analysis) *Plan {
	started := time.Now()
	ctx, span := p.tracer.Start(ctx, "pipeline.plan")
	defer span.End()

	content, err := p.complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: agent.SystemPrompt},
			{Role: llm.RoleUser, Content: planUserPrompt(task, analysis)},
		},
		Options: llm.Options{Temperature: 0.3, MaxTokens: 600},
	})

	var plan *Plan
	if err != nil || strings.TrimSpace(content) == "" {
		plan = FallbackPlan(analysis)
		p.emitter.Emit(ctx, core.NewEvent(core.EventStageRecover, agent.ID, runIDOf(ctx), map[string]any{
			"stage": "plan",
		}))
		p.logger.DebugContext(ctx, "pipeline.plan.fallback", slog.String("agent_id", agent.ID))
	} else {
		plan = NewPlan(content, analysis)
	}

	durationMs := float64(time.Since(started).Milliseconds())
	p.metrics.RecordStage(ctx, "plan", durationMs)
	span.SetAttributes(telemetry.StageAttributes("plan", plan.Fallback, durationMs)...)
	return plan
}

// execute dispatches each required tool that is actually registered, in plan
// order. Unregistered names are skipped silently; an individual tool failure
// is recorded as data. Only a broken dispatch loop fails the stage.
func (p *Pipeline) execute(ctx context.Context, plan *Plan, rc *core.RunContext) (exec *Execution) {
	started := time.Now()
	ctx, span := p.tracer.Start(ctx, "pipeline.execute")
	defer span.End()

	exec = &Execution{
		Results:   []tool.Result{},
		ToolCalls: []ToolCall{},
		Status:    ExecutionCompleted,
	}
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.ErrorContext(ctx, "pipeline.execute.loop_failed",
				slog.String("panic", fmt.Sprintf("%v", rec)),
			)
			exec = &Execution{
				Results:   []tool.Result{},
				ToolCalls: []ToolCall{},
				Status:    ExecutionFailed,
			}
		}
		durationMs := float64(time.Since(started).Milliseconds())
		p.metrics.RecordStage(ctx, "execute", durationMs)
		span.SetAttributes(telemetry.StageAttributes("execute", exec.Status == ExecutionFailed, durationMs)...)
	}()

	for _, name := range plan.RequiredTools {
		if _, ok := p.tools.Lookup(name); !ok {
			p.logger.DebugContext(ctx, "pipeline.execute.skip_unregistered", slog.String("tool", name))
			continue
		}

		toolStart := time.Now()
		result := p.tools.Dispatch(ctx, name, rc)
		toolMs := float64(time.Since(toolStart).Milliseconds())

		p.metrics.RecordToolDispatch(ctx, name, result.Success)
		p.emitter.Emit(ctx, core.NewEvent(core.EventToolDispatch, "", runIDOf(ctx), map[string]any{
			"tool":    name,
			"success": result.Success,
		}))
		span.AddEvent("tool.dispatch", trace.WithAttributes(telemetry.ToolCallAttributes(name, result.Success, toolMs)...))

		exec.Results = append(exec.Results, result)
		exec.ToolCalls = append(exec.ToolCalls, ToolCall{Tool: name, Result: result})
	}
	return exec
}

// respond synthesizes the final answer from the task and the execution
// excerpt, using the agent's own generation parameters. Failure substitutes a
// templated apology that names the original task.
func (p *Pipeline) respond(ctx context.Context, agent *registry.Agent, task string, execution *Execution) string {
	started := time.Now()
	ctx, span := p.tracer.Start(ctx, "pipeline.respond")
	defer span.End()

	var recollections []memory.Recollection
	if agent.Memory && p.recaller != nil {
		recs, err := p.recaller.Recall(ctx, agent.ID, task, 3)
		if err != nil {
			p.logger.DebugContext(ctx, "pipeline.memory.recall_failed", slog.String("error", err.Error()))
		} else {
			recollections = recs
		}
	}

	temperature := agent.Temperature
	if temperature == 0 {
		temperature = 0.7
	}
	content, err := p.complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: agent.SystemPrompt},
			{Role: llm.RoleUser, Content: respondUserPrompt(task, execution, recollections)},
		},
		Options: llm.Options{Temperature: temperature, MaxTokens: agent.MaxTokens},
	})

	fallback := false
	if err != nil || strings.TrimSpace(content) == "" {
		content = apology(task)
		fallback = true
		p.emitter.Emit(ctx, core.NewEvent(core.EventStageRecover, agent.ID, runIDOf(ctx), map[string]any{
			"stage": "respond",
		}))
		p.logger.DebugContext(ctx, "pipeline.respond.fallback", slog.String("agent_id", agent.ID))
	}

	durationMs := float64(time.Since(started).Milliseconds())
	p.metrics.RecordStage(ctx, "respond", durationMs)
	span.SetAttributes(telemetry.StageAttributes("respond", fallback, durationMs)...)
	return content
}

func analyzeSystemPrompt(agent *registry.Agent) string {
	var b strings.Builder
	b.WriteString(agent.SystemPrompt)
	b.WriteString("\n\nYou are classifying an incoming task. Available tools: ")
	if len(agent.Tools) > 0 {
		b.WriteString(strings.Join(agent.Tools, ", "))
	} else {
		b.WriteString("(none)")
	}
	b.WriteString(".\nRespond with a single JSON object with keys " +
		`"taskType" (string), "requiredTools" (array of tool names drawn from the list above), ` +
		`"complexity" ("low", "medium" or "high"), and "estimatedSteps" (array of strings). ` +
		"Respond with JSON only, no prose.")
	return b.String()
}

func analyzeUserPrompt(task string, rc *core.RunContext) string {
	return fmt.Sprintf("Task: %s\nContext: %s", task, rc.Serialize())
}

func planUserPrompt(task string, analysis *Analysis) string {
	return fmt.Sprintf(
		"Task: %s\nTask type: %s\nComplexity: %s\nTools to use: %s\n\n"+
			"Write a short numbered step-by-step plan for completing this task.",
		task, analysis.TaskType, analysis.Complexity, strings.Join(analysis.RequiredTools, ", "),
	)
}

func respondUserPrompt(task string, execution *Execution, recollections []memory.Recollection) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n\nTool output:\n%s\n", task, serializeResults(execution.Results))
	if len(recollections) > 0 {
		b.WriteString("\nRelevant prior work:\n")
		for _, rec := range recollections {
			fmt.Fprintf(&b, "- Task: %s\n  Outcome: %s\n", rec.Task, rec.Response)
		}
	}
	b.WriteString("\nWrite the final answer for the user.")
	return b.String()
}

// serializeResults renders the tool results as one excerpt; structured
// payloads are stringified as JSON.
func serializeResults(results []tool.Result) string {
	if len(results) == 0 {
		return "(no tool output)"
	}
	lines := make([]string, 0, len(results))
	for _, res := range results {
		data, err := json.Marshal(res)
		if err != nil {
			lines = append(lines, fmt.Sprintf("%+v", res))
			continue
		}
		lines = append(lines, string(data))
	}
	return strings.Join(lines, "\n")
}

func apology(task string) string {
	return fmt.Sprintf(
		"I apologize, but I ran into a problem while working on your request: %q. "+
			"Please try again or rephrase the task.", task)
}
