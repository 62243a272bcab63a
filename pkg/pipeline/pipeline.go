// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline implements the four-stage task orchestrator:
// Analyze, Plan, Execute, Respond. Stage failures are recovered in place with
// deterministic substitutes so a run always completes; only unknown agents,
// invalid input, and pipeline-level faults surface as failed results. A
// pipeline-level fault trips the degradation latch and hands all further runs
// to the keyword router for the rest of the process lifetime.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dirigent-ai/dirigent/pkg/conversation"
	"github.com/dirigent-ai/dirigent/pkg/core"
	"github.com/dirigent-ai/dirigent/pkg/errors"
	"github.com/dirigent-ai/dirigent/pkg/llm"
	"github.com/dirigent-ai/dirigent/pkg/memory"
	"github.com/dirigent-ai/dirigent/pkg/registry"
	"github.com/dirigent-ai/dirigent/pkg/resilience"
	"github.com/dirigent-ai/dirigent/pkg/routing"
	"github.com/dirigent-ai/dirigent/pkg/telemetry"
	"github.com/dirigent-ai/dirigent/pkg/tool"
)

// FallbackRouter is the degraded path consulted once the latch has tripped.
// *routing.Router satisfies it.
type FallbackRouter interface {
	Route(ctx context.Context, agentType, input string) routing.Result
}

// Pipeline orchestrates runs over the agent registry, tool registry,
// conversation store, and completion provider.
type Pipeline struct {
	agents        *registry.Registry
	tools         *tool.Registry
	conversations *conversation.Store
	provider      llm.Provider

	router   FallbackRouter
	latch    *resilience.Latch
	timeout  resilience.TimeoutConfig
	retry    resilience.RetryConfig
	metrics  *telemetry.PipelineMetrics
	emitter  core.EventEmitter
	audit    AuditStore
	recaller *memory.Recaller
	logger   *slog.Logger
	tracer   trace.Tracer
	model    string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRouter sets the degraded fallback router.
func WithRouter(router FallbackRouter) Option {
	return func(p *Pipeline) { p.router = router }
}

// WithLatch injects the degradation latch, so tests can reset it and multiple
// pipelines can share one process-wide flag.
func WithLatch(latch *resilience.Latch) Option {
	return func(p *Pipeline) { p.latch = latch }
}

// WithTimeout bounds each run end to end. Zero disables the deadline.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.timeout = resilience.TimeoutConfig{Duration: d} }
}

// WithRetry sets the retry policy for completion calls.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(p *Pipeline) { p.retry = cfg }
}

// WithMetrics sets the pipeline metrics instruments.
func WithMetrics(m *telemetry.PipelineMetrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithEmitter sets the semantic event emitter.
func WithEmitter(e core.EventEmitter) Option {
	return func(p *Pipeline) { p.emitter = e }
}

// WithAuditStore sets the run audit store.
func WithAuditStore(store AuditStore) Option {
	return func(p *Pipeline) { p.audit = store }
}

// WithRecaller enables long-term memory for agents that opted in.
func WithRecaller(r *memory.Recaller) Option {
	return func(p *Pipeline) { p.recaller = r }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithModel sets the completion model used by the stage calls.
func WithModel(model string) Option {
	return func(p *Pipeline) { p.model = model }
}

// New creates a Pipeline. The zero configuration runs without deadline,
// without fallback router, and with in-memory auditing.
func New(agents *registry.Registry, tools *tool.Registry, conversations *conversation.Store, provider llm.Provider, opts ...Option) *Pipeline {
	p := &Pipeline{
		agents:        agents,
		tools:         tools,
		conversations: conversations,
		provider:      provider,
		latch:         resilience.NewLatch(),
		retry:         resilience.DefaultRetryConfig(),
		emitter:       core.NoopEventEmitter{},
		audit:         NewMemoryAuditStore(),
		logger:        slog.Default(),
		tracer:        otel.Tracer("dirigent/pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Latch exposes the degradation latch.
func (p *Pipeline) Latch() *resilience.Latch { return p.latch }

// Audit exposes the run audit store.
func (p *Pipeline) Audit() AuditStore { return p.audit }

// Overview is the combined listing: every registered agent alongside the tool
// names currently available for dispatch. The tool list is informational; an
// agent may declare tools that are not (yet) registered.
type Overview struct {
	Agents []registry.Summary `json:"agents"`
	Tools  []string           `json:"tools"`
}

// Overview lists the registered agents and dispatchable tool names.
func (p *Pipeline) Overview() Overview {
	return Overview{Agents: p.agents.List(), Tools: p.tools.Names()}
}

// Run executes one task for the agent. It never panics past this boundary
// and never returns a bare error: every outcome is a Result with Success set.
// Once the latch is tripped every run, for every agent, takes the degraded
// path until the process ends.
func (p *Pipeline) Run(ctx context.Context, agentID, task string, rc *core.RunContext) Result {
	ctx, runID := core.EnsureRunID(ctx)

	if p.latch.Tripped() && p.router != nil {
		reason, _ := p.latch.Reason()
		return p.degraded(ctx, runID, agentID, task, reason)
	}

	res := p.runPrimary(ctx, runID, agentID, task, rc)
	if !res.Success && res.trippable {
		p.latch.Trip(res.Error)
		if p.router != nil {
			return p.degraded(ctx, runID, agentID, task, res.Error)
		}
	}
	return res
}

func (p *Pipeline) runPrimary(ctx context.Context, runID, agentID, task string, rc *core.RunContext) (res Result) {
	started := time.Now()
	ctx, span := p.tracer.Start(ctx, "pipeline.run")
	defer span.End()

	var convID string
	defer func() {
		if rec := recover(); rec != nil {
			res = failure(agentID, task, fmt.Sprintf("pipeline panic: %v", rec), true)
		}
		p.finish(ctx, runID, agentID, convID, task, started, &res)
	}()

	p.metrics.RecordRunStart(ctx)
	p.emitter.Emit(ctx, core.NewEvent(core.EventRunStarted, agentID, runID, map[string]any{"task": task}))
	p.logger.InfoContext(ctx, "pipeline.run.start",
		slog.String("agent_id", agentID),
		slog.String("run_id", runID),
	)

	if strings.TrimSpace(task) == "" {
		return failure(agentID, task,
			errors.New(errors.CodeInvalidInput, "task text is required", nil).Error(), false)
	}

	agent, err := p.agents.Get(agentID)
	if err != nil {
		return failure(agentID, task, err.Error(), false)
	}
	span.SetAttributes(telemetry.AgentAttributes(agent.ID, agent.Name, runID)...)

	if rc == nil {
		rc = &core.RunContext{}
	}
	conv := p.conversations.GetOrCreate(rc.ConversationID, agent.ID)
	rc.ConversationID = conv.ID
	convID = conv.ID

	value, err := resilience.WithTimeoutResult(ctx, p.timeout, func(ctx context.Context) (out interface{}, err error) {
		// The stage body may run on a spawned goroutine; a panic there must
		// surface as an error, not kill the process.
		defer func() {
			if rec := recover(); rec != nil {
				err = errors.New(errors.CodeInternal, fmt.Sprintf("pipeline panic: %v", rec), nil)
			}
		}()
		return p.stages(ctx, agent, task, rc), nil
	})
	if err != nil {
		return failure(agentID, task, err.Error(), true)
	}
	out := value.(*stageOutcome)

	p.conversations.Append(conv.ID, agent.ID,
		conversation.UserTurn(task),
		conversation.AssistantTurn(out.response, out.execution.Results),
	)
	p.agents.RecordConversation(agent.ID, conv.ID)

	if agent.Memory && p.recaller != nil {
		if err := p.recaller.Remember(ctx, agent.ID, task, out.response); err != nil {
			p.logger.WarnContext(ctx, "pipeline.memory.remember_failed",
				slog.String("agent_id", agent.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return Result{
		Success:   true,
		AgentID:   agent.ID,
		AgentName: agent.Name,
		Task:      task,
		Analysis:  out.analysis,
		Plan:      out.plan,
		Execution: out.execution,
		Response:  out.response,
		ToolCalls: out.execution.ToolCalls,
		Timestamp: time.Now().UTC(),
	}
}

// finish records the audit trail, metrics, and terminal event for a primary
// run.
func (p *Pipeline) finish(ctx context.Context, runID, agentID, convID, task string, started time.Time, res *Result) {
	durationMs := float64(time.Since(started).Milliseconds())
	p.metrics.RecordRunEnd(ctx, durationMs, res.Success)

	status := "completed"
	eventType := core.EventRunCompleted
	if !res.Success {
		status = "failed"
		eventType = core.EventRunFailed
	}
	p.emitter.Emit(ctx, core.NewEvent(eventType, agentID, runID, map[string]any{
		"status":      status,
		"duration_ms": durationMs,
	}))

	if err := p.audit.Record(ctx, RunRecord{
		RunID:          runID,
		AgentID:        agentID,
		ConversationID: convID,
		Task:           task,
		Status:         status,
		Response:       res.Response,
		Error:          res.Error,
		StartedAt:      started.UTC(),
		FinishedAt:     time.Now().UTC(),
	}); err != nil {
		p.logger.WarnContext(ctx, "pipeline.audit.record_failed", slog.String("error", err.Error()))
	}

	p.logger.InfoContext(ctx, "pipeline.run.end",
		slog.String("agent_id", agentID),
		slog.String("run_id", runID),
		slog.String("status", status),
		slog.Float64("duration_ms", durationMs),
	)
}

// degraded serves a run through the keyword router and wraps its result.
func (p *Pipeline) degraded(ctx context.Context, runID, agentID, task, reason string) Result {
	started := time.Now()
	agentType := p.agentType(agentID)

	p.logger.WarnContext(ctx, "pipeline.run.degraded",
		slog.String("agent_id", agentID),
		slog.String("agent_type", agentType),
		slog.String("reason", reason),
	)
	p.emitter.Emit(ctx, core.NewEvent(core.EventRouteDegraded, agentID, runID, map[string]any{
		"agent_type": agentType,
		"reason":     reason,
	}))

	route := p.router.Route(ctx, agentType, task)
	p.metrics.RecordDegradedRun(ctx, agentType)

	if err := p.audit.Record(ctx, RunRecord{
		RunID:      runID,
		AgentID:    agentID,
		Task:       task,
		Status:     "degraded",
		Response:   route.Output,
		Error:      route.Error,
		Degraded:   true,
		StartedAt:  started.UTC(),
		FinishedAt: time.Now().UTC(),
	}); err != nil {
		p.logger.WarnContext(ctx, "pipeline.audit.record_failed", slog.String("error", err.Error()))
	}

	return Result{
		Success:   route.Success,
		AgentID:   agentID,
		Task:      task,
		Response:  route.Output,
		Error:     route.Error,
		ToolCalls: []ToolCall{},
		Timestamp: time.Now().UTC(),
		Degraded:  true,
		Route:     &route,
	}
}

// agentType maps an agent id to the router's persona key: the agent's
// personality tag when set, its name otherwise, or the raw id when the agent
// is unknown (degraded callers may address router personas directly).
func (p *Pipeline) agentType(agentID string) string {
	if agent, err := p.agents.Get(agentID); err == nil {
		if agent.Personality != "" {
			return strings.ToLower(agent.Personality)
		}
		return strings.ToLower(agent.Name)
	}
	return strings.ToLower(agentID)
}

// complete issues one completion call under the retry policy.
func (p *Pipeline) complete(ctx context.Context, req llm.Request) (string, error) {
	if req.Options.Model == "" {
		req.Options.Model = p.model
	}
	var out *llm.Completion
	err := p.retry.Do(ctx, func() error {
		c, err := p.provider.Complete(ctx, req)
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return "", err
	}
	return out.Content, nil
}

func runIDOf(ctx context.Context) string {
	id, _ := core.RunID(ctx)
	return id
}
