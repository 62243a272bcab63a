// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

// Package routing implements the degraded keyword-routing path used once the
// primary orchestration pipeline has been judged unreliable. It carries no
// tool support and makes exactly one completion call per request.
package routing

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dirigent-ai/dirigent/pkg/llm"
	"github.com/dirigent-ai/dirigent/pkg/telemetry"
)

// Agent types recognized by the router. Anything else routes generic.
const (
	AgentTriage  = "triage"
	AgentHistory = "history"
	AgentMath    = "math"
	AgentGeneric = "generic"
)

// Result is the routing run outcome. It stays structurally interchangeable
// with the primary pipeline result: success flag, output text, and an empty
// tools-used list.
type Result struct {
	Success    bool     `json:"success"`
	Output     string   `json:"output,omitempty"`
	FinalAgent string   `json:"finalAgent,omitempty"`
	Handoffs   []string `json:"handoffs"`
	ToolsUsed  []string `json:"toolsUsed"`
	Error      string   `json:"error,omitempty"`
}

const (
	historyPrompt = "You are a history specialist. Answer questions about historical " +
		"events, figures, and periods accurately, including dates and context."
	mathPrompt = "You are a mathematics specialist. Solve problems step by step " +
		"and show your working."
	genericPrompt = "You are a helpful general-purpose assistant. Answer the " +
		"request clearly and concisely."
	ambiguityNote = " The request could not be routed to a single specialist; " +
		"answer it directly and mention any ambiguity if relevant."
)

// Two independent vocabulary classifiers. Triage is a three-way decision
// table: history-only routes history, math-only routes math, everything else
// (both, neither) routes generic.
var (
	historyPattern = regexp.MustCompile(`(?i)\b(history|historical|war|battle|century|ancient|empire|dynasty|revolution|king|queen|emperor|president|civilization|year did|when did|when was|who was)\b`)
	mathPattern    = regexp.MustCompile(`(?i)[0-9]\s*[+\-*/^=]|=\s*[0-9]|\b(math|solve|equation|calculate|calculation|sum of|multiply|divide|algebra|geometry|integral|derivative|fraction|percent)\b`)
)

// Router answers requests with fixed specialist personas.
type Router struct {
	provider llm.Provider
	model    string
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option configures a Router.
type Option func(*Router)

// WithModel sets the completion model name.
func WithModel(model string) Option {
	return func(r *Router) { r.model = model }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

// New creates a Router over the given completion provider.
func New(provider llm.Provider, opts ...Option) *Router {
	r := &Router{
		provider: provider,
		logger:   slog.Default(),
		tracer:   otel.Tracer("dirigent/routing"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route classifies the input for the given agent type and issues a single
// completion call. A completion failure is reported in the result, never
// raised.
func (r *Router) Route(ctx context.Context, agentType, input string) Result {
	ctx, span := r.tracer.Start(ctx, "routing.route")
	defer span.End()

	prompt, finalAgent, handoffs := r.resolve(agentType, input)
	span.SetAttributes(telemetry.RouteAttributes(agentType, finalAgent)...)
	r.logger.DebugContext(ctx, "routing.resolved",
		slog.String("agent_type", agentType),
		slog.String("final_agent", finalAgent),
	)

	completion, err := r.provider.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: prompt},
			{Role: llm.RoleUser, Content: input},
		},
		Options: llm.Options{Model: r.model, Temperature: 0.7},
	})
	if err != nil {
		r.logger.WarnContext(ctx, "routing.completion_failed",
			slog.String("final_agent", finalAgent),
			slog.String("error", err.Error()),
		)
		return Result{
			Success:    false,
			FinalAgent: finalAgent,
			Handoffs:   handoffs,
			ToolsUsed:  []string{},
			Error:      err.Error(),
		}
	}

	return Result{
		Success:    true,
		Output:     completion.Content,
		FinalAgent: finalAgent,
		Handoffs:   handoffs,
		ToolsUsed:  []string{},
	}
}

// resolve maps an agent type (and for triage, the input text) to a system
// prompt, the final agent name, and the handoff chain.
func (r *Router) resolve(agentType, input string) (prompt, finalAgent string, handoffs []string) {
	switch strings.ToLower(strings.TrimSpace(agentType)) {
	case AgentHistory:
		return historyPrompt, AgentHistory, []string{AgentHistory}
	case AgentMath:
		return mathPrompt, AgentMath, []string{AgentMath}
	case AgentTriage:
		return r.triage(input)
	default:
		return genericPrompt, AgentGeneric, []string{AgentGeneric}
	}
}

func (r *Router) triage(input string) (prompt, finalAgent string, handoffs []string) {
	history := historyPattern.MatchString(input)
	math := mathPattern.MatchString(input)

	switch {
	case history && !math:
		return historyPrompt, AgentHistory, []string{AgentTriage, AgentHistory}
	case math && !history:
		return mathPrompt, AgentMath, []string{AgentTriage, AgentMath}
	default:
		return genericPrompt + ambiguityNote, AgentGeneric, []string{AgentTriage, AgentGeneric}
	}
}
