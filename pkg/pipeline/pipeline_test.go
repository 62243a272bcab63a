// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dirigent-ai/dirigent/pkg/conversation"
	"github.com/dirigent-ai/dirigent/pkg/core"
	"github.com/dirigent-ai/dirigent/pkg/llm"
	"github.com/dirigent-ai/dirigent/pkg/registry"
	"github.com/dirigent-ai/dirigent/pkg/resilience"
	"github.com/dirigent-ai/dirigent/pkg/routing"
	dtesting "github.com/dirigent-ai/dirigent/pkg/testing"
	"github.com/dirigent-ai/dirigent/pkg/tool"
)

const analysisJSON = `{"taskType":"research","requiredTools":["echo"],"complexity":"low","estimatedSteps":["look it up"]}`

func echoTool() tool.Capability {
	return tool.Func{
		ToolName: "echo",
		Fn: func(_ context.Context, rc *core.RunContext) tool.Result {
			return tool.OK("echo", rc.Query)
		},
	}
}

func newFixture(t *testing.T, provider llm.Provider, opts ...Option) (*Pipeline, *registry.Registry, *conversation.Store, *registry.Agent) {
	t.Helper()
	agents := registry.New()
	tools := tool.NewRegistry()
	tools.Register(echoTool())
	conversations := conversation.NewStore()

	agent, err := agents.Create(registry.Definition{
		Name:  "researcher",
		Tools: []string{"echo", "web_search"},
	})
	dtesting.RequireNoError(t, err, "create agent")

	opts = append([]Option{WithRetry(resilience.RetryConfig{MaxAttempts: 1})}, opts...)
	p := New(agents, tools, conversations, provider, opts...)
	return p, agents, conversations, agent
}

func TestRunSuccess(t *testing.T) {
	provider := dtesting.NewScenarioProvider().
		AddResponse(analysisJSON).
		AddResponse("1. Echo the query\n2. Summarize").
		AddResponse("Here is what I found.")
	p, _, conversations, agent := newFixture(t, provider)

	res := p.Run(context.Background(), agent.ID, "find the answer", &core.RunContext{Query: "the answer"})

	if !res.Success {
		t.Fatalf("run failed: %s", res.Error)
	}
	if res.Response == "" {
		t.Error("success requires a non-empty response")
	}
	if res.ToolCalls == nil {
		t.Error("tool calls must be present")
	}
	if res.AgentName != "researcher" {
		t.Errorf("unexpected agent name %q", res.AgentName)
	}
	if !res.Analysis.Parsed {
		t.Error("expected the parsed analysis branch")
	}
	if res.Analysis.TaskType != "research" || res.Analysis.Complexity != "low" {
		t.Errorf("unexpected analysis: %+v", res.Analysis)
	}
	if len(res.ToolCalls) != 1 || res.ToolCalls[0].Tool != "echo" {
		t.Errorf("expected one echo dispatch, got %+v", res.ToolCalls)
	}
	if !res.ToolCalls[0].Result.Success {
		t.Errorf("echo should succeed: %+v", res.ToolCalls[0].Result)
	}
	if res.Execution.Status != ExecutionCompleted {
		t.Errorf("unexpected execution status %q", res.Execution.Status)
	}
	if provider.CallCount() != 3 {
		t.Errorf("expected 3 completion calls, got %d", provider.CallCount())
	}

	// Exactly one user and one assistant turn were appended.
	ids := conversations.List()
	if len(ids) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(ids))
	}
	conv, err := conversations.Get(ids[0])
	dtesting.RequireNoError(t, err, "get conversation")
	if len(conv.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(conv.Turns))
	}
	if conv.Turns[0].Role != conversation.RoleUser || conv.Turns[0].Content != "find the answer" {
		t.Errorf("unexpected user turn: %+v", conv.Turns[0])
	}
	if conv.Turns[1].Role != conversation.RoleAssistant || len(conv.Turns[1].ToolCalls) != 1 {
		t.Errorf("unexpected assistant turn: %+v", conv.Turns[1])
	}
}

func TestRunAllCompletionsFailStillSucceeds(t *testing.T) {
	provider := dtesting.NewScenarioProvider().
		WithDefaultError(errors.New("model unavailable"))
	p, _, _, agent := newFixture(t, provider)

	task := "summarize the quarterly report"
	res := p.Run(context.Background(), agent.ID, task, nil)

	if !res.Success {
		t.Fatalf("stage failures must be recovered, got: %s", res.Error)
	}
	if res.Analysis.Parsed {
		t.Error("expected the fallback analysis branch")
	}
	if res.Analysis.TaskType != "general" || res.Analysis.Complexity != ComplexityMedium {
		t.Errorf("unexpected fallback analysis: %+v", res.Analysis)
	}
	if len(res.Analysis.RequiredTools) != 2 {
		t.Errorf("fallback must inherit the agent's declared tools, got %v", res.Analysis.RequiredTools)
	}
	if !res.Plan.Fallback || res.Plan.Steps != FallbackPlanText {
		t.Errorf("expected fallback plan, got %+v", res.Plan)
	}
	if !strings.Contains(res.Response, task) {
		t.Errorf("apology must name the original task, got %q", res.Response)
	}
	if p.Latch().Tripped() {
		t.Error("recovered stage failures must not trip the latch")
	}
}

func TestRunUnknownAgent(t *testing.T) {
	provider := dtesting.NewScenarioProvider()
	p, _, conversations, _ := newFixture(t, provider)

	res := p.Run(context.Background(), "no-such-agent", "do something", nil)

	if res.Success {
		t.Fatal("unknown agent must fail the run")
	}
	if !strings.Contains(res.Error, "not found") {
		t.Errorf("expected a not-found error, got %q", res.Error)
	}
	if len(conversations.List()) != 0 {
		t.Error("a failed lookup must append nothing")
	}
	if p.Latch().Tripped() {
		t.Error("caller errors must not trip the latch")
	}
	if provider.CallCount() != 0 {
		t.Errorf("no completion call expected, got %d", provider.CallCount())
	}
}

func TestRunEmptyTask(t *testing.T) {
	provider := dtesting.NewScenarioProvider()
	p, _, _, agent := newFixture(t, provider)

	res := p.Run(context.Background(), agent.ID, "   ", nil)
	if res.Success {
		t.Fatal("empty task must fail the run")
	}
	if p.Latch().Tripped() {
		t.Error("caller errors must not trip the latch")
	}
}

func TestUnregisteredToolSkippedSilently(t *testing.T) {
	provider := dtesting.NewScenarioProvider().
		AddResponse(`{"taskType":"mixed","requiredTools":["echo","bogus_tool"],"complexity":"medium"}`).
		AddResponse("1. Do it").
		AddResponse("Done.")
	p, _, _, agent := newFixture(t, provider)

	res := p.Run(context.Background(), agent.ID, "run the tools", &core.RunContext{Query: "q"})

	if !res.Success {
		t.Fatalf("run failed: %s", res.Error)
	}
	if len(res.ToolCalls) != 1 || res.ToolCalls[0].Tool != "echo" {
		t.Errorf("bogus_tool must not appear in the call log, got %+v", res.ToolCalls)
	}
	if res.Execution.Status != ExecutionCompleted {
		t.Errorf("skipping is not a failure, got status %q", res.Execution.Status)
	}
}

func TestFailedToolIsDataNotFault(t *testing.T) {
	provider := dtesting.NewScenarioProvider().
		AddResponse(`{"taskType":"files","requiredTools":["broken"],"complexity":"low"}`).
		AddResponse("1. Do it").
		AddResponse("Done anyway.")
	p, _, _, agent := newFixture(t, provider)
	p.tools.Register(tool.Func{
		ToolName: "broken",
		Fn: func(context.Context, *core.RunContext) tool.Result {
			return tool.Fail("broken", "missing context field")
		},
	})

	res := p.Run(context.Background(), agent.ID, "use the broken tool", nil)

	if !res.Success {
		t.Fatalf("tool failure must not fail the run: %s", res.Error)
	}
	if len(res.ToolCalls) != 1 || res.ToolCalls[0].Result.Success {
		t.Errorf("the failed dispatch must be recorded, got %+v", res.ToolCalls)
	}
	if res.Execution.Status != ExecutionCompleted {
		t.Errorf("unexpected execution status %q", res.Execution.Status)
	}
}

func TestConversationAppendMonotonic(t *testing.T) {
	provider := dtesting.NewScenarioProvider()
	for i := 0; i < 3; i++ {
		provider.
			AddResponse(analysisJSON).
			AddResponse("1. Echo").
			AddResponse("Answer.")
	}
	p, _, conversations, agent := newFixture(t, provider)

	for i := 0; i < 3; i++ {
		rc := &core.RunContext{ConversationID: "conv-1", Query: "q"}
		res := p.Run(context.Background(), agent.ID, "task", rc)
		if !res.Success {
			t.Fatalf("run %d failed: %s", i, res.Error)
		}
	}

	if got := conversations.TurnCount("conv-1"); got != 6 {
		t.Errorf("expected 2 turns per run (6 total), got %d", got)
	}
}

func TestPanicTripsLatchAndDegrades(t *testing.T) {
	primary := dtesting.NewScenarioProvider().
		WithCompleteFunc(func(llm.Request) (*llm.Completion, error) {
			panic("wiring exploded")
		})
	routerProvider := dtesting.NewScenarioProvider().
		AddResponse("degraded answer").
		AddResponse("second degraded answer")
	router := routing.New(routerProvider)

	p, _, _, agent := newFixture(t, primary, WithRouter(router))

	res := p.Run(context.Background(), agent.ID, "Tell me a joke", nil)
	if !res.Degraded {
		t.Fatal("a primary fault must hand the run to the router")
	}
	if !res.Success || res.Response != "degraded answer" {
		t.Errorf("unexpected degraded result: %+v", res)
	}
	if res.Route == nil || res.Route.FinalAgent != routing.AgentGeneric {
		t.Errorf("unexpected route record: %+v", res.Route)
	}
	if !p.Latch().Tripped() {
		t.Fatal("primary fault must trip the latch")
	}

	primaryCalls := primary.CallCount()

	// The latch is sticky: the next run never touches the primary path, even
	// though the provider would now succeed.
	primary.WithCompleteFunc(func(llm.Request) (*llm.Completion, error) {
		return &llm.Completion{Content: "healthy again"}, nil
	})
	res2 := p.Run(context.Background(), agent.ID, "Tell me a joke", nil)
	if !res2.Degraded {
		t.Fatal("subsequent runs must stay degraded")
	}
	if primary.CallCount() != primaryCalls {
		t.Errorf("primary provider must not be consulted after the trip")
	}
}

func TestPanicWithoutRouterFailsClosed(t *testing.T) {
	primary := dtesting.NewScenarioProvider().
		WithCompleteFunc(func(llm.Request) (*llm.Completion, error) {
			panic("wiring exploded")
		})
	p, _, _, agent := newFixture(t, primary)

	res := p.Run(context.Background(), agent.ID, "task", nil)
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, "panic") {
		t.Errorf("expected the panic to be described, got %q", res.Error)
	}
	if !p.Latch().Tripped() {
		t.Error("the fault must still trip the latch")
	}
}

func TestRunTimeout(t *testing.T) {
	primary := dtesting.NewScenarioProvider().
		WithCompleteFunc(func(llm.Request) (*llm.Completion, error) {
			time.Sleep(200 * time.Millisecond)
			return &llm.Completion{Content: "too late"}, nil
		})
	p, _, _, agent := newFixture(t, primary, WithTimeout(20*time.Millisecond))

	res := p.Run(context.Background(), agent.ID, "slow task", nil)
	if res.Success {
		t.Fatal("expected a timeout failure")
	}
	if !strings.Contains(res.Error, "TIMEOUT") {
		t.Errorf("expected a timeout error, got %q", res.Error)
	}
	if !p.Latch().Tripped() {
		t.Error("a timed-out run counts against the primary path")
	}
}

func TestOverviewListsAgentsAndTools(t *testing.T) {
	provider := dtesting.NewScenarioProvider()
	p, agents, _, agent := newFixture(t, provider)
	_, err := agents.Create(registry.Definition{Name: "writer"})
	dtesting.RequireNoError(t, err, "create second agent")

	ov := p.Overview()
	if len(ov.Agents) != 2 || ov.Agents[0].ID != agent.ID {
		t.Errorf("unexpected agent listing: %+v", ov.Agents)
	}
	if len(ov.Tools) != 1 || ov.Tools[0] != "echo" {
		t.Errorf("unexpected tool listing: %v", ov.Tools)
	}
}

func TestRunRecordsAudit(t *testing.T) {
	provider := dtesting.NewScenarioProvider().
		AddResponse(analysisJSON).
		AddResponse("1. Echo").
		AddResponse("Answer.")
	p, _, _, agent := newFixture(t, provider)

	p.Run(context.Background(), agent.ID, "task", nil)

	records, err := p.Audit().List(context.Background(), AuditFilter{AgentID: agent.ID})
	dtesting.RequireNoError(t, err, "list audit records")
	if len(records) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(records))
	}
	if records[0].Status != "completed" || records[0].RunID == "" {
		t.Errorf("unexpected audit record: %+v", records[0])
	}
}
