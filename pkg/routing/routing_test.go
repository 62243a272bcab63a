// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

package routing

import (
	"context"
	"errors"
	"testing"

	dtesting "github.com/dirigent-ai/dirigent/pkg/testing"
)

func TestTriageHistoryOnly(t *testing.T) {
	provider := dtesting.NewScenarioProvider().AddResponse("1945.")
	router := New(provider)

	res := router.Route(context.Background(), AgentTriage, "What year did World War II end?")
	if !res.Success {
		t.Fatalf("route failed: %s", res.Error)
	}
	if res.FinalAgent != AgentHistory {
		t.Errorf("expected history branch, got %q", res.FinalAgent)
	}
	if len(res.Handoffs) != 2 || res.Handoffs[0] != AgentTriage || res.Handoffs[1] != AgentHistory {
		t.Errorf("unexpected handoffs: %v", res.Handoffs)
	}
	dtesting.AssertRequest(t, provider.LastRequest()).
		HasSystemMessage("history specialist").
		HasUserMessage("World War II")
}

func TestTriageMathOnly(t *testing.T) {
	provider := dtesting.NewScenarioProvider().AddResponse("x = 3")
	router := New(provider)

	res := router.Route(context.Background(), AgentTriage, "Solve for x: 2x + 4 = 10")
	if res.FinalAgent != AgentMath {
		t.Errorf("expected math branch, got %q", res.FinalAgent)
	}
	dtesting.AssertRequest(t, provider.LastRequest()).
		HasSystemMessage("mathematics specialist")
}

func TestTriageNeitherRoutesGeneric(t *testing.T) {
	provider := dtesting.NewScenarioProvider().AddResponse("Here's one...")
	router := New(provider)

	res := router.Route(context.Background(), AgentTriage, "Tell me a joke")
	if res.FinalAgent != AgentGeneric {
		t.Errorf("expected generic branch, got %q", res.FinalAgent)
	}
}

func TestTriageBothRoutesGeneric(t *testing.T) {
	provider := dtesting.NewScenarioProvider().AddResponse("...")
	router := New(provider)

	// History vocabulary and an equation together resolve to generic.
	res := router.Route(context.Background(), AgentTriage, "In what year of the war was 2 + 2 = 4 proven?")
	if res.FinalAgent != AgentGeneric {
		t.Errorf("double match must route generic, got %q", res.FinalAgent)
	}
	dtesting.AssertRequest(t, provider.LastRequest()).
		HasSystemMessage("could not be routed")
}

func TestDirectSpecialistTypes(t *testing.T) {
	cases := map[string]string{
		AgentHistory: AgentHistory,
		AgentMath:    AgentMath,
		"HISTORY":    AgentHistory,
		"unknown":    AgentGeneric,
		"":           AgentGeneric,
	}
	for agentType, want := range cases {
		provider := dtesting.NewScenarioProvider().AddResponse("ok")
		res := New(provider).Route(context.Background(), agentType, "anything")
		if res.FinalAgent != want {
			t.Errorf("Route(%q) final agent = %q, want %q", agentType, res.FinalAgent, want)
		}
		if len(res.ToolsUsed) != 0 || res.ToolsUsed == nil {
			t.Errorf("tools used must be present and empty, got %v", res.ToolsUsed)
		}
	}
}

func TestCompletionFailureReported(t *testing.T) {
	provider := dtesting.NewScenarioProvider().
		WithDefaultError(errors.New("connection refused"))
	router := New(provider)

	res := router.Route(context.Background(), AgentHistory, "Who was Napoleon?")
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error == "" {
		t.Error("failure must carry an error description")
	}
	if res.FinalAgent != AgentHistory {
		t.Errorf("failure still names the branch, got %q", res.FinalAgent)
	}
}

func TestSingleCompletionCallPerRoute(t *testing.T) {
	provider := dtesting.NewScenarioProvider().AddResponse("ok")
	router := New(provider)

	router.Route(context.Background(), AgentTriage, "Tell me a joke")
	if provider.CallCount() != 1 {
		t.Errorf("expected exactly 1 completion call, got %d", provider.CallCount())
	}
}
