// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"strings"
	"testing"

	"github.com/dirigent-ai/dirigent/pkg/errors"
)

func TestCreateGeneratesUniqueIDs(t *testing.T) {
	r := New()

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		agent, err := r.Create(Definition{Name: "researcher"})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if seen[agent.ID] {
			t.Fatalf("duplicate id issued: %s", agent.ID)
		}
		seen[agent.ID] = true

		got, err := r.Get(agent.ID)
		if err != nil {
			t.Fatalf("Get after Create failed: %v", err)
		}
		if got.Status != StatusActive {
			t.Errorf("expected active status, got %s", got.Status)
		}
	}
}

func TestCreateRequiresName(t *testing.T) {
	r := New()

	_, err := r.Create(Definition{Description: "nameless"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.IsCode(err, errors.CodeInvalidInput) {
		t.Errorf("expected invalid input code, got %v", err)
	}
	if len(r.List()) != 0 {
		t.Error("failed create must not register an agent")
	}
}

func TestDefaultSystemPromptSynthesis(t *testing.T) {
	r := New()
	agent, err := r.Create(Definition{
		Name:         "Atlas",
		Description:  "a research assistant",
		Capabilities: []string{"research", "summarization"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	p := agent.SystemPrompt
	for _, want := range []string{"You are Atlas", "a research assistant", "research, summarization", "step by step", "clarification"} {
		if !strings.Contains(p, want) {
			t.Errorf("synthesized prompt missing %q:\n%s", want, p)
		}
	}
}

func TestCreateKeepsSuppliedPrompt(t *testing.T) {
	r := New()
	agent, _ := r.Create(Definition{Name: "x", SystemPrompt: "custom prompt"})
	if agent.SystemPrompt != "custom prompt" {
		t.Errorf("supplied prompt was replaced: %q", agent.SystemPrompt)
	}
}

func TestUpdateAllowList(t *testing.T) {
	r := New()
	agent, _ := r.Create(Definition{Name: "updatable", Description: "before"})

	desc := "after"
	temp := 0.9
	updated, err := r.Update(agent.ID, Fields{Description: &desc, Temperature: &temp})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.IsZero() {
		t.Error("expected update timestamp")
	}

	got, _ := r.Get(agent.ID)
	if got.Description != "after" || got.Temperature != 0.9 {
		t.Errorf("update not applied: %+v", got)
	}
	// Identity and creation time are outside the allow-list entirely.
	if got.ID != agent.ID || !got.Created.Equal(agent.Created) {
		t.Error("id or created changed across update")
	}
}

func TestUpdateUnknownAgent(t *testing.T) {
	r := New()
	_, err := r.Update("nope", Fields{})
	if !errors.IsCode(err, errors.CodeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	r := New()
	agent, _ := r.Create(Definition{Name: "ephemeral"})

	if err := r.Delete(agent.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := r.Get(agent.ID); !errors.IsCode(err, errors.CodeNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
	if err := r.Delete(agent.ID); !errors.IsCode(err, errors.CodeNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestListOrderedByCreation(t *testing.T) {
	r := New()
	first, _ := r.Create(Definition{Name: "first"})
	second, _ := r.Create(Definition{Name: "second"})

	list := r.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(list))
	}
	if list[0].ID != first.ID || list[1].ID != second.ID {
		t.Errorf("unexpected order: %v", list)
	}
}

func TestRecordConversationDeduplicates(t *testing.T) {
	r := New()
	agent, _ := r.Create(Definition{Name: "chatty"})

	r.RecordConversation(agent.ID, "c1")
	r.RecordConversation(agent.ID, "c1")
	r.RecordConversation(agent.ID, "c2")

	got, _ := r.Get(agent.ID)
	if len(got.Conversations) != 2 {
		t.Errorf("expected 2 conversations, got %v", got.Conversations)
	}
}
