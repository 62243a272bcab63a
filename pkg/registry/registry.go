// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dirigent-ai/dirigent/pkg/errors"
)

// Fields carries a partial update. Nil pointers mean "leave unchanged"; only
// the allow-listed fields below exist here, so anything else a caller sends
// is dropped before it reaches the registry.
type Fields struct {
	Description  *string
	Capabilities *[]string
	SystemPrompt *string
	Tools        *[]string
	Personality  *string
	MaxTokens    *int
	Temperature  *float64
}

// Registry is the in-memory agent store. Safe for concurrent use; all
// mutation runs under the write lock so per-agent updates cannot be lost.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Agent
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{agents: make(map[string]*Agent)}
}

// Create validates the definition, synthesizes a default system prompt when
// none is supplied, and stores the agent as active.
// Tool names are not validated against the tool registry here; unknown names
// simply never match during dispatch.
func (r *Registry) Create(def Definition) (*Agent, error) {
	if def.Name == "" {
		return nil, errors.New(errors.CodeInvalidInput, "agent name is required", nil).
			WithRecoverable(false)
	}

	prompt := def.SystemPrompt
	if prompt == "" {
		prompt = defaultSystemPrompt(def)
	}

	agent := &Agent{
		ID:           uuid.NewString(),
		Name:         def.Name,
		Description:  def.Description,
		Capabilities: append([]string(nil), def.Capabilities...),
		SystemPrompt: prompt,
		Tools:        append([]string(nil), def.Tools...),
		Personality:  def.Personality,
		Memory:       def.Memory,
		MaxTokens:    def.MaxTokens,
		Temperature:  def.Temperature,
		Status:       StatusActive,
		Created:      time.Now().UTC(),
	}

	r.mu.Lock()
	r.agents[agent.ID] = agent
	r.mu.Unlock()

	return agent.clone(), nil
}

// Get returns a copy of the agent, or errors.CodeNotFound.
func (r *Registry) Get(id string) (*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agent, ok := r.agents[id]
	if !ok {
		return nil, notFound(id)
	}
	return agent.clone(), nil
}

// Update applies the allow-listed fields and returns the update timestamp.
func (r *Registry) Update(id string, fields Fields) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.agents[id]
	if !ok {
		return time.Time{}, notFound(id)
	}

	if fields.Description != nil {
		agent.Description = *fields.Description
	}
	if fields.Capabilities != nil {
		agent.Capabilities = append([]string(nil), (*fields.Capabilities)...)
	}
	if fields.SystemPrompt != nil {
		agent.SystemPrompt = *fields.SystemPrompt
	}
	if fields.Tools != nil {
		agent.Tools = append([]string(nil), (*fields.Tools)...)
	}
	if fields.Personality != nil {
		agent.Personality = *fields.Personality
	}
	if fields.MaxTokens != nil {
		agent.MaxTokens = *fields.MaxTokens
	}
	if fields.Temperature != nil {
		agent.Temperature = *fields.Temperature
	}

	agent.Updated = time.Now().UTC()
	return agent.Updated, nil
}

// Delete removes the agent. Conversations already recorded for it are not
// cascade-deleted; they remain in the conversation store.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[id]; !ok {
		return notFound(id)
	}
	delete(r.agents, id)
	return nil
}

// List returns public summaries of every agent, ordered by creation time.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]Summary, 0, len(r.agents))
	for _, agent := range r.agents {
		summaries = append(summaries, agent.Summarize())
	}
	for i := 1; i < len(summaries); i++ {
		for j := i; j > 0 && summaries[j].Created.Before(summaries[j-1].Created); j-- {
			summaries[j], summaries[j-1] = summaries[j-1], summaries[j]
		}
	}
	return summaries
}

// RecordConversation appends a conversation id to the agent's participation
// list. Missing agents are ignored; the conversation itself is the record of
// truth.
func (r *Registry) RecordConversation(agentID, conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[agentID]
	if !ok {
		return
	}
	for _, id := range agent.Conversations {
		if id == conversationID {
			return
		}
	}
	agent.Conversations = append(agent.Conversations, conversationID)
}

func notFound(id string) *errors.DirigentError {
	return errors.New(errors.CodeNotFound, "agent not found", nil).
		WithContext("agent_id", id).
		WithRecoverable(false)
}
