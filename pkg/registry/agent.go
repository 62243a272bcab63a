// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry stores agent definitions and their lifecycle.
package registry

import (
	"fmt"
	"strings"
	"time"
)

// Status describes the lifecycle state of an agent.
type Status string

const (
	// StatusActive is the only persisted status; deletion removes the record.
	StatusActive Status = "active"
)

// Definition is the caller-supplied input to Create.
type Definition struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
	SystemPrompt string   `json:"systemPrompt,omitempty"`
	Tools        []string `json:"tools,omitempty"`
	Personality  string   `json:"personality,omitempty"`
	Memory       bool     `json:"memory,omitempty"`
	MaxTokens    int      `json:"maxTokens,omitempty"`
	Temperature  float64  `json:"temperature,omitempty"`
}

// Agent is the stored entity. Owned exclusively by the Registry; mutated only
// through Update's allow-list.
type Agent struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Capabilities  []string  `json:"capabilities,omitempty"`
	SystemPrompt  string    `json:"systemPrompt"`
	Tools         []string  `json:"tools,omitempty"`
	Personality   string    `json:"personality,omitempty"`
	Memory        bool      `json:"memory,omitempty"`
	MaxTokens     int       `json:"maxTokens,omitempty"`
	Temperature   float64   `json:"temperature,omitempty"`
	Status        Status    `json:"status"`
	Created       time.Time `json:"created"`
	Updated       time.Time `json:"updated,omitempty"`
	Conversations []string  `json:"conversations,omitempty"`
}

// Summary is the public agent record exposed on creation and listing.
// System prompt and raw generation parameters stay internal.
type Summary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Capabilities []string  `json:"capabilities,omitempty"`
	Tools        []string  `json:"tools,omitempty"`
	Created      time.Time `json:"created"`
	Updated      time.Time `json:"updated,omitempty"`
}

// Summary returns the public view of the agent.
func (a *Agent) Summarize() Summary {
	return Summary{
		ID:           a.ID,
		Name:         a.Name,
		Description:  a.Description,
		Capabilities: append([]string(nil), a.Capabilities...),
		Tools:        append([]string(nil), a.Tools...),
		Created:      a.Created,
		Updated:      a.Updated,
	}
}

// clone returns a deep copy so callers never alias registry-owned state.
func (a *Agent) clone() *Agent {
	cp := *a
	cp.Capabilities = append([]string(nil), a.Capabilities...)
	cp.Tools = append([]string(nil), a.Tools...)
	cp.Conversations = append([]string(nil), a.Conversations...)
	return &cp
}

// defaultSystemPrompt synthesizes a prompt from the definition when the
// caller supplies none: role framing, capability enumeration, and the five
// standing behavioral directives.
func defaultSystemPrompt(def Definition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s", def.Name)
	if def.Description != "" {
		fmt.Fprintf(&b, ", %s", def.Description)
	}
	b.WriteString(".\n")
	if len(def.Capabilities) > 0 {
		fmt.Fprintf(&b, "Your capabilities include: %s.\n", strings.Join(def.Capabilities, ", "))
	}
	b.WriteString(`
Guidelines:
- Think through problems step by step
- Use the available tools when appropriate
- Be clear and concise in your responses
- Be accurate; do not fabricate information
- Ask for clarification when the request is ambiguous`)
	return b.String()
}
