// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

// Package conversation keeps the append-only turn history per conversation.
package conversation

import (
	"time"

	"github.com/dirigent-ai/dirigent/pkg/tool"
)

// TurnRole distinguishes user and assistant turns.
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// Turn is a single entry in a conversation. User turns carry the task text;
// assistant turns carry the response plus the tool-call log for the run.
type Turn struct {
	Role      TurnRole      `json:"role"`
	Content   string        `json:"content"`
	ToolCalls []tool.Result `json:"toolCalls,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Conversation is an ordered, append-only history of turns tied to one agent.
// One conversation is driven by one agent at a time by convention; this is
// not enforced here.
type Conversation struct {
	ID      string    `json:"id"`
	AgentID string    `json:"agentId"`
	Created time.Time `json:"created"`
	Turns   []Turn    `json:"turns"`
}

// UserTurn builds a user turn with the current timestamp.
func UserTurn(task string) Turn {
	return Turn{Role: RoleUser, Content: task, Timestamp: time.Now().UTC()}
}

// AssistantTurn builds an assistant turn carrying the tool-call log.
func AssistantTurn(response string, toolCalls []tool.Result) Turn {
	return Turn{
		Role:      RoleAssistant,
		Content:   response,
		ToolCalls: append([]tool.Result(nil), toolCalls...),
		Timestamp: time.Now().UTC(),
	}
}
