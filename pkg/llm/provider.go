// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

// Package llm defines the completion-client boundary consumed by the pipeline.
package llm

import "context"

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single unit of communication.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Options tune a single completion request.
type Options struct {
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// Request encapsulates the input for the completion service.
type Request struct {
	Messages []Message `json:"messages"`
	Options  Options   `json:"options"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion encapsulates the output from the completion service.
type Completion struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// Provider defines the interface for the external completion service.
// Implementations report transport or model failures as errors.CodeUpstream.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}
