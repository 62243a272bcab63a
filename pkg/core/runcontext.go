// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

// Package core holds the shared types threaded through the orchestration pipeline.
package core

import (
	"encoding/json"
	"sort"
)

// RunContext is the context bag passed into a pipeline run and handed to every
// tool invocation. Recognized fields are enumerated; unknown keys ride along in
// Extra so new tools can receive them without a core change.
type RunContext struct {
	ConversationID string `json:"conversationId,omitempty"`
	Query          string `json:"query,omitempty"`
	FilePath       string `json:"filePath,omitempty"`
	Action         string `json:"action,omitempty"`
	Command        string `json:"command,omitempty"`
	Input          string `json:"input,omitempty"`
	Prompt         string `json:"prompt,omitempty"`
	MaxResults     int    `json:"maxResults,omitempty"`

	Extra map[string]any `json:"extra,omitempty"`
}

// Value looks up a recognized field by its wire name, falling back to Extra.
// The second return reports whether the key held a non-zero value.
func (rc *RunContext) Value(key string) (any, bool) {
	if rc == nil {
		return nil, false
	}
	switch key {
	case "conversationId":
		return rc.ConversationID, rc.ConversationID != ""
	case "query":
		return rc.Query, rc.Query != ""
	case "filePath":
		return rc.FilePath, rc.FilePath != ""
	case "action":
		return rc.Action, rc.Action != ""
	case "command":
		return rc.Command, rc.Command != ""
	case "input":
		return rc.Input, rc.Input != ""
	case "prompt":
		return rc.Prompt, rc.Prompt != ""
	case "maxResults":
		return rc.MaxResults, rc.MaxResults != 0
	}
	v, ok := rc.Extra[key]
	return v, ok
}

// Serialize renders the context as compact JSON for embedding in prompts.
// A nil or empty context serializes to "{}".
func (rc *RunContext) Serialize() string {
	if rc == nil {
		return "{}"
	}
	data, err := json.Marshal(rc)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Keys returns the sorted Extra keys, for deterministic logging.
func (rc *RunContext) Keys() []string {
	if rc == nil || len(rc.Extra) == 0 {
		return nil
	}
	keys := make([]string, 0, len(rc.Extra))
	for k := range rc.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
