// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"encoding/json"
	"strings"
)

// Complexity labels recognized in an Analysis.
const (
	ComplexityLow    = "low"
	ComplexityMedium = "medium"
	ComplexityHigh   = "high"
)

// Analysis is the Analyze-stage classification of a task. Parsed records
// which branch produced it: true for a completion successfully parsed into
// this shape, false for the deterministic fallback. Raw keeps the completion
// text for diagnostics when the fallback fired.
type Analysis struct {
	TaskType       string   `json:"taskType"`
	RequiredTools  []string `json:"requiredTools"`
	Complexity     string   `json:"complexity"`
	EstimatedSteps []string `json:"estimatedSteps,omitempty"`
	Parsed         bool     `json:"parsed"`
	Raw            string   `json:"raw,omitempty"`
}

// FallbackAnalysis is the deterministic substitute used whenever the Analyze
// completion fails or does not parse: general task type, the agent's full
// declared tool list, medium complexity.
func FallbackAnalysis(agentTools []string, raw string) *Analysis {
	return &Analysis{
		TaskType:      "general",
		RequiredTools: append([]string(nil), agentTools...),
		Complexity:    ComplexityMedium,
		Parsed:        false,
		Raw:           raw,
	}
}

// analysisWire is the shape requested from the completion service.
type analysisWire struct {
	TaskType       string   `json:"taskType"`
	RequiredTools  []string `json:"requiredTools"`
	Complexity     string   `json:"complexity"`
	EstimatedSteps []string `json:"estimatedSteps"`
}

// ParseAnalysis attempts to read a completion as a structured Analysis.
// The JSON object may be wrapped in prose or markdown fences. A missing or
// empty taskType fails the parse; an unrecognized complexity is normalized
// to medium rather than failing.
func ParseAnalysis(content string) (*Analysis, bool) {
	payload, ok := extractJSONObject(content)
	if !ok {
		return nil, false
	}

	var wire analysisWire
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return nil, false
	}
	if strings.TrimSpace(wire.TaskType) == "" {
		return nil, false
	}

	complexity := strings.ToLower(strings.TrimSpace(wire.Complexity))
	switch complexity {
	case ComplexityLow, ComplexityMedium, ComplexityHigh:
	default:
		complexity = ComplexityMedium
	}

	return &Analysis{
		TaskType:       strings.TrimSpace(wire.TaskType),
		RequiredTools:  wire.RequiredTools,
		Complexity:     complexity,
		EstimatedSteps: wire.EstimatedSteps,
		Parsed:         true,
	}, true
}

// extractJSONObject returns the outermost {...} span of s.
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return s[start : end+1], true
}
