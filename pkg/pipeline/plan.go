// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

// FallbackPlanText is substituted whenever plan generation fails.
const FallbackPlanText = "1. Analyze the task requirements\n" +
	"2. Execute the necessary actions using the available tools\n" +
	"3. Provide results"

// Plan is the Plan-stage output: free-form step text plus the tool list and
// complexity inherited from the Analysis. Fallback marks the substitute plan.
type Plan struct {
	Steps         string   `json:"steps"`
	RequiredTools []string `json:"requiredTools"`
	Complexity    string   `json:"complexity"`
	Fallback      bool     `json:"fallback,omitempty"`
}

// NewPlan builds a plan from generated step text and the analysis it inherits
// from.
func NewPlan(steps string, analysis *Analysis) *Plan {
	return &Plan{
		Steps:         steps,
		RequiredTools: append([]string(nil), analysis.RequiredTools...),
		Complexity:    analysis.Complexity,
	}
}

// FallbackPlan builds the substitute plan, still inheriting the analysis.
func FallbackPlan(analysis *Analysis) *Plan {
	p := NewPlan(FallbackPlanText, analysis)
	p.Fallback = true
	return p
}
