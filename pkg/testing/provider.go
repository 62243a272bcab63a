// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

// Package testing provides utilities for testing Dirigent pipelines:
// a scripted completion provider with request capture plus assertion helpers.
package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/dirigent-ai/dirigent/pkg/llm"
)

// ScenarioProvider is an enhanced mock completion provider. It supports
// scripted responses, conditional matching, and request capture.
type ScenarioProvider struct {
	mu           sync.Mutex
	responses    []ScriptedResponse
	currentIndex int
	requests     []llm.Request
	defaultError error
	onComplete   func(req llm.Request) (*llm.Completion, error)
}

// ScriptedResponse defines a response for the scenario provider.
type ScriptedResponse struct {
	Content string
	Error   error
	Usage   llm.Usage
	// Condition allows conditional responses based on the request.
	Condition func(req llm.Request) bool
}

// NewScenarioProvider creates a new scenario provider.
func NewScenarioProvider() *ScenarioProvider {
	return &ScenarioProvider{
		responses: make([]ScriptedResponse, 0),
		requests:  make([]llm.Request, 0),
	}
}

// AddResponse queues a response to be returned.
func (p *ScenarioProvider) AddResponse(content string) *ScenarioProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, ScriptedResponse{Content: content})
	return p
}

// AddErrorResponse queues an error response.
func (p *ScenarioProvider) AddErrorResponse(err error) *ScenarioProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, ScriptedResponse{Error: err})
	return p
}

// AddScriptedResponse adds a fully configured response.
func (p *ScenarioProvider) AddScriptedResponse(resp ScriptedResponse) *ScenarioProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, resp)
	return p
}

// WithDefaultError sets the error to return when no responses are queued.
func (p *ScenarioProvider) WithDefaultError(err error) *ScenarioProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.defaultError = err
	return p
}

// WithCompleteFunc sets a custom function for handling completion requests.
func (p *ScenarioProvider) WithCompleteFunc(fn func(req llm.Request) (*llm.Completion, error)) *ScenarioProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onComplete = fn
	return p
}

// Complete implements llm.Provider.
func (p *ScenarioProvider) Complete(_ context.Context, req llm.Request) (*llm.Completion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)

	if p.onComplete != nil {
		return p.onComplete(req)
	}

	if p.currentIndex >= len(p.responses) {
		if p.defaultError != nil {
			return nil, p.defaultError
		}
		return nil, fmt.Errorf("no more scripted responses (call %d)", p.currentIndex+1)
	}

	resp := p.responses[p.currentIndex]
	p.currentIndex++

	if resp.Condition != nil && !resp.Condition(req) {
		for p.currentIndex < len(p.responses) {
			resp = p.responses[p.currentIndex]
			p.currentIndex++
			if resp.Condition == nil || resp.Condition(req) {
				break
			}
		}
	}

	if resp.Error != nil {
		return nil, resp.Error
	}

	return &llm.Completion{Content: resp.Content, Usage: resp.Usage}, nil
}

// Requests returns all captured requests.
func (p *ScenarioProvider) Requests() []llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]llm.Request, len(p.requests))
	copy(result, p.requests)
	return result
}

// LastRequest returns the most recent request.
func (p *ScenarioProvider) LastRequest() *llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return nil
	}
	req := p.requests[len(p.requests)-1]
	return &req
}

// CallCount returns the number of Complete calls made.
func (p *ScenarioProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// Reset clears captured requests and rewinds the script.
func (p *ScenarioProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentIndex = 0
	p.requests = p.requests[:0]
}
