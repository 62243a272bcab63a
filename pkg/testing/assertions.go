// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

package testing

import (
	"strings"
	"testing"

	"github.com/dirigent-ai/dirigent/pkg/llm"
)

// RequireNoError fails the test immediately if err is not nil.
func RequireNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", msg, err)
	}
}

// RequireEqual fails the test immediately if values are not equal.
func RequireEqual(t *testing.T, expected, actual any, msg string) {
	t.Helper()
	if expected != actual {
		t.Fatalf("%s: expected %v, got %v", msg, expected, actual)
	}
}

// RequestAssertions provides assertion helpers for captured completion requests.
type RequestAssertions struct {
	t   *testing.T
	req *llm.Request
}

// AssertRequest creates request assertions for the given request.
func AssertRequest(t *testing.T, req *llm.Request) *RequestAssertions {
	t.Helper()
	if req == nil {
		t.Fatal("request is nil")
	}
	return &RequestAssertions{t: t, req: req}
}

// HasMessageCount asserts the number of messages in the request.
func (r *RequestAssertions) HasMessageCount(count int) *RequestAssertions {
	r.t.Helper()
	if len(r.req.Messages) != count {
		r.t.Errorf("expected %d messages, got %d", count, len(r.req.Messages))
	}
	return r
}

// HasSystemMessage asserts a system message exists containing the substring.
func (r *RequestAssertions) HasSystemMessage(contains string) *RequestAssertions {
	r.t.Helper()
	for _, msg := range r.req.Messages {
		if msg.Role == llm.RoleSystem && strings.Contains(msg.Content, contains) {
			return r
		}
	}
	r.t.Errorf("no system message containing %q found", contains)
	return r
}

// HasUserMessage asserts a user message exists containing the substring.
func (r *RequestAssertions) HasUserMessage(contains string) *RequestAssertions {
	r.t.Helper()
	for _, msg := range r.req.Messages {
		if msg.Role == llm.RoleUser && strings.Contains(msg.Content, contains) {
			return r
		}
	}
	r.t.Errorf("no user message containing %q found", contains)
	return r
}

// HasModel asserts the request names the given model.
func (r *RequestAssertions) HasModel(model string) *RequestAssertions {
	r.t.Helper()
	if r.req.Options.Model != model {
		r.t.Errorf("expected model %q, got %q", model, r.req.Options.Model)
	}
	return r
}
