// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorFormat(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := New(CodeUpstream, "completion call failed", cause)

	msg := err.Error()
	if !strings.Contains(msg, "UPSTREAM_ERROR") {
		t.Errorf("expected code in message, got %q", msg)
	}
	if !strings.Contains(msg, "connection refused") {
		t.Errorf("expected cause in message, got %q", msg)
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := New(CodeToolFailure, "tool failed", cause)

	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}

	var de *DirigentError
	if !stderrors.As(err, &de) {
		t.Fatal("expected errors.As to match *DirigentError")
	}
	if de.Code != CodeToolFailure {
		t.Errorf("expected CodeToolFailure, got %s", de.Code)
	}
}

func TestWithContextChaining(t *testing.T) {
	err := New(CodeNotFound, "agent not found", nil).
		WithContext("agent_id", "a-123").
		WithRecoverable(false)

	if err.Context["agent_id"] != "a-123" {
		t.Errorf("expected context value, got %v", err.Context["agent_id"])
	}
	if err.Recoverable {
		t.Error("expected not recoverable")
	}
	if err.StatusCode != 404 {
		t.Errorf("expected 404, got %d", err.StatusCode)
	}
}

func TestAsWrapsUnknown(t *testing.T) {
	plain := stderrors.New("plain")
	de := As(plain)
	if de.Code != CodeInternal {
		t.Errorf("expected internal code for plain error, got %s", de.Code)
	}
	if As(nil) != nil {
		t.Error("expected nil for nil error")
	}
}

func TestIsCode(t *testing.T) {
	err := New(CodeTimeout, "deadline exceeded", nil)
	if !IsCode(err, CodeTimeout) {
		t.Error("expected IsCode to match")
	}
	if IsCode(err, CodeNotFound) {
		t.Error("expected IsCode mismatch")
	}
	if IsCode(stderrors.New("x"), CodeTimeout) {
		t.Error("expected IsCode false for plain error")
	}
}
