// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"strings"
	"testing"
)

func TestRunContextValue(t *testing.T) {
	rc := &RunContext{
		Query:    "weather in Madrid",
		FilePath: "/tmp/report.txt",
		Extra:    map[string]any{"voice": "alloy"},
	}

	if v, ok := rc.Value("query"); !ok || v != "weather in Madrid" {
		t.Errorf("unexpected query value: %v %v", v, ok)
	}
	if _, ok := rc.Value("command"); ok {
		t.Error("expected empty command to report absent")
	}
	if v, ok := rc.Value("voice"); !ok || v != "alloy" {
		t.Errorf("expected extra key passthrough, got %v %v", v, ok)
	}
}

func TestRunContextSerialize(t *testing.T) {
	var nilCtx *RunContext
	if nilCtx.Serialize() != "{}" {
		t.Errorf("nil context should serialize to {}, got %s", nilCtx.Serialize())
	}

	rc := &RunContext{Query: "q1", MaxResults: 3}
	out := rc.Serialize()
	if !strings.Contains(out, `"query":"q1"`) || !strings.Contains(out, `"maxResults":3`) {
		t.Errorf("unexpected serialization: %s", out)
	}
}

func TestEnsureRunID(t *testing.T) {
	ctx, id := EnsureRunID(context.Background())
	if id == "" {
		t.Fatal("expected generated run id")
	}
	ctx2, id2 := EnsureRunID(ctx)
	if id2 != id {
		t.Errorf("expected stable run id, got %s vs %s", id, id2)
	}
	if ctx2 != ctx {
		t.Error("expected unchanged context when id already present")
	}
}
