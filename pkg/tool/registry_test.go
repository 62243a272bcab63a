// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dirigent-ai/dirigent/pkg/core"
)

func TestRegistryRegisterAndNames(t *testing.T) {
	r := NewRegistry()
	r.Register(Func{ToolName: "b_tool", Fn: func(context.Context, *core.RunContext) Result { return OK("b_tool", "b") }})
	r.Register(Func{ToolName: "a_tool", Fn: func(context.Context, *core.RunContext) Result { return OK("a_tool", "a") }})

	names := r.Names()
	if len(names) != 2 || names[0] != "a_tool" || names[1] != "b_tool" {
		t.Errorf("unexpected names: %v", names)
	}
}

func TestDispatchUnknownToolFails(t *testing.T) {
	r := NewRegistry()
	res := r.Dispatch(context.Background(), "missing", &core.RunContext{})
	if res.Success {
		t.Error("expected failure for unknown tool")
	}
	if res.Tool != "missing" {
		t.Errorf("expected tool name in result, got %q", res.Tool)
	}
}

func TestDispatchRecoversPanic(t *testing.T) {
	r := NewRegistry()
	r.Register(Func{ToolName: "boom", Fn: func(context.Context, *core.RunContext) Result {
		panic("unexpected")
	}})

	res := r.Dispatch(context.Background(), "boom", nil)
	if res.Success {
		t.Error("expected failed result from panicking tool")
	}
	if !strings.Contains(res.Error, "panicked") {
		t.Errorf("expected panic note in error, got %q", res.Error)
	}
}

func TestFileSearchRequiresContextFields(t *testing.T) {
	fs := &fileSearch{}

	res := fs.Invoke(context.Background(), &core.RunContext{Query: "x"})
	if res.Success || !strings.Contains(res.Error, "filePath") {
		t.Errorf("expected filePath requirement, got %+v", res)
	}

	res = fs.Invoke(context.Background(), &core.RunContext{FilePath: "/tmp/x"})
	if res.Success || !strings.Contains(res.Error, "query") {
		t.Errorf("expected query requirement, got %+v", res)
	}
}

func TestFileSearchFindsMatches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	os.WriteFile(path, []byte("alpha\nthe Needle here\nomega\nanother needle\n"), 0o644)

	fs := &fileSearch{}
	res := fs.Invoke(context.Background(), &core.RunContext{FilePath: path, Query: "needle"})
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if !strings.Contains(res.Output, "2: the Needle here") || !strings.Contains(res.Output, "4: another needle") {
		t.Errorf("unexpected output: %q", res.Output)
	}

	res = fs.Invoke(context.Background(), &core.RunContext{FilePath: path, Query: "needle", MaxResults: 1})
	if strings.Count(res.Output, "\n") != 0 {
		t.Errorf("expected single match with MaxResults=1, got %q", res.Output)
	}
}

func TestComputerUseDisabled(t *testing.T) {
	c := &computerUse{allow: false}
	res := c.Invoke(context.Background(), &core.RunContext{Command: "echo hi"})
	if res.Success || !strings.Contains(res.Error, "disabled") {
		t.Errorf("expected disabled failure, got %+v", res)
	}
}

func TestComputerUseRunsCommand(t *testing.T) {
	c := &computerUse{allow: true}
	res := c.Invoke(context.Background(), &core.RunContext{Command: "echo hello"})
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if strings.TrimSpace(res.Output) != "hello" {
		t.Errorf("unexpected output %q", res.Output)
	}
}

func TestWebSearchRequiresQuery(t *testing.T) {
	w := &webSearch{}
	res := w.Invoke(context.Background(), &core.RunContext{})
	if res.Success || !strings.Contains(res.Error, "query") {
		t.Errorf("expected query requirement, got %+v", res)
	}
}
