// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dirigent-ai/dirigent/pkg/core"
)

// MCPCaller abstracts MCP tool execution for adapters.
type MCPCaller interface {
	CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error)
}

// MCPAdapter wraps an MCP tool so remote servers can contribute capabilities
// to the registry. Arguments are drawn from the run context by the field
// names the tool's input schema declares.
type MCPAdapter struct {
	tool   mcp.Tool
	caller MCPCaller
}

// NewMCPAdapter builds a Capability backed by an MCP tool definition and caller.
func NewMCPAdapter(t mcp.Tool, caller MCPCaller) (*MCPAdapter, error) {
	if t.Name == "" {
		return nil, errors.New("mcp tool name is required")
	}
	if caller == nil {
		return nil, errors.New("mcp tool caller is required")
	}
	return &MCPAdapter{tool: t, caller: caller}, nil
}

// Name returns the MCP tool name.
func (a *MCPAdapter) Name() string { return a.tool.Name }

// Invoke maps the run context onto the tool's schema and calls the MCP server.
func (a *MCPAdapter) Invoke(ctx context.Context, rc *core.RunContext) Result {
	args := a.contextArgs(rc)

	for _, key := range a.tool.InputSchema.Required {
		if _, ok := args[key]; !ok {
			return Fail(a.tool.Name, fmt.Sprintf("missing required field %q", key))
		}
	}

	result, err := a.caller.CallTool(ctx, a.tool.Name, args)
	if err != nil {
		return Fail(a.tool.Name, err.Error())
	}
	if result == nil {
		return Fail(a.tool.Name, "mcp tool returned no result")
	}
	if result.IsError {
		return Fail(a.tool.Name, extractTextContent(result.Content))
	}
	return OK(a.tool.Name, extractTextContent(result.Content))
}

// contextArgs collects the schema's declared properties from the run context.
func (a *MCPAdapter) contextArgs(rc *core.RunContext) map[string]interface{} {
	args := make(map[string]interface{})
	if rc == nil {
		return args
	}
	for key := range a.tool.InputSchema.Properties {
		if v, ok := rc.Value(key); ok {
			args[key] = v
		}
	}
	// Unknown extra keys pass through untouched for forward compatibility.
	for key, v := range rc.Extra {
		if _, seen := args[key]; !seen {
			args[key] = v
		}
	}
	return args
}

func extractTextContent(items []mcp.Content) string {
	if len(items) == 0 {
		return ""
	}
	var parts []string
	for _, item := range items {
		switch content := item.(type) {
		case mcp.TextContent:
			parts = append(parts, content.Text)
		case *mcp.TextContent:
			parts = append(parts, content.Text)
		}
	}
	return strings.Join(parts, "\n")
}

var _ Capability = (*MCPAdapter)(nil)
