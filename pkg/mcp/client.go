// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

// Package mcp connects Dirigent to Model Context Protocol servers so their
// tools can be registered as pipeline capabilities.
package mcp

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dirigent-ai/dirigent/pkg/errors"
	"github.com/dirigent-ai/dirigent/pkg/resilience"
	"github.com/dirigent-ai/dirigent/pkg/tool"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultCacheTTL = 30 * time.Second
)

// Transport is the narrow slice of an MCP client the wrapper needs.
// *client.Client satisfies it.
type Transport interface {
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// Client wraps an MCP transport with per-request timeouts, retry, and a
// short-lived tool discovery cache.
type Client struct {
	transport Transport
	timeout   time.Duration
	retry     resilience.RetryConfig
	cacheTTL  time.Duration

	mu          sync.Mutex
	toolsCache  []mcp.Tool
	cacheExpiry time.Time
}

// ClientOption customizes the client wrapper.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRetry sets the retry policy for server calls.
func WithRetry(cfg resilience.RetryConfig) ClientOption {
	return func(c *Client) { c.retry = cfg }
}

// WithToolCacheTTL sets the tool discovery cache TTL. Zero disables caching.
func WithToolCacheTTL(ttl time.Duration) ClientOption {
	return func(c *Client) {
		if ttl >= 0 {
			c.cacheTTL = ttl
		}
	}
}

// NewClient wraps an existing transport.
func NewClient(transport Transport, opts ...ClientOption) *Client {
	c := &Client{
		transport: transport,
		timeout:   defaultTimeout,
		retry: resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2.0,
			IsRecoverable: func(err error) bool {
				// Context expiry is final; everything else gets retried.
				return !stderrors.Is(err, context.Canceled) &&
					!stderrors.Is(err, context.DeadlineExceeded)
			},
		},
		cacheTTL: defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewStdioClient starts an MCP server subprocess and connects over stdio.
func NewStdioClient(command string, args []string, opts ...ClientOption) (*Client, error) {
	stdioClient, err := client.NewStdioMCPClient(command, nil, args...)
	if err != nil {
		return nil, errors.New(errors.CodeUpstream, "start mcp server", err)
	}
	if err := stdioClient.Start(context.Background()); err != nil {
		return nil, errors.New(errors.CodeUpstream, "start mcp transport", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "dirigent",
		Version: "0.1.0",
	}
	if _, err := stdioClient.Initialize(ctx, initRequest); err != nil {
		return nil, errors.New(errors.CodeUpstream, "initialize mcp session", err)
	}

	return NewClient(stdioClient, opts...), nil
}

// ListTools retrieves the tools available on the server.
func (c *Client) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	if cached := c.cachedTools(); cached != nil {
		return cached, nil
	}

	var resp *mcp.ListToolsResult
	err := c.retry.Do(ctx, func() error {
		reqCtx, cancel := c.withTimeout(ctx)
		defer cancel()
		res, err := c.transport.ListTools(reqCtx, mcp.ListToolsRequest{})
		if err != nil {
			return err
		}
		resp = res
		return nil
	})
	if err != nil {
		return nil, errors.New(errors.CodeUpstream, "list mcp tools", err).WithRecoverable(true)
	}

	c.storeTools(resp.Tools)
	return resp.Tools, nil
}

// CallTool executes a tool on the server. It satisfies tool.MCPCaller.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	var resp *mcp.CallToolResult
	err := c.retry.Do(ctx, func() error {
		reqCtx, cancel := c.withTimeout(ctx)
		defer cancel()
		res, err := c.transport.CallTool(reqCtx, req)
		if err != nil {
			return err
		}
		resp = res
		return nil
	})
	if err != nil {
		return nil, errors.New(errors.CodeUpstream, "call mcp tool", err).
			WithContext("tool", name).
			WithRecoverable(true)
	}
	return resp, nil
}

// Close closes the underlying transport.
func (c *Client) Close() error {
	return c.transport.Close()
}

// RegisterTools discovers the server's tools and registers each one on the
// capability registry. Returns the number of tools registered.
func (c *Client) RegisterTools(ctx context.Context, registry *tool.Registry) (int, error) {
	tools, err := c.ListTools(ctx)
	if err != nil {
		return 0, err
	}

	registered := 0
	for _, t := range tools {
		adapter, err := tool.NewMCPAdapter(t, c)
		if err != nil {
			continue
		}
		registry.Register(adapter)
		registered++
	}
	return registered, nil
}

func (c *Client) cachedTools() []mcp.Tool {
	if c.cacheTTL == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.toolsCache) == 0 || time.Now().After(c.cacheExpiry) {
		return nil
	}
	out := make([]mcp.Tool, len(c.toolsCache))
	copy(out, c.toolsCache)
	return out
}

func (c *Client) storeTools(tools []mcp.Tool) {
	if c.cacheTTL == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toolsCache = make([]mcp.Tool, len(tools))
	copy(c.toolsCache, tools)
	c.cacheExpiry = time.Now().Add(c.cacheTTL)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

var _ tool.MCPCaller = (*Client)(nil)
