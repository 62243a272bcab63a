// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

// dirigent runs a task through the orchestration pipeline from the command
// line: it wires the registries, tools, completion provider, and fallback
// router from configuration, executes one run, and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dirigent-ai/dirigent/pkg/config"
	"github.com/dirigent-ai/dirigent/pkg/conversation"
	"github.com/dirigent-ai/dirigent/pkg/core"
	"github.com/dirigent-ai/dirigent/pkg/llm"
	"github.com/dirigent-ai/dirigent/pkg/mcp"
	"github.com/dirigent-ai/dirigent/pkg/memory"
	memollama "github.com/dirigent-ai/dirigent/pkg/memory/ollama"
	"github.com/dirigent-ai/dirigent/pkg/memory/qdrant"
	"github.com/dirigent-ai/dirigent/pkg/pipeline"
	"github.com/dirigent-ai/dirigent/pkg/registry"
	"github.com/dirigent-ai/dirigent/pkg/resilience"
	"github.com/dirigent-ai/dirigent/pkg/routing"
	"github.com/dirigent-ai/dirigent/pkg/telemetry"
	"github.com/dirigent-ai/dirigent/pkg/tool"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dirigent: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath     = flag.String("config", "", "path to a YAML config file")
		agentName      = flag.String("agent", "assistant", "agent name")
		agentTools     = flag.String("tools", "web_search,file_search", "comma-separated declared tool names")
		conversationID = flag.String("conversation", "", "conversation id to continue")
		query          = flag.String("query", "", "query passed to tools through the run context")
		filePath       = flag.String("file", "", "file path passed to tools through the run context")
		withMemory     = flag.Bool("memory", false, "enable vector memory for the agent")
		mcpServer      = flag.String("mcp", "", "command line of an MCP server to register tools from")
		listOnly       = flag.Bool("list", false, "print registered agents and tools instead of running a task")
	)
	flag.Parse()

	task := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if task == "" && !*listOnly {
		return fmt.Errorf("usage: dirigent [flags] <task text>")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	shutdown, err := telemetry.InitWithConfig("dirigent", "0.1.0", telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider := llm.NewOllama(cfg.LLM.BaseURL, cfg.LLM.Model)

	tools := tool.NewRegistry()
	tool.RegisterBuiltins(tools, tool.BuiltinConfig{
		SearchEndpoint: cfg.Tools.SearchEndpoint,
		SpeechEndpoint: cfg.Tools.SpeechEndpoint,
		ImageEndpoint:  cfg.Tools.ImageEndpoint,
		AllowExec:      cfg.Tools.AllowExec,
	})

	if parts := strings.Fields(*mcpServer); len(parts) > 0 {
		client, err := mcp.NewStdioClient(parts[0], parts[1:])
		if err != nil {
			return fmt.Errorf("connect mcp server: %w", err)
		}
		defer client.Close()
		n, err := client.RegisterTools(ctx, tools)
		if err != nil {
			return fmt.Errorf("register mcp tools: %w", err)
		}
		logger.Info("mcp tools registered", "count", n)
	}

	agents := registry.New()
	conversations := conversation.NewStore()
	router := routing.New(provider,
		routing.WithModel(cfg.LLM.Model),
		routing.WithLogger(logger),
	)

	metrics, err := telemetry.NewPipelineMetrics()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	retry := resilience.DefaultRetryConfig()
	if cfg.Pipeline.RetryAttempts > 0 {
		retry.MaxAttempts = cfg.Pipeline.RetryAttempts
	}

	opts := []pipeline.Option{
		pipeline.WithRouter(router),
		pipeline.WithModel(cfg.LLM.Model),
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(metrics),
		pipeline.WithTimeout(time.Duration(cfg.Pipeline.TimeoutSeconds) * time.Second),
		pipeline.WithRetry(retry),
	}

	if cfg.Audit.Path != "" {
		audit, err := pipeline.OpenSQLiteAuditStore(cfg.Audit.Path)
		if err != nil {
			return fmt.Errorf("open audit store: %w", err)
		}
		defer audit.Close()
		opts = append(opts, pipeline.WithAuditStore(audit))
	}

	if cfg.Memory.Enabled {
		store, err := qdrant.New(cfg.Memory.QdrantAddr)
		if err != nil {
			return fmt.Errorf("connect qdrant: %w", err)
		}
		embedder := memollama.NewEmbedder(cfg.Memory.EmbedderBaseURL, cfg.Memory.EmbedderModel)
		recaller := memory.NewRecaller(store, embedder, cfg.Memory.Collection, uint64(cfg.Memory.VectorSize))
		if err := recaller.Init(ctx); err != nil {
			return fmt.Errorf("init memory collection: %w", err)
		}
		opts = append(opts, pipeline.WithRecaller(recaller))
	}

	p := pipeline.New(agents, tools, conversations, provider, opts...)

	agent, err := agents.Create(registry.Definition{
		Name:   *agentName,
		Tools:  splitTools(*agentTools),
		Memory: *withMemory,
	})
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}

	if *listOnly {
		out, err := json.MarshalIndent(p.Overview(), "", "  ")
		if err != nil {
			return fmt.Errorf("encode overview: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	rc := &core.RunContext{
		ConversationID: *conversationID,
		Query:          *query,
		FilePath:       *filePath,
	}
	result := p.Run(ctx, agent.ID, task, rc)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(out))

	if !result.Success {
		os.Exit(1)
	}
	return nil
}

func splitTools(s string) []string {
	var out []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
