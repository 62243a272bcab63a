// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads Dirigent configuration from file and environment.
package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Log       LogConfig       `koanf:"log"`
	LLM       LLMConfig       `koanf:"llm"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	Tools     ToolsConfig     `koanf:"tools"`
	Memory    MemoryConfig    `koanf:"memory"`
	Audit     AuditConfig     `koanf:"audit"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type LLMConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
}

type PipelineConfig struct {
	// TimeoutSeconds bounds a single run end to end. Zero disables the deadline.
	TimeoutSeconds int `koanf:"timeout_seconds"`
	// RetryAttempts for completion calls inside a run.
	RetryAttempts int `koanf:"retry_attempts"`
}

type ToolsConfig struct {
	SearchEndpoint string `koanf:"search_endpoint"`
	SpeechEndpoint string `koanf:"speech_endpoint"`
	ImageEndpoint  string `koanf:"image_endpoint"`
	AllowExec      bool   `koanf:"allow_exec"`
}

type MemoryConfig struct {
	Enabled         bool   `koanf:"enabled"`
	QdrantAddr      string `koanf:"qdrant_addr"`
	Collection      string `koanf:"collection"`
	EmbedderBaseURL string `koanf:"embedder_base_url"`
	EmbedderModel   string `koanf:"embedder_model"`
	VectorSize      int    `koanf:"vector_size"`
}

type AuditConfig struct {
	// Path to the SQLite run-audit database. Empty keeps auditing in memory.
	Path string `koanf:"path"`
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("log.level", "info")
	k.Set("log.format", "text")
	k.Set("llm.base_url", "http://localhost:11434")
	k.Set("llm.model", "qwen2.5:7b-instruct")
	k.Set("pipeline.timeout_seconds", 120)
	k.Set("pipeline.retry_attempts", 2)
	k.Set("tools.allow_exec", false)
	k.Set("memory.enabled", false)
	k.Set("memory.qdrant_addr", "localhost:6334")
	k.Set("memory.collection", "dirigent_runs")
	k.Set("memory.embedder_base_url", "http://localhost:11434")
	k.Set("memory.embedder_model", "nomic-embed-text")
	k.Set("memory.vector_size", 768)
	k.Set("telemetry.exporter", "stdout")

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// 2. Load from ENV (DIRIGENT_LLM_MODEL -> llm.model)
	if err := k.Load(env.Provider("DIRIGENT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "DIRIGENT_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
