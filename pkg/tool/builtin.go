// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dirigent-ai/dirigent/pkg/core"
)

// Built-in capability names. These are the stable keys agents declare.
const (
	NameWebSearch   = "web_search"
	NameFileSearch  = "file_search"
	NameComputerUse = "computer_use"
	NameSpeech      = "text_to_speech"
	NameImage       = "image_generation"
)

// BuiltinConfig configures the built-in capabilities.
type BuiltinConfig struct {
	// SearchEndpoint is the web search upstream; the query is sent as ?q=.
	SearchEndpoint string
	// SpeechEndpoint receives POST {input} and returns synthesized audio info.
	SpeechEndpoint string
	// ImageEndpoint receives POST {prompt} and returns generated image info.
	ImageEndpoint string
	// AllowExec gates the computer_use capability.
	AllowExec bool
	// HTTPTimeout bounds upstream calls; default 30s.
	HTTPTimeout time.Duration
}

// RegisterBuiltins registers the standard capability set on the registry.
// Capabilities whose upstream is not configured still register; they report
// the missing configuration through a failed Result at invoke time.
func RegisterBuiltins(r *Registry, cfg BuiltinConfig) {
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	client := &http.Client{Timeout: cfg.HTTPTimeout}

	r.Register(&webSearch{endpoint: cfg.SearchEndpoint, client: client})
	r.Register(&fileSearch{})
	r.Register(&computerUse{allow: cfg.AllowExec})
	r.Register(&upstreamPost{
		name:     NameSpeech,
		endpoint: cfg.SpeechEndpoint,
		field:    "input",
		pick:     func(rc *core.RunContext) string { return rc.Input },
		client:   client,
	})
	r.Register(&upstreamPost{
		name:     NameImage,
		endpoint: cfg.ImageEndpoint,
		field:    "prompt",
		pick:     func(rc *core.RunContext) string { return rc.Prompt },
		client:   client,
	})
}

type webSearch struct {
	endpoint string
	client   *http.Client
}

func (w *webSearch) Name() string { return NameWebSearch }

func (w *webSearch) Invoke(ctx context.Context, rc *core.RunContext) Result {
	if rc == nil || strings.TrimSpace(rc.Query) == "" {
		return Fail(NameWebSearch, "web_search requires a query in the run context")
	}
	if w.endpoint == "" {
		return Fail(NameWebSearch, "web_search upstream is not configured")
	}

	u, err := url.Parse(w.endpoint)
	if err != nil {
		return Fail(NameWebSearch, fmt.Sprintf("invalid search endpoint: %v", err))
	}
	q := u.Query()
	q.Set("q", rc.Query)
	if rc.MaxResults > 0 {
		q.Set("max", fmt.Sprint(rc.MaxResults))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return Fail(NameWebSearch, err.Error())
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return Fail(NameWebSearch, fmt.Sprintf("search upstream failed: %v", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Fail(NameWebSearch, fmt.Sprintf("search upstream returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return Fail(NameWebSearch, err.Error())
	}
	return OK(NameWebSearch, string(body))
}

type fileSearch struct{}

func (f *fileSearch) Name() string { return NameFileSearch }

func (f *fileSearch) Invoke(_ context.Context, rc *core.RunContext) Result {
	if rc == nil || rc.FilePath == "" {
		return Fail(NameFileSearch, "file_search requires a filePath in the run context")
	}
	if strings.TrimSpace(rc.Query) == "" {
		return Fail(NameFileSearch, "file_search requires a query in the run context")
	}

	data, err := os.ReadFile(rc.FilePath)
	if err != nil {
		return Fail(NameFileSearch, fmt.Sprintf("cannot read %s: %v", rc.FilePath, err))
	}

	needle := strings.ToLower(rc.Query)
	var matches []string
	for i, line := range strings.Split(string(data), "\n") {
		if strings.Contains(strings.ToLower(line), needle) {
			matches = append(matches, fmt.Sprintf("%d: %s", i+1, strings.TrimSpace(line)))
			if rc.MaxResults > 0 && len(matches) >= rc.MaxResults {
				break
			}
		}
	}
	if len(matches) == 0 {
		return OK(NameFileSearch, fmt.Sprintf("no matches for %q in %s", rc.Query, rc.FilePath))
	}
	return OK(NameFileSearch, strings.Join(matches, "\n"))
}

type computerUse struct {
	allow bool
}

func (c *computerUse) Name() string { return NameComputerUse }

func (c *computerUse) Invoke(ctx context.Context, rc *core.RunContext) Result {
	command := ""
	if rc != nil {
		command = strings.TrimSpace(rc.Command)
		if command == "" {
			command = strings.TrimSpace(rc.Action)
		}
	}
	if command == "" {
		return Fail(NameComputerUse, "computer_use requires an action or command in the run context")
	}
	if !c.allow {
		return Fail(NameComputerUse, "command execution is disabled by configuration")
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return Result{
			Success: false,
			Tool:    NameComputerUse,
			Error:   fmt.Sprintf("command failed: %v", err),
			Output:  out.String(),
		}
	}
	return OK(NameComputerUse, out.String())
}

// upstreamPost covers the speech and image capabilities: both POST a single
// text field to a configured upstream and relay the response.
type upstreamPost struct {
	name     string
	endpoint string
	field    string
	pick     func(rc *core.RunContext) string
	client   *http.Client
}

func (u *upstreamPost) Name() string { return u.name }

func (u *upstreamPost) Invoke(ctx context.Context, rc *core.RunContext) Result {
	value := ""
	if rc != nil {
		value = strings.TrimSpace(u.pick(rc))
	}
	if value == "" {
		return Fail(u.name, fmt.Sprintf("%s requires a %s in the run context", u.name, u.field))
	}
	if u.endpoint == "" {
		return Fail(u.name, fmt.Sprintf("%s upstream is not configured", u.name))
	}

	payload, _ := json.Marshal(map[string]string{u.field: value})
	req, err := http.NewRequestWithContext(ctx, "POST", u.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Fail(u.name, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return Fail(u.name, fmt.Sprintf("%s upstream failed: %v", u.name, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Fail(u.name, fmt.Sprintf("%s upstream returned status %d", u.name, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return Fail(u.name, err.Error())
	}
	return OK(u.name, string(body))
}
