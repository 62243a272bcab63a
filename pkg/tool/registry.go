// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dirigent-ai/dirigent/pkg/core"
)

// Registry maps stable string keys to capabilities. Adding a tool means
// registering a new implementer; the orchestrator never branches on name.
type Registry struct {
	mu           sync.RWMutex
	capabilities map[string]Capability
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{capabilities: make(map[string]Capability)}
}

// Register adds a capability under its own name. Re-registering a name
// replaces the previous capability.
func (r *Registry) Register(c Capability) {
	if c == nil || c.Name() == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capabilities[c.Name()] = c
}

// Lookup returns the capability registered under name, if any.
func (r *Registry) Lookup(name string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.capabilities[name]
	return c, ok
}

// Names returns the sorted registered tool names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.capabilities))
	for name := range r.capabilities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch invokes the named capability with the shared run context. It never
// panics past this boundary: unexpected panics become a failed Result. A
// missing capability is reported the same way; callers that want skip-silently
// semantics check Lookup first.
func (r *Registry) Dispatch(ctx context.Context, name string, rc *core.RunContext) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			res = Fail(name, fmt.Sprintf("tool panicked: %v", rec))
		}
	}()

	c, ok := r.Lookup(name)
	if !ok {
		return Fail(name, fmt.Sprintf("no capability registered under %q", name))
	}

	res = c.Invoke(ctx, rc)
	if res.Tool == "" {
		res.Tool = name
	}
	return res
}
