// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"time"
)

// EventType identifies a semantic event emitted by the pipeline or router.
type EventType string

const (
	EventRunStarted    EventType = "pipeline.run.started"
	EventRunCompleted  EventType = "pipeline.run.completed"
	EventRunFailed     EventType = "pipeline.run.failed"
	EventStageRecover  EventType = "pipeline.stage.recovered"
	EventToolDispatch  EventType = "pipeline.tool.dispatched"
	EventRouteDegraded EventType = "routing.degraded"
)

// Event captures a semantic streaming/logging event.
type Event struct {
	Type      EventType
	AgentID   string
	RunID     string
	Timestamp time.Time
	Payload   map[string]any
}

// EventEmitter receives semantic events.
type EventEmitter interface {
	Emit(ctx context.Context, event Event)
}

// NoopEventEmitter is a default no-op implementation.
type NoopEventEmitter struct{}

// Emit implements EventEmitter.
func (NoopEventEmitter) Emit(_ context.Context, _ Event) {}

// NewEvent builds a default event with timestamp.
func NewEvent(eventType EventType, agentID, runID string, payload map[string]any) Event {
	return Event{
		Type:      eventType,
		AgentID:   agentID,
		RunID:     runID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
