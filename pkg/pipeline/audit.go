// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"sync"
	"time"
)

// RunRecord is the diagnostic trail of one pipeline run. It exists for
// operator inspection only; the conversation store remains the record of
// truth for history.
type RunRecord struct {
	RunID          string
	AgentID        string
	ConversationID string
	Task           string
	Status         string // completed, failed, degraded
	Response       string
	Error          string
	Degraded       bool
	StartedAt      time.Time
	FinishedAt     time.Time
}

// AuditStore persists run records.
type AuditStore interface {
	Record(ctx context.Context, rec RunRecord) error
	List(ctx context.Context, filter AuditFilter) ([]RunRecord, error)
}

// AuditFilter limits run record queries.
type AuditFilter struct {
	AgentID string
	Status  string
	Limit   int
}

// MemoryAuditStore keeps run records in memory.
type MemoryAuditStore struct {
	mu      sync.Mutex
	records []RunRecord
}

// NewMemoryAuditStore returns an in-memory audit store.
func NewMemoryAuditStore() *MemoryAuditStore {
	return &MemoryAuditStore{}
}

// Record appends a run record.
func (s *MemoryAuditStore) Record(_ context.Context, rec RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// List returns filtered run records in insertion order.
func (s *MemoryAuditStore) List(_ context.Context, filter AuditFilter) ([]RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RunRecord, 0, len(s.records))
	for _, rec := range s.records {
		if filter.AgentID != "" && rec.AgentID != filter.AgentID {
			continue
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		out = append(out, rec)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// normalizeAuditTime ensures timestamps are stored in UTC.
func normalizeAuditTime(value time.Time) time.Time {
	if value.IsZero() {
		return value
	}
	return value.UTC()
}
