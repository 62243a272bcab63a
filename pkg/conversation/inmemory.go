// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

package conversation

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dirigent-ai/dirigent/pkg/errors"
)

// Store is the in-memory conversation store. Conversations live for the
// process lifetime only; turns are never trimmed or compacted.
// Safe for concurrent read/append.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{conversations: make(map[string]*Conversation)}
}

// GetOrCreate returns the conversation with the given id, creating it bound
// to agentID when absent. An empty id gets a generated one.
func (s *Store) GetOrCreate(id, agentID string) *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	conv, ok := s.conversations[id]
	if !ok {
		conv = &Conversation{
			ID:      id,
			AgentID: agentID,
			Created: time.Now().UTC(),
		}
		s.conversations[id] = conv
	}
	return snapshot(conv)
}

// Get returns a copy of the conversation or errors.CodeNotFound.
func (s *Store) Get(id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return nil, errors.New(errors.CodeNotFound, "conversation not found", nil).
			WithContext("conversation_id", id)
	}
	return snapshot(conv), nil
}

// Append adds turns to the conversation in order. The conversation is created
// on first append when missing so orphaned ids never drop history.
func (s *Store) Append(id, agentID string, turns ...Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		conv = &Conversation{ID: id, AgentID: agentID, Created: time.Now().UTC()}
		s.conversations[id] = conv
	}
	conv.Turns = append(conv.Turns, turns...)
}

// TurnCount returns the number of turns recorded for id.
func (s *Store) TurnCount(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return 0
	}
	return len(conv.Turns)
}

// List returns all conversation ids, sorted.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.conversations))
	for id := range s.conversations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func snapshot(conv *Conversation) *Conversation {
	cp := *conv
	cp.Turns = append([]Turn(nil), conv.Turns...)
	return &cp
}
