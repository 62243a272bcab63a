// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	payloadAgentID  = "agent_id"
	payloadTask     = "task"
	payloadResponse = "response"

	defaultScoreThreshold = 0.55
)

// Recaller stores completed runs for an agent and retrieves prior runs
// relevant to a new task. Agents that have not enabled memory never touch it.
type Recaller struct {
	store      VectorStore
	embedder   Embedder
	collection string
	vectorSize uint64
}

// NewRecaller wires a vector store and embedder into a recall layer.
func NewRecaller(store VectorStore, embedder Embedder, collection string, vectorSize uint64) *Recaller {
	return &Recaller{
		store:      store,
		embedder:   embedder,
		collection: collection,
		vectorSize: vectorSize,
	}
}

// Init ensures the backing collection exists.
func (r *Recaller) Init(ctx context.Context) error {
	return r.store.EnsureCollection(ctx, r.collection, r.vectorSize)
}

// Remember embeds the task and stores it with the agent's response.
func (r *Recaller) Remember(ctx context.Context, agentID, task, response string) error {
	vec, err := r.embedder.Embed(ctx, task)
	if err != nil {
		return fmt.Errorf("embed task: %w", err)
	}
	point := Point{
		ID:     uuid.NewString(),
		Vector: vec,
		Payload: map[string]interface{}{
			payloadAgentID:  agentID,
			payloadTask:     task,
			payloadResponse: response,
		},
		Timestamp: time.Now().Unix(),
	}
	return r.store.Upsert(ctx, r.collection, []Point{point})
}

// Recollection is one prior run retrieved for a new task.
type Recollection struct {
	Task     string
	Response string
	Score    float32
}

// Recall returns up to limit prior runs for the agent, most similar first.
// Hits from other agents are filtered out after the vector search.
func (r *Recaller) Recall(ctx context.Context, agentID, task string, limit int) ([]Recollection, error) {
	if limit <= 0 {
		limit = 3
	}
	vec, err := r.embedder.Embed(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("embed task: %w", err)
	}

	// Over-fetch so the agent filter still leaves enough hits.
	results, err := r.store.Search(ctx, r.collection, vec, limit*4, defaultScoreThreshold)
	if err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}

	var out []Recollection
	for _, res := range results {
		if id, _ := res.Point.Payload[payloadAgentID].(string); id != agentID {
			continue
		}
		prevTask, _ := res.Point.Payload[payloadTask].(string)
		prevResp, _ := res.Point.Payload[payloadResponse].(string)
		out = append(out, Recollection{Task: prevTask, Response: prevResp, Score: res.Score})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
