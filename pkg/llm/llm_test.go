// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	derrors "github.com/dirigent-ai/dirigent/pkg/errors"
)

func TestScriptedMockPopsInOrder(t *testing.T) {
	mock := NewScriptedMockProvider("first", "second")

	resp, err := mock.Complete(context.Background(), Request{})
	if err != nil || resp.Content != "first" {
		t.Fatalf("unexpected first response: %v %v", resp, err)
	}
	resp, err = mock.Complete(context.Background(), Request{})
	if err != nil || resp.Content != "second" {
		t.Fatalf("unexpected second response: %v %v", resp, err)
	}
	if _, err := mock.Complete(context.Background(), Request{}); err == nil {
		t.Error("expected error when responses exhausted")
	}
	if mock.CallCount != 3 {
		t.Errorf("expected 3 calls, got %d", mock.CallCount)
	}
}

func TestScriptedMockError(t *testing.T) {
	mock := NewScriptedMockProvider("unused")
	mock.Err = stderrors.New("down")

	if _, err := mock.Complete(context.Background(), Request{}); err == nil {
		t.Error("expected configured error")
	}
}

func TestOllamaCompleteMapsResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"message":{"role":"assistant","content":"hi"},"done":true,"eval_count":4,"prompt_eval_count":6}`))
	}))
	defer srv.Close()

	p := NewOllama(srv.URL, "test-model")
	resp, err := p.Complete(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Content != "hi" {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 10 {
		t.Errorf("unexpected usage %+v", resp.Usage)
	}
}

func TestOllamaCompleteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOllama(srv.URL, "test-model")
	_, err := p.Complete(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error on 500")
	}
	if !derrors.IsCode(err, derrors.CodeUpstream) {
		t.Errorf("expected upstream error code, got %v", err)
	}
}
