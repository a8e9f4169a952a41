package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func completionBody(text string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{
				"message":       map[string]any{"role": "assistant", "content": text},
				"finish_reason": "stop",
			},
		},
	}
}

func TestComplete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("expected Bearer test-key, got %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected Content-Type application/json, got %q", r.Header.Get("Content-Type"))
		}

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("expected model test-model, got %q", req.Model)
		}
		if req.Temperature != 0.7 {
			t.Errorf("expected temperature 0.7, got %f", req.Temperature)
		}
		if req.MaxTokens != 100 {
			t.Errorf("expected max_tokens 100, got %d", req.MaxTokens)
		}
		if len(req.Messages) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(req.Messages))
		}
		if req.Messages[0].Role != "system" || req.Messages[0].Content != "you are a test" {
			t.Errorf("expected system message first, got %+v", req.Messages[0])
		}
		if req.Messages[1].Content != "hello" {
			t.Errorf("unexpected user message: %+v", req.Messages[1])
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(completionBody("world"))
	}))
	defer server.Close()

	c := NewClient("test-key", "test-model")
	c.SetTestTransport(server.URL)

	result, err := c.Complete(context.Background(), "you are a test", []Message{{Role: "user", Content: "hello"}}, 0.7, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "world" {
		t.Errorf("expected 'world', got %q", result)
	}
}

func TestComplete_NoSystemMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("expected only the user message, got %+v", req.Messages)
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(completionBody("ok"))
	}))
	defer server.Close()

	c := NewClient("test-key", "test-model")
	c.SetTestTransport(server.URL)

	if _, err := c.Complete(context.Background(), "", []Message{{Role: "user", Content: "hi"}}, 0, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestComplete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"type":    "insufficient_quota",
				"message": "You exceeded your current quota",
			},
		})
	}))
	defer server.Close()

	c := NewClient("test-key", "test-model")
	c.SetTestTransport(server.URL)

	_, err := c.Complete(context.Background(), "", []Message{{Role: "user", Content: "hi"}}, 0, 100)
	if err == nil {
		t.Fatal("expected error for API error response")
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	c := NewClient("test-key", "test-model")
	c.SetTestTransport(server.URL)

	_, err := c.Complete(context.Background(), "", []Message{{Role: "user", Content: "hi"}}, 0, 100)
	if err == nil {
		t.Fatal("expected error for empty choices response")
	}
}
