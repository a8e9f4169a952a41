package store

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestMemory_LoadMissingSession(t *testing.T) {
	s := NewMemory()

	messages, err := s.Load(context.Background(), "no-such-session")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("expected empty history, got %d messages", len(messages))
	}
}

func TestMemory_SaveIsIdempotentBySession(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	first := []Message{{Role: "user", Content: "hello"}}
	second := []Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi there"},
	}

	if _, err := s.Save(ctx, "session-1", first); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if _, err := s.Save(ctx, "session-1", second); err != nil {
		t.Fatalf("second save: %v", err)
	}

	messages, err := s.Load(ctx, "session-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected second save to win with 2 messages, got %d", len(messages))
	}
	if messages[1].Content != "hi there" {
		t.Errorf("expected overwritten content, got %q", messages[1].Content)
	}

	summaries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 1 {
		t.Errorf("expected a single record after repeated saves, got %d", len(summaries))
	}
}

func TestMemory_GetMissingSession(t *testing.T) {
	s := NewMemory()

	_, err := s.Get(context.Background(), "no-such-session")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemory_DeleteIsIdempotent(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	if err := s.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("deleting absent session should succeed, got %v", err)
	}

	if _, err := s.Save(ctx, "session-1", []Message{{Role: "user", Content: "hi"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Delete(ctx, "session-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "session-1"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemory_ListNewestFirst(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if _, err := s.Save(ctx, id, []Message{{Role: "user", Content: "from " + id}}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
		time.Sleep(time.Millisecond)
	}

	summaries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(summaries))
	}
	if summaries[0].SessionID != "c" || summaries[2].SessionID != "a" {
		t.Errorf("expected newest-first ordering c,b,a, got %s,%s,%s",
			summaries[0].SessionID, summaries[1].SessionID, summaries[2].SessionID)
	}
}

func TestMemory_SummaryPreviewAndCount(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	long := strings.Repeat("x", 150)
	messages := []Message{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: long},
	}
	if _, err := s.Save(ctx, "session-1", messages); err != nil {
		t.Fatalf("save: %v", err)
	}

	summaries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	sum := summaries[0]

	if sum.MessageCount != 2 {
		t.Errorf("expected message count 2, got %d", sum.MessageCount)
	}
	want := strings.Repeat("x", 100) + "..."
	if sum.Preview != want {
		t.Errorf("expected 100-char preview with ellipsis, got %q", sum.Preview)
	}
	if sum.LastMessage == nil || sum.LastMessage.Content != long {
		t.Errorf("expected last message to be the assistant reply")
	}
}

func TestMemory_Count(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	if n, err := s.Count(ctx); err != nil || n != 0 {
		t.Fatalf("expected empty store to count 0, got %d (%v)", n, err)
	}

	for _, id := range []string{"a", "b"} {
		if _, err := s.Save(ctx, id, []Message{{Role: "user", Content: "hi"}}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	// Re-saving an existing session does not add a conversation.
	if _, err := s.Save(ctx, "a", []Message{{Role: "user", Content: "again"}}); err != nil {
		t.Fatalf("save a: %v", err)
	}

	if n, err := s.Count(ctx); err != nil || n != 2 {
		t.Fatalf("expected 2 conversations, got %d (%v)", n, err)
	}

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n, err := s.Count(ctx); err != nil || n != 1 {
		t.Fatalf("expected 1 conversation after delete, got %d (%v)", n, err)
	}
}

func TestMemory_UpdateLeadFields(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	if _, err := s.Save(ctx, "session-1", []Message{{Role: "user", Content: "hi"}}); err != nil {
		t.Fatalf("save: %v", err)
	}

	analysis := LeadAnalysis{
		CustomerName:  "Ada Lovelace",
		CustomerEmail: "ada@example.com",
		CustomerPhone: "+44 20 7946 0000",
		LeadQuality:   "good",
	}
	conv, err := s.UpdateLeadFields(ctx, "session-1", analysis)
	if err != nil {
		t.Fatalf("update lead fields: %v", err)
	}

	if conv.Analysis == nil || conv.Analysis.CustomerEmail != "ada@example.com" {
		t.Errorf("expected analysis blob to be stored, got %+v", conv.Analysis)
	}
	if conv.LeadQuality != "good" || conv.CustomerEmail != "ada@example.com" ||
		conv.CustomerName != "Ada Lovelace" || conv.CustomerPhone != "+44 20 7946 0000" {
		t.Errorf("expected denormalized fields to match analysis, got %+v", conv)
	}

	// Re-analysis overwrites, never merges.
	conv, err = s.UpdateLeadFields(ctx, "session-1", LeadAnalysis{LeadQuality: "spam"})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if conv.LeadQuality != "spam" || conv.CustomerEmail != "" {
		t.Errorf("expected full overwrite, got %+v", conv)
	}
}

func TestMemory_UpdateLeadFieldsMissingSession(t *testing.T) {
	s := NewMemory()

	_, err := s.UpdateLeadFields(context.Background(), "no-such-session", LeadAnalysis{LeadQuality: "good"})
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPreview_Truncation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"short", "hello", "hello..."},
		{"exact", strings.Repeat("a", 100), strings.Repeat("a", 100) + "..."},
		{"long", strings.Repeat("a", 101), strings.Repeat("a", 100) + "..."},
		{"multibyte", strings.Repeat("é", 120), strings.Repeat("é", 100) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := preview(tt.content); got != tt.want {
				t.Errorf("preview(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), Config{Driver: "cassandra"})
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestNew_MemoryDriver(t *testing.T) {
	s, err := New(context.Background(), Config{Driver: DriverMemory})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("memory store ping: %v", err)
	}
}
