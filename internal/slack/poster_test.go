package slack

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lehoanglam20000/ai-agent/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFormatLeadMessage_FullLead(t *testing.T) {
	analysis := store.LeadAnalysis{
		CustomerName:         "Ada Lovelace",
		CustomerEmail:        "ada@example.com",
		CustomerPhone:        "+44 20 7946 0000",
		CustomerIndustry:     "bakery",
		CustomerProblem:      "needs online booking",
		CustomerAvailability: "weekday mornings",
		CustomerConsultation: true,
		SpecialNotes:         "prefers email contact",
		LeadQuality:          "good",
	}

	msg := formatLeadMessage("session-1", analysis)

	checks := []string{
		"session-1",
		"good",
		"Ada Lovelace",
		"ada@example.com",
		"+44 20 7946 0000",
		"bakery",
		"needs online booking",
		"weekday mornings",
		"Consultation booked",
		"prefers email contact",
	}
	for _, check := range checks {
		if !strings.Contains(msg, check) {
			t.Errorf("expected message to contain %q", check)
		}
	}
}

func TestFormatLeadMessage_SparseLead(t *testing.T) {
	msg := formatLeadMessage("session-2", store.LeadAnalysis{LeadQuality: "good", CustomerEmail: "x@y.z"})

	if !strings.Contains(msg, "x@y.z") {
		t.Errorf("expected email in message, got %q", msg)
	}
	if strings.Contains(msg, "*Phone:*") || strings.Contains(msg, "*Notes:*") {
		t.Errorf("expected absent fields to be omitted, got %q", msg)
	}
}

func TestPostLeadSummary_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer xoxb-test" {
			t.Errorf("expected Bearer xoxb-test, got %q", r.Header.Get("Authorization"))
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		if payload["channel"] != "C12345" {
			t.Errorf("expected channel C12345, got %v", payload["channel"])
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "ts": "1700000000.000100"})
	}))
	defer server.Close()

	p := NewPoster("xoxb-test", "C12345", discardLogger())
	p.SetTestTransport(server.URL)

	ts, err := p.PostLeadSummary(context.Background(), "session-1", store.LeadAnalysis{
		CustomerEmail: "ada@example.com",
		LeadQuality:   "good",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts != "1700000000.000100" {
		t.Errorf("expected ts from slack response, got %q", ts)
	}
}

func TestPostLeadSummary_SlackError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "channel_not_found"})
	}))
	defer server.Close()

	p := NewPoster("xoxb-test", "C-bad", discardLogger())
	p.SetTestTransport(server.URL)

	_, err := p.PostLeadSummary(context.Background(), "session-1", store.LeadAnalysis{LeadQuality: "good"})
	if err == nil {
		t.Fatal("expected error for slack failure response")
	}
	if !strings.Contains(err.Error(), "channel_not_found") {
		t.Errorf("expected slack error detail, got %v", err)
	}
}
