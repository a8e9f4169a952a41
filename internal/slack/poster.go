package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lehoanglam20000/ai-agent/internal/store"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

// Poster notifies a Slack channel when an analysis yields a qualified lead.
type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// SetTestTransport points the poster at a test server instead of Slack.
func (p *Poster) SetTestTransport(url string) {
	p.apiURL = url
}

// PostLeadSummary posts a formatted lead summary and returns the message
// timestamp.
func (p *Poster) PostLeadSummary(ctx context.Context, sessionID string, analysis store.LeadAnalysis) (string, error) {
	text := formatLeadMessage(sessionID, analysis)

	body, err := json.Marshal(map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}

	p.logger.Info("posted lead to slack", "ts", slackResp.TS, "session_id", sessionID)
	return slackResp.TS, nil
}

func formatLeadMessage(sessionID string, a store.LeadAnalysis) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*New lead* (%s)\n", a.LeadQuality)
	fmt.Fprintf(&sb, "*Session:* %s\n\n", sessionID)

	if a.CustomerName != "" {
		fmt.Fprintf(&sb, "*Name:* %s\n", a.CustomerName)
	}
	if a.CustomerEmail != "" {
		fmt.Fprintf(&sb, "*Email:* %s\n", a.CustomerEmail)
	}
	if a.CustomerPhone != "" {
		fmt.Fprintf(&sb, "*Phone:* %s\n", a.CustomerPhone)
	}
	if a.CustomerIndustry != "" {
		fmt.Fprintf(&sb, "*Industry:* %s\n", a.CustomerIndustry)
	}
	if a.CustomerProblem != "" {
		fmt.Fprintf(&sb, "*Needs:* %s\n", a.CustomerProblem)
	}
	if a.CustomerAvailability != "" {
		fmt.Fprintf(&sb, "*Availability:* %s\n", a.CustomerAvailability)
	}
	if a.CustomerConsultation {
		sb.WriteString("*Consultation booked*\n")
	}
	if a.SpecialNotes != "" {
		fmt.Fprintf(&sb, "*Notes:* %s\n", a.SpecialNotes)
	}

	return sb.String()
}
