package leads

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lehoanglam20000/ai-agent/internal/events"
	"github.com/lehoanglam20000/ai-agent/internal/openai"
	"github.com/lehoanglam20000/ai-agent/internal/store"
)

const (
	extractionTemperature = 0
	extractionMaxTokens   = 500
)

// Completer is the completion provider consumed by the analyzer.
type Completer interface {
	Complete(ctx context.Context, system string, messages []openai.Message, temperature float64, maxTokens int) (string, error)
}

// Publisher fans analysis results out to interested subscribers.
type Publisher interface {
	Publish(subject string, data any) error
}

// Notifier alerts a human channel about qualified leads.
type Notifier interface {
	PostLeadSummary(ctx context.Context, sessionID string, analysis store.LeadAnalysis) (string, error)
}

// Analyzer mines a finished transcript into structured lead fields and
// persists them onto the conversation record. Fanout (event publish, lead
// notification) happens here so every trigger — HTTP route or event
// subscription — gets the same post-analysis behavior.
type Analyzer struct {
	store    store.Store
	llm      Completer
	events   Publisher // optional
	notifier Notifier  // optional
	logger   *slog.Logger
}

func NewAnalyzer(s store.Store, llm Completer, pub Publisher, notifier Notifier, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		store:    s,
		llm:      llm,
		events:   pub,
		notifier: notifier,
		logger:   logger,
	}
}

// Analyze loads the session's transcript, asks the model for the
// constrained lead JSON, and writes the extracted fields back. Extraction
// yielding few or no fields is not an error; only a missing session, a
// failed completion call, or a failed persist is.
func (a *Analyzer) Analyze(ctx context.Context, sessionID string) (*store.Conversation, error) {
	messages, err := a.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if len(messages) == 0 {
		return nil, store.ErrNotFound
	}

	transcript := RenderTranscript(messages)
	prompt := fmt.Sprintf(extractionUserPrompt, transcript)

	raw, err := a.llm.Complete(ctx, extractionSystemPrompt,
		[]openai.Message{{Role: "user", Content: prompt}},
		extractionTemperature, extractionMaxTokens,
	)
	if err != nil {
		return nil, fmt.Errorf("lead extraction: %w", err)
	}

	analysis, recovered := parseAnalysis(raw)
	if !recovered {
		a.logger.Warn("unparsable extraction output, storing empty analysis",
			"session_id", sessionID,
			"raw_len", len(raw),
		)
	}

	conv, err := a.store.UpdateLeadFields(ctx, sessionID, analysis)
	if err != nil {
		return nil, fmt.Errorf("persist analysis: %w", err)
	}

	a.logger.Info("conversation analyzed",
		"session_id", sessionID,
		"lead_quality", analysis.LeadQuality,
		"has_email", analysis.CustomerEmail != "",
	)

	a.fanout(ctx, sessionID, conv)
	return conv, nil
}

// fanout is fire-and-forget: publish and notification failures are logged,
// never fail the analysis.
func (a *Analyzer) fanout(ctx context.Context, sessionID string, conv *store.Conversation) {
	if a.events != nil {
		err := a.events.Publish(events.SubjectLeadAnalyzed, events.LeadEvent{
			SessionID:     sessionID,
			LeadQuality:   conv.LeadQuality,
			CustomerEmail: conv.CustomerEmail,
			CustomerName:  conv.CustomerName,
			Timestamp:     time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			a.logger.Warn("failed to publish lead event", "session_id", sessionID, "error", err)
		}
	}

	if a.notifier != nil && conv.Analysis != nil && conv.Analysis.LeadQuality == "good" {
		if _, err := a.notifier.PostLeadSummary(ctx, sessionID, *conv.Analysis); err != nil {
			a.logger.Warn("failed to post lead to slack", "session_id", sessionID, "error", err)
		}
	}
}

// RenderTranscript flattens stored messages into extraction input, one
// "<Label>: <content>" line per message in dialogue order. Anything that is
// not a user message is labelled Assistant.
func RenderTranscript(messages []store.Message) string {
	lines := make([]string, len(messages))
	for i, m := range messages {
		label := "Assistant"
		if m.Role == "user" {
			label = "User"
		}
		lines[i] = label + ": " + m.Content
	}
	return strings.Join(lines, "\n")
}
