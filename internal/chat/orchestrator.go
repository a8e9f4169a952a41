package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lehoanglam20000/ai-agent/internal/openai"
	"github.com/lehoanglam20000/ai-agent/internal/store"
)

// historyCap bounds stored history per session. Oldest messages are dropped
// first; the system directive is never stored so it is unaffected.
const historyCap = 20

const (
	completionTemperature = 0.7
	completionMaxTokens   = 1000
)

// ErrEmptyMessage is returned for empty or whitespace-only input.
var ErrEmptyMessage = errors.New("message is required")

// Completer is the completion provider consumed by the orchestrator.
type Completer interface {
	Complete(ctx context.Context, system string, messages []openai.Message, temperature float64, maxTokens int) (string, error)
}

// Orchestrator runs one chat turn: load history, append the user message,
// complete, append the reply, cap, persist.
type Orchestrator struct {
	store        store.Store
	llm          Completer
	systemPrompt string
	logger       *slog.Logger
}

func NewOrchestrator(s store.Store, llm Completer, systemPrompt string, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:        s,
		llm:          llm,
		systemPrompt: systemPrompt,
		logger:       logger,
	}
}

// TurnResult is the outcome of one turn. Persisted is false when the reply
// was generated but the save failed; the reply is still usable.
type TurnResult struct {
	Reply         string
	SessionID     string
	HistoryLength int
	Persisted     bool
}

// HandleTurn processes one user message for a session, minting a session id
// when none is supplied. A completion failure leaves the stored history
// untouched. A persistence failure after a successful completion returns
// the result with Persisted=false alongside the error, so callers can still
// surface the generated reply.
func (o *Orchestrator) HandleTurn(ctx context.Context, message, sessionID string) (*TurnResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	if sessionID == "" {
		sessionID = NewSessionID()
	}

	history, err := o.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	history = append(history, store.Message{Role: "user", Content: message})

	reply, err := o.llm.Complete(ctx, o.systemPrompt, toOpenAI(history), completionTemperature, completionMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}

	history = append(history, store.Message{Role: "assistant", Content: reply})
	if len(history) > historyCap {
		history = history[len(history)-historyCap:]
	}

	result := &TurnResult{
		Reply:         reply,
		SessionID:     sessionID,
		HistoryLength: len(history),
		Persisted:     true,
	}

	if _, err := o.store.Save(ctx, sessionID, history); err != nil {
		o.logger.Error("failed to persist turn", "session_id", sessionID, "error", err)
		result.Persisted = false
		return result, fmt.Errorf("persist turn: %w", err)
	}

	o.logger.Info("turn completed",
		"session_id", sessionID,
		"history_length", len(history),
	)
	return result, nil
}

// NewSessionID mints a compact session identifier: base36 unix millis plus
// a random suffix, unique with overwhelming probability.
func NewSessionID() string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return ts + random
}

func toOpenAI(messages []store.Message) []openai.Message {
	out := make([]openai.Message, len(messages))
	for i, m := range messages {
		out[i] = openai.Message{Role: m.Role, Content: m.Content}
	}
	return out
}
