package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a mutex-guarded map store. It backs local development and is
// the test double for the durable drivers.
type Memory struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
}

func NewMemory() *Memory {
	return &Memory{conversations: make(map[string]*Conversation)}
}

func (m *Memory) Load(ctx context.Context, sessionID string) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, ok := m.conversations[sessionID]
	if !ok {
		return []Message{}, nil
	}
	return append([]Message(nil), conv.Messages...), nil
}

func (m *Memory) Save(ctx context.Context, sessionID string, messages []Message) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[sessionID]
	if !ok {
		conv = &Conversation{
			ID:        uuid.NewString(),
			SessionID: sessionID,
		}
		m.conversations[sessionID] = conv
	}
	conv.Messages = append([]Message(nil), messages...)
	conv.CreatedAt = time.Now().UTC()
	return conv.clone(), nil
}

func (m *Memory) Get(ctx context.Context, sessionID string) (*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, ok := m.conversations[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return conv.clone(), nil
}

func (m *Memory) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.conversations, sessionID)
	return nil
}

func (m *Memory) List(ctx context.Context) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make([]Summary, 0, len(m.conversations))
	for _, conv := range m.conversations {
		summaries = append(summaries, summarize(conv))
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

func (m *Memory) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.conversations), nil
}

func (m *Memory) UpdateLeadFields(ctx context.Context, sessionID string, analysis LeadAnalysis) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	a := analysis
	conv.Analysis = &a
	conv.LeadQuality = analysis.LeadQuality
	conv.CustomerEmail = analysis.CustomerEmail
	conv.CustomerName = analysis.CustomerName
	conv.CustomerPhone = analysis.CustomerPhone
	return conv.clone(), nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() {}

func (c *Conversation) clone() *Conversation {
	out := *c
	out.Messages = append([]Message(nil), c.Messages...)
	if c.Analysis != nil {
		a := *c.Analysis
		out.Analysis = &a
	}
	return &out
}
