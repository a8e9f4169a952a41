package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when an operation requires an existing
// conversation record and none exists for the session id.
var ErrNotFound = errors.New("conversation not found")

// Message is a single conversation turn. Messages are append-only;
// they are never mutated after creation, only dropped by the history cap.
type Message struct {
	Role    string `json:"role"` // system | user | assistant
	Content string `json:"content"`
}

// LeadAnalysis holds the structured lead data extracted from a transcript.
// It is derived, not authoritative: each re-analysis overwrites the previous
// one wholesale.
type LeadAnalysis struct {
	CustomerName         string `json:"customerName,omitempty"`
	CustomerEmail        string `json:"customerEmail,omitempty"`
	CustomerPhone        string `json:"customerPhone,omitempty"`
	CustomerIndustry     string `json:"customerIndustry,omitempty"`
	CustomerProblem      string `json:"customerProblem,omitempty"`
	CustomerAvailability string `json:"customerAvailability,omitempty"`
	CustomerConsultation bool   `json:"customerConsultation,omitempty"`
	SpecialNotes         string `json:"specialNotes,omitempty"`
	LeadQuality          string `json:"leadQuality,omitempty"` // good | ok | spam
}

// Conversation is the durable record for one session.
type Conversation struct {
	ID            string        `json:"id"`
	SessionID     string        `json:"conversation_id"`
	Messages      []Message     `json:"messages"`
	Analysis      *LeadAnalysis `json:"lead_analysis,omitempty"`
	LeadQuality   string        `json:"lead_quality,omitempty"`
	CustomerEmail string        `json:"customer_email,omitempty"`
	CustomerName  string        `json:"customer_name,omitempty"`
	CustomerPhone string        `json:"customer_phone,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Summary is the listing projection: enough to render the dashboard
// index without deserializing full analysis blobs.
type Summary struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"conversation_id"`
	CreatedAt     time.Time `json:"created_at"`
	MessageCount  int       `json:"message_count"`
	LastMessage   *Message  `json:"last_message"`
	Preview       string    `json:"preview"`
	LeadQuality   string    `json:"lead_quality,omitempty"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	CustomerName  string    `json:"customer_name,omitempty"`
}

// Store is the durable conversation store. Implementations are keyed by
// session id; Save is an idempotent overwrite, never a duplicate row.
type Store interface {
	// Load returns the message history for a session. A missing record is
	// an empty history, not an error.
	Load(ctx context.Context, sessionID string) ([]Message, error)

	// Save upserts the message history for a session and refreshes its
	// timestamp, returning the stored record.
	Save(ctx context.Context, sessionID string, messages []Message) (*Conversation, error)

	// Get returns the full record for a session, or ErrNotFound.
	Get(ctx context.Context, sessionID string) (*Conversation, error)

	// Delete removes a session's record. Deleting an absent record is not
	// an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns summaries of all conversations, newest first.
	List(ctx context.Context) ([]Summary, error)

	// Count returns the total number of stored conversations.
	Count(ctx context.Context) (int, error)

	// UpdateLeadFields overwrites the analysis blob and the denormalized
	// lead columns as one atomic update. Returns ErrNotFound if the
	// session has no record.
	UpdateLeadFields(ctx context.Context, sessionID string, analysis LeadAnalysis) (*Conversation, error)

	// Ping reports whether the underlying store is reachable.
	Ping(ctx context.Context) error

	Close()
}

// Driver names accepted by New.
const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Config selects and configures a store driver.
type Config struct {
	Driver      string
	DatabaseURL string
	RedisURL    string
}

// New creates a Store for the configured driver.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres driver requires DATABASE_URL")
		}
		return NewPostgres(ctx, cfg.DatabaseURL)
	case DriverRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("redis driver requires REDIS_URL")
		}
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return NewRedis(redis.NewClient(opts)), nil
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

const previewLen = 100

// summarize builds the listing projection for one conversation.
func summarize(c *Conversation) Summary {
	s := Summary{
		ID:            c.ID,
		SessionID:     c.SessionID,
		CreatedAt:     c.CreatedAt,
		MessageCount:  len(c.Messages),
		Preview:       "No messages",
		LeadQuality:   c.LeadQuality,
		CustomerEmail: c.CustomerEmail,
		CustomerName:  c.CustomerName,
	}
	if len(c.Messages) > 0 {
		last := c.Messages[len(c.Messages)-1]
		s.LastMessage = &last
		s.Preview = preview(last.Content)
	}
	return s
}

// preview truncates content to the first previewLen characters and appends
// an ellipsis marker.
func preview(content string) string {
	runes := []rune(content)
	if len(runes) > previewLen {
		runes = runes[:previewLen]
	}
	return string(runes) + "..."
}
