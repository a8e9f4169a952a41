package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects published and consumed by the assistant.
const (
	SubjectTurnCompleted  = "assistant.chat.turn"
	SubjectLeadAnalyzed   = "assistant.lead.analyzed"
	SubjectAnalyzeRequest = "assistant.conversation.analyze"
)

// TurnEvent is emitted after each persisted chat turn.
type TurnEvent struct {
	SessionID     string `json:"session_id"`
	HistoryLength int    `json:"history_length"`
	Timestamp     string `json:"timestamp"`
}

// LeadEvent is emitted after each analysis pass.
type LeadEvent struct {
	SessionID     string `json:"session_id"`
	LeadQuality   string `json:"lead_quality"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
	Timestamp     string `json:"timestamp"`
}

// AnalyzeRequest asks the assistant to run lead extraction for a session.
type AnalyzeRequest struct {
	SessionID string `json:"session_id"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(url string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
