package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores conversations in a single conversations table with a
// jsonb message column, keyed by a unique conversation_id.
type Postgres struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id              uuid PRIMARY KEY,
	conversation_id text UNIQUE NOT NULL,
	messages        jsonb NOT NULL DEFAULT '[]',
	lead_analysis   jsonb,
	lead_quality    text,
	customer_email  text,
	customer_name   text,
	customer_phone  text,
	created_at      timestamptz NOT NULL DEFAULT now()
)`

// NewPostgres connects to the database and ensures the schema exists.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Load(ctx context.Context, sessionID string) ([]Message, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx,
		`SELECT messages FROM conversations WHERE conversation_id = $1`,
		sessionID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return []Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	var messages []Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return messages, nil
}

func (p *Postgres) Save(ctx context.Context, sessionID string, messages []Message) (*Conversation, error) {
	raw, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("encode messages: %w", err)
	}

	row := p.pool.QueryRow(ctx, `
		INSERT INTO conversations (id, conversation_id, messages, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (conversation_id)
		DO UPDATE SET messages = EXCLUDED.messages, created_at = now()
		RETURNING `+conversationColumns,
		uuid.New(), sessionID, raw,
	)
	conv, err := scanConversation(row)
	if err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}
	return conv, nil
}

func (p *Postgres) Get(ctx context.Context, sessionID string) (*Conversation, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE conversation_id = $1`,
		sessionID,
	)
	conv, err := scanConversation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return conv, nil
}

func (p *Postgres) Delete(ctx context.Context, sessionID string) error {
	_, err := p.pool.Exec(ctx,
		`DELETE FROM conversations WHERE conversation_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

func (p *Postgres) List(ctx context.Context) ([]Summary, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	summaries := []Summary{}
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("list conversations: %w", err)
		}
		summaries = append(summaries, summarize(conv))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return summaries, nil
}

func (p *Postgres) Count(ctx context.Context) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count conversations: %w", err)
	}
	return count, nil
}

func (p *Postgres) UpdateLeadFields(ctx context.Context, sessionID string, analysis LeadAnalysis) (*Conversation, error) {
	blob, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}

	row := p.pool.QueryRow(ctx, `
		UPDATE conversations
		SET lead_analysis = $2,
		    lead_quality = $3,
		    customer_email = $4,
		    customer_name = $5,
		    customer_phone = $6
		WHERE conversation_id = $1
		RETURNING `+conversationColumns,
		sessionID, blob,
		nullable(analysis.LeadQuality),
		nullable(analysis.CustomerEmail),
		nullable(analysis.CustomerName),
		nullable(analysis.CustomerPhone),
	)
	conv, err := scanConversation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update lead fields: %w", err)
	}
	return conv, nil
}

const conversationColumns = `id::text, conversation_id, messages,
	lead_analysis,
	COALESCE(lead_quality, ''),
	COALESCE(customer_email, ''),
	COALESCE(customer_name, ''),
	COALESCE(customer_phone, ''),
	created_at`

func scanConversation(row pgx.Row) (*Conversation, error) {
	var (
		conv        Conversation
		rawMessages []byte
		rawAnalysis []byte
	)
	err := row.Scan(&conv.ID, &conv.SessionID, &rawMessages, &rawAnalysis,
		&conv.LeadQuality, &conv.CustomerEmail, &conv.CustomerName,
		&conv.CustomerPhone, &conv.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawMessages, &conv.Messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	if len(rawAnalysis) > 0 {
		var analysis LeadAnalysis
		if err := json.Unmarshal(rawAnalysis, &analysis); err != nil {
			return nil, fmt.Errorf("decode analysis: %w", err)
		}
		conv.Analysis = &analysis
	}
	return &conv, nil
}

// nullable maps empty strings to SQL NULL so never-extracted fields stay
// distinguishable from extracted-empty ones.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
