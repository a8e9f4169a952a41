package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "conversation:"
	redisIndexKey  = "conversations:index"
)

// Redis stores each conversation as a JSON value and keeps a sorted-set
// index scored by creation time so List can return newest-first without
// scanning keys.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Close() {
	_ = r.client.Close()
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Load(ctx context.Context, sessionID string) ([]Message, error) {
	conv, err := r.get(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return []Message{}, nil
	}
	if err != nil {
		return nil, err
	}
	return conv.Messages, nil
}

func (r *Redis) Save(ctx context.Context, sessionID string, messages []Message) (*Conversation, error) {
	conv, err := r.get(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		conv = &Conversation{
			ID:        uuid.NewString(),
			SessionID: sessionID,
		}
	} else if err != nil {
		return nil, err
	}
	conv.Messages = messages
	conv.CreatedAt = time.Now().UTC()

	if err := r.write(ctx, conv); err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}
	return conv, nil
}

func (r *Redis) Get(ctx context.Context, sessionID string) (*Conversation, error) {
	return r.get(ctx, sessionID)
}

func (r *Redis) Delete(ctx context.Context, sessionID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, redisKeyPrefix+sessionID)
		pipe.ZRem(ctx, redisIndexKey, sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

func (r *Redis) List(ctx context.Context) ([]Summary, error) {
	ids, err := r.client.ZRevRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	summaries := make([]Summary, 0, len(ids))
	for _, id := range ids {
		conv, err := r.get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Index entry outlived the record; skip it.
			continue
		}
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summarize(conv))
	}
	return summaries, nil
}

func (r *Redis) Count(ctx context.Context) (int, error) {
	n, err := r.client.ZCard(ctx, redisIndexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("count conversations: %w", err)
	}
	return int(n), nil
}

// UpdateLeadFields uses a WATCH transaction so the analysis blob and the
// denormalized fields land together even under a concurrent Save.
func (r *Redis) UpdateLeadFields(ctx context.Context, sessionID string, analysis LeadAnalysis) (*Conversation, error) {
	key := redisKeyPrefix + sessionID
	var updated *Conversation

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var conv Conversation
		if err := json.Unmarshal([]byte(val), &conv); err != nil {
			return fmt.Errorf("decode conversation: %w", err)
		}

		a := analysis
		conv.Analysis = &a
		conv.LeadQuality = analysis.LeadQuality
		conv.CustomerEmail = analysis.CustomerEmail
		conv.CustomerName = analysis.CustomerName
		conv.CustomerPhone = analysis.CustomerPhone

		raw, err := json.Marshal(&conv)
		if err != nil {
			return fmt.Errorf("encode conversation: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = &conv
		return nil
	}, key)

	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update lead fields: %w", err)
	}
	return updated, nil
}

func (r *Redis) get(ctx context.Context, sessionID string) (*Conversation, error) {
	val, err := r.client.Get(ctx, redisKeyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	var conv Conversation
	if err := json.Unmarshal([]byte(val), &conv); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return &conv, nil
}

func (r *Redis) write(ctx context.Context, conv *Conversation) error {
	raw, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisKeyPrefix+conv.SessionID, raw, 0)
		pipe.ZAdd(ctx, redisIndexKey, redis.Z{
			Score:  float64(conv.CreatedAt.UnixNano()),
			Member: conv.SessionID,
		})
		return nil
	})
	return err
}
