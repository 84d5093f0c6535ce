package redis_session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/courserag/config"
	"github.com/mohammad-safakhou/courserag/models"
	"github.com/mohammad-safakhou/courserag/session"
)

// Store keeps session history in a Redis list per session, trimmed to the
// configured bound on every append. The RPUSH+LTRIM pipeline keeps appends
// for one session atomic without client-side locking.
type Store struct {
	client     *redis.Client
	maxHistory int
}

// NewStore connects to Redis and verifies the connection.
func NewStore(ctx context.Context, cfg config.RedisConfig, maxHistory int) (session.Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if maxHistory < 0 {
		maxHistory = 2
	}
	return &Store{client: client, maxHistory: maxHistory}, nil
}

func historyKey(sessionID string) string {
	return "session:" + sessionID + ":history"
}

func (s *Store) CreateSession() string {
	return uuid.NewString()
}

func (s *Store) GetHistory(ctx context.Context, sessionID string) ([]models.Exchange, error) {
	raw, err := s.client.LRange(ctx, historyKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}
	history := make([]models.Exchange, 0, len(raw))
	for _, item := range raw {
		var ex models.Exchange
		if err := json.Unmarshal([]byte(item), &ex); err != nil {
			continue
		}
		history = append(history, ex)
	}
	return history, nil
}

func (s *Store) AppendExchange(ctx context.Context, sessionID, question, answer string) error {
	if s.maxHistory == 0 {
		// A zero bound retains nothing; drop any history left from a
		// previous, larger bound.
		return s.ClearSession(ctx, sessionID)
	}
	data, err := json.Marshal(models.Exchange{Question: question, Answer: answer})
	if err != nil {
		return err
	}
	key := historyKey(sessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-s.maxHistory), -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append: %w", err)
	}
	return nil
}

func (s *Store) ClearSession(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, historyKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
