package session

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/courserag/config"
	"github.com/mohammad-safakhou/courserag/models"
)

// Store keeps a bounded rolling window of question/answer exchanges per
// session, fed into the LLM prompt as conversation context.
//
// GetHistory on an unknown session returns an empty history, not an error;
// the session is created implicitly on first append. Appends for one
// session are serialized; different sessions proceed in parallel.
type Store interface {
	// CreateSession issues a fresh session ID.
	CreateSession() string

	// GetHistory returns the retained exchanges, oldest first.
	GetHistory(ctx context.Context, sessionID string) ([]models.Exchange, error)

	// AppendExchange records one successful question/answer pair, evicting
	// the oldest exchanges once the configured bound is exceeded.
	AppendExchange(ctx context.Context, sessionID, question, answer string) error

	// ClearSession drops all history for a session.
	ClearSession(ctx context.Context, sessionID string) error
}

// StoreType selects a session store backend.
type StoreType string

const (
	InMemoryStore StoreType = "inmemory"
	RedisStore    StoreType = "redis"
)

// FormatHistory renders exchanges as prompt context the way the completion
// system prompt expects them.
func FormatHistory(exchanges []models.Exchange) string {
	if len(exchanges) == 0 {
		return ""
	}
	out := ""
	for i, ex := range exchanges {
		if i > 0 {
			out += "\n"
		}
		out += fmt.Sprintf("User: %s\nAssistant: %s", ex.Question, ex.Answer)
	}
	return out
}

// Validate checks cfg names a supported backend.
func Validate(cfg config.SessionConfig) error {
	switch StoreType(cfg.Backend) {
	case "", InMemoryStore, RedisStore:
		return nil
	}
	return fmt.Errorf("unsupported session store type: %s", cfg.Backend)
}
