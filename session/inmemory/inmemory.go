package inmemory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/courserag/models"
	"github.com/mohammad-safakhou/courserag/session"
)

// Store is an in-memory session store. Sessions live for the process
// lifetime; there is no expiry.
type Store struct {
	maxHistory int
	mu         sync.RWMutex
	sessions   map[string][]models.Exchange
}

// NewStore creates an in-memory store retaining at most maxHistory
// exchanges per session. Zero retains no history; negative falls back to
// the default bound of 2.
func NewStore(maxHistory int) session.Store {
	if maxHistory < 0 {
		maxHistory = 2
	}
	return &Store{
		maxHistory: maxHistory,
		sessions:   make(map[string][]models.Exchange),
	}
}

func (s *Store) CreateSession() string {
	return uuid.NewString()
}

func (s *Store) GetHistory(ctx context.Context, sessionID string) ([]models.Exchange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.sessions[sessionID]
	out := make([]models.Exchange, len(history))
	copy(out, history)
	return out, nil
}

func (s *Store) AppendExchange(ctx context.Context, sessionID, question, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := append(s.sessions[sessionID], models.Exchange{Question: question, Answer: answer})
	if over := len(history) - s.maxHistory; over > 0 {
		history = history[over:]
	}
	s.sessions[sessionID] = history
	return nil
}

func (s *Store) ClearSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
