// Package memory provides an in-memory ChatStore for tests and
// ephemeral deployments.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/tjfontaine/chat-assistant/internal/core/domain"
	"github.com/tjfontaine/chat-assistant/internal/core/ports"
)

// Store keeps conversations and ownership rows in process memory.
type Store struct {
	mu            sync.RWMutex
	conversations map[string][]domain.Message
	owners        map[string]string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		conversations: make(map[string][]domain.Message),
		owners:        make(map[string]string),
	}
}

func (s *Store) InitConversation(_ context.Context, sessionID string) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, ok := s.conversations[sessionID]
	if !ok {
		s.conversations[sessionID] = []domain.Message{}
		return nil, nil
	}
	return cloneMessages(msgs), nil
}

func (s *Store) AppendMessages(_ context.Context, sessionID string, msgs []domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.conversations[sessionID]
	if !ok {
		return fmt.Errorf("conversation %s not found", sessionID)
	}
	s.conversations[sessionID] = append(existing, cloneMessages(msgs)...)
	return nil
}

func (s *Store) GetOwner(_ context.Context, sessionID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owner, ok := s.owners[sessionID]
	return owner, ok, nil
}

func (s *Store) SetOwner(_ context.Context, sessionID, principal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.owners[sessionID]; ok && owner != principal {
		return fmt.Errorf("session %s already has an owner", sessionID)
	}
	s.owners[sessionID] = principal
	return nil
}

func (s *Store) Close() error {
	return nil
}

func cloneMessages(msgs []domain.Message) []domain.Message {
	out := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Clone())
	}
	return out
}

var _ ports.ChatStore = (*Store)(nil)
