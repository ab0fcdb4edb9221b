package chat

import (
	"fmt"

	"github.com/tjfontaine/chat-assistant/internal/core/domain"
)

// Record is the in-memory view of one session's conversation history.
// It is append-only: messages are never edited or reordered once
// appended, and durability is the service's responsibility through the
// store's transactional append.
type Record struct {
	SessionID string
	Messages  []domain.Message
}

// NewRecord wraps messages loaded from the store.
func NewRecord(sessionID string, msgs []domain.Message) *Record {
	return &Record{SessionID: sessionID, Messages: msgs}
}

// Append adds a message, enforcing the system-message invariant: at
// most one system message per record, and only in the first position.
func (r *Record) Append(msg domain.Message) error {
	if !msg.Role.Valid() {
		return fmt.Errorf("record %s: unknown role %q", r.SessionID, msg.Role)
	}
	if msg.Role == domain.RoleSystem {
		if len(r.Messages) > 0 {
			return fmt.Errorf("record %s: system message must be first", r.SessionID)
		}
	}
	r.Messages = append(r.Messages, msg)
	return nil
}

// WorkingCopy builds a disposable deep copy for a single model call.
func (r *Record) WorkingCopy() *domain.WorkingCopy {
	return domain.NewWorkingCopy(r.SessionID, r.Messages)
}
