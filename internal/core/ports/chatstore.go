package ports

import (
	"context"

	"github.com/tjfontaine/chat-assistant/internal/core/domain"
)

// ChatStore is the persistence boundary for conversation records and
// session ownership. At most one record exists per session id; the
// store's primary key enforces that.
type ChatStore interface {
	// InitConversation loads the record for sessionID, creating an
	// empty one if it does not exist. Idempotent: repeated calls never
	// duplicate or reorder messages. Messages come back in persisted
	// order.
	InitConversation(ctx context.Context, sessionID string) ([]domain.Message, error)

	// AppendMessages appends msgs to the record in one transaction.
	// Either every message becomes durable or none does; a failed
	// append leaves the record unchanged from the caller's view.
	AppendMessages(ctx context.Context, sessionID string, msgs []domain.Message) error

	// GetOwner returns the owning principal for sessionID, with ok
	// false when the session has no ownership row.
	GetOwner(ctx context.Context, sessionID string) (principal string, ok bool, err error)

	// SetOwner records the ownership link. Calling it again with the
	// same principal is a no-op; a different principal for an owned
	// session is an error, ownership never silently reassigns.
	SetOwner(ctx context.Context, sessionID, principal string) error

	// Close releases the underlying connection.
	Close() error
}
