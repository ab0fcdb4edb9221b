package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tjfontaine/chat-assistant/internal/core/ports"
)

// Registry answers session-ownership questions: which principal owns a
// session, and is a given principal allowed to touch it. Ownership is
// written once when a session is established and never reassigned.
type Registry struct {
	store  ports.ChatStore
	logger *slog.Logger
}

// NewRegistry creates a registry over the given store.
func NewRegistry(store ports.ChatStore, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{store: store, logger: logger}
}

// Lookup returns the owning principal for sessionID, with ok false
// when the session is unknown.
func (r *Registry) Lookup(ctx context.Context, sessionID string) (string, bool, error) {
	return r.store.GetOwner(ctx, sessionID)
}

// Associate records the ownership link. Repeating the call with the
// same principal is a no-op; a session already owned by a different
// principal is a logic error the caller must prevent.
func (r *Registry) Associate(ctx context.Context, sessionID, principal string) error {
	owner, ok, err := r.store.GetOwner(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("lookup session owner: %w", err)
	}
	if ok {
		if owner == principal {
			return nil
		}
		return fmt.Errorf("session %s is already owned by another principal", sessionID)
	}
	if err := r.store.SetOwner(ctx, sessionID, principal); err != nil {
		return fmt.Errorf("set session owner: %w", err)
	}
	r.logger.Debug("session associated",
		slog.String("session_id", sessionID),
		slog.String("principal", principal),
	)
	return nil
}

// IsAssociated reports whether principal owns sessionID. Unknown
// sessions and foreign owners both return false.
func (r *Registry) IsAssociated(ctx context.Context, sessionID, principal string) (bool, error) {
	owner, ok, err := r.store.GetOwner(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("lookup session owner: %w", err)
	}
	return ok && owner == principal, nil
}
