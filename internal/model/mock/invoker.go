// Package mock provides an echo ModelInvoker for tests and local
// development without a provider key.
package mock

import (
	"context"

	"github.com/tjfontaine/chat-assistant/internal/core/domain"
	"github.com/tjfontaine/chat-assistant/internal/core/ports"
)

// Invoker replies "MockMessage: <last human text>".
type Invoker struct{}

var _ ports.ModelInvoker = (*Invoker)(nil)

// New creates a mock invoker.
func New() *Invoker {
	return &Invoker{}
}

func (i *Invoker) Invoke(_ context.Context, view *domain.WorkingCopy) (domain.Message, error) {
	last, ok := view.RemoveLastMessage()
	if !ok {
		return domain.NewTextMessage(domain.RoleAI, "MockMessage:"), nil
	}
	return domain.NewTextMessage(domain.RoleAI, "MockMessage: "+last.Content.Text), nil
}
