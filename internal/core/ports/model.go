package ports

import (
	"context"

	"github.com/tjfontaine/chat-assistant/internal/core/domain"
)

// ModelInvoker is the model-invocation collaborator. It receives a
// disposable working copy of the conversation, already carrying any
// synthesized context as its system message, and returns the model's
// reply with role ai. Provider-specific errors may escape here; the
// chat service maps them all to a single opaque upstream failure.
type ModelInvoker interface {
	Invoke(ctx context.Context, view *domain.WorkingCopy) (domain.Message, error)
}
