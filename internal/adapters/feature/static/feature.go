// Package static provides a FeatureBackend driven by configuration.
package static

import (
	"context"

	"github.com/tjfontaine/chat-assistant/internal/core/ports"
)

// Backend answers feature-enablement checks from a fixed action map.
// Actions absent from the map are disabled: the backend fails closed.
type Backend struct {
	enabled map[string]bool
}

// New creates a backend from an action -> enabled map.
func New(enabled map[string]bool) *Backend {
	m := make(map[string]bool, len(enabled))
	for action, on := range enabled {
		m[action] = on
	}
	return &Backend{enabled: m}
}

// IsEnabled reports whether action is explicitly enabled.
func (b *Backend) IsEnabled(_ context.Context, action string) bool {
	return b.enabled[action]
}

var _ ports.FeatureBackend = (*Backend)(nil)
