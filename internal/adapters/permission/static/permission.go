// Package static provides a PermissionBackend driven by configuration.
package static

import (
	"context"

	"github.com/tjfontaine/chat-assistant/internal/core/ports"
)

// Backend looks up capabilities from a principal -> actions map.
type Backend struct {
	grants map[string]map[string]bool
}

// New creates a backend from a principal -> granted actions map.
func New(grants map[string][]string) *Backend {
	m := make(map[string]map[string]bool, len(grants))
	for principal, actions := range grants {
		set := make(map[string]bool, len(actions))
		for _, a := range actions {
			set[a] = true
		}
		m[principal] = set
	}
	return &Backend{grants: m}
}

// HasPermission reports whether principal was granted action.
func (b *Backend) HasPermission(_ context.Context, principal, action string) bool {
	return b.grants[principal][action]
}

var _ ports.PermissionBackend = (*Backend)(nil)
