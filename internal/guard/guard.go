// Package guard implements the ordered access-control checks applied
// around every chat service operation. A chain holds guards in a fixed
// order and stops at the first failure, so a denied call never reaches
// later guards and never consumes quota for an unauthorized or
// disabled action.
package guard

import (
	"context"

	"github.com/tjfontaine/chat-assistant/internal/core/domain"
	"github.com/tjfontaine/chat-assistant/internal/core/ports"
)

// Guard is a single pass/fail check for a principal attempting an
// action. A nil return allows the call; a non-nil return denies it
// with a typed domain error.
type Guard interface {
	Name() string
	Check(ctx context.Context, principal, action string) error
}

// Bypass selects which guards to skip for one call. Bypasses exist for
// trusted internal callers only and are never reachable from the HTTP
// surface.
type Bypass struct {
	Feature    bool
	Permission bool
	Quota      bool
}

// Chain is an ordered list of guards evaluated front to back.
type Chain struct {
	guards []Guard
}

// NewChain builds the standard chain: feature enablement, then
// permission, then quota. The order is significant: a disabled feature
// must not leak permission errors, and an unauthorized call must not
// burn quota.
func NewChain(features ports.FeatureBackend, permissions ports.PermissionBackend, quotas ports.QuotaBackend) *Chain {
	return &Chain{guards: []Guard{
		&featureGuard{backend: features},
		&permissionGuard{backend: permissions},
		&quotaGuard{backend: quotas},
	}}
}

// Check runs every non-bypassed guard in order, short-circuiting on
// the first failure.
func (c *Chain) Check(ctx context.Context, principal, action string, bypass Bypass) error {
	for _, g := range c.guards {
		if bypass.skips(g.Name()) {
			continue
		}
		if err := g.Check(ctx, principal, action); err != nil {
			return err
		}
	}
	return nil
}

func (b Bypass) skips(name string) bool {
	switch name {
	case guardFeature:
		return b.Feature
	case guardPermission:
		return b.Permission
	case guardQuota:
		return b.Quota
	}
	return false
}

const (
	guardFeature    = "feature"
	guardPermission = "permission"
	guardQuota      = "quota"
)

type featureGuard struct {
	backend ports.FeatureBackend
}

func (g *featureGuard) Name() string { return guardFeature }

func (g *featureGuard) Check(ctx context.Context, principal, action string) error {
	if !g.backend.IsEnabled(ctx, action) {
		return domain.FeatureDisabled(action)
	}
	return nil
}

type permissionGuard struct {
	backend ports.PermissionBackend
}

func (g *permissionGuard) Name() string { return guardPermission }

func (g *permissionGuard) Check(ctx context.Context, principal, action string) error {
	if !g.backend.HasPermission(ctx, principal, action) {
		return domain.NotAuthorized(action, "missing permission")
	}
	return nil
}

type quotaGuard struct {
	backend ports.QuotaBackend
}

func (g *quotaGuard) Name() string { return guardQuota }

func (g *quotaGuard) Check(ctx context.Context, principal, action string) error {
	if !g.backend.TryConsume(ctx, principal, action) {
		return domain.QuotaExceeded(action)
	}
	return nil
}
