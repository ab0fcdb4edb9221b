package ports

import "context"

// FeatureBackend answers whether a named action is currently enabled.
// Implementations must fail closed: unknown actions are disabled.
type FeatureBackend interface {
	IsEnabled(ctx context.Context, action string) bool
}

// PermissionBackend answers whether a principal holds the capability
// required for a named action.
type PermissionBackend interface {
	HasPermission(ctx context.Context, principal, action string) bool
}

// QuotaBackend admits or rejects one unit of usage for a principal and
// action within the current accounting window. A true return means the
// unit was consumed; implementations must make admission atomic per
// principal/action so concurrent calls cannot over-admit.
type QuotaBackend interface {
	TryConsume(ctx context.Context, principal, action string) bool
}
