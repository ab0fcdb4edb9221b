package chat

import (
	"context"
	"log/slog"
	"testing"

	"github.com/tjfontaine/chat-assistant/internal/storage/memory"
)

func TestRegistry_Associate(t *testing.T) {
	registry := NewRegistry(memory.New(), slog.Default())
	ctx := context.Background()

	if err := registry.Associate(ctx, "s1", "user-1"); err != nil {
		t.Fatalf("Associate() error = %v", err)
	}
	// Idempotent for the same principal.
	if err := registry.Associate(ctx, "s1", "user-1"); err != nil {
		t.Fatalf("repeated Associate() error = %v", err)
	}
	// Ownership never reassigns.
	if err := registry.Associate(ctx, "s1", "user-2"); err == nil {
		t.Fatal("Associate() for an owned session should fail")
	}

	owner, ok, err := registry.Lookup(ctx, "s1")
	if err != nil || !ok || owner != "user-1" {
		t.Fatalf("Lookup() = %q, %v, %v; want user-1, true, nil", owner, ok, err)
	}
}

func TestRegistry_IsAssociated(t *testing.T) {
	registry := NewRegistry(memory.New(), slog.Default())
	ctx := context.Background()

	if err := registry.Associate(ctx, "s1", "user-1"); err != nil {
		t.Fatalf("Associate() error = %v", err)
	}

	tests := []struct {
		name      string
		sessionID string
		principal string
		want      bool
	}{
		{"owning principal", "s1", "user-1", true},
		{"foreign principal", "s1", "user-2", false},
		{"unknown session", "s2", "user-1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := registry.IsAssociated(ctx, tt.sessionID, tt.principal)
			if err != nil {
				t.Fatalf("IsAssociated() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsAssociated() = %v, want %v", got, tt.want)
			}
		})
	}
}
