package memory

import (
	"context"
	"testing"

	"github.com/tjfontaine/chat-assistant/internal/core/domain"
)

func TestStore_InitAndAppend(t *testing.T) {
	store := New()
	ctx := context.Background()

	msgs, err := store.InitConversation(ctx, "s1")
	if err != nil {
		t.Fatalf("InitConversation() error = %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("new conversation has %d messages, want 0", len(msgs))
	}

	err = store.AppendMessages(ctx, "s1", []domain.Message{
		domain.NewTextMessage(domain.RoleHuman, "hello"),
		domain.NewTextMessage(domain.RoleAI, "hi there"),
	})
	if err != nil {
		t.Fatalf("AppendMessages() error = %v", err)
	}

	msgs, err = store.InitConversation(ctx, "s1")
	if err != nil {
		t.Fatalf("InitConversation() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
}

func TestStore_AppendUnknownSession(t *testing.T) {
	store := New()
	err := store.AppendMessages(context.Background(), "nope", []domain.Message{
		domain.NewTextMessage(domain.RoleHuman, "hello"),
	})
	if err == nil {
		t.Fatal("AppendMessages() on unknown session should fail")
	}
}

func TestStore_ReturnedSliceIsACopy(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.InitConversation(ctx, "s1"); err != nil {
		t.Fatalf("InitConversation() error = %v", err)
	}
	if err := store.AppendMessages(ctx, "s1", []domain.Message{
		domain.NewTextMessage(domain.RoleHuman, "original"),
	}); err != nil {
		t.Fatalf("AppendMessages() error = %v", err)
	}

	msgs, _ := store.InitConversation(ctx, "s1")
	msgs[0].Content.Text = "mutated"

	fresh, _ := store.InitConversation(ctx, "s1")
	if fresh[0].Content.Text != "original" {
		t.Error("mutating a loaded message leaked into the store")
	}
}

func TestStore_Ownership(t *testing.T) {
	store := New()
	ctx := context.Background()

	if err := store.SetOwner(ctx, "s1", "user-1"); err != nil {
		t.Fatalf("SetOwner() error = %v", err)
	}
	if err := store.SetOwner(ctx, "s1", "user-1"); err != nil {
		t.Fatalf("repeated SetOwner() error = %v", err)
	}
	if err := store.SetOwner(ctx, "s1", "user-2"); err == nil {
		t.Fatal("SetOwner() with different principal should fail")
	}

	owner, ok, err := store.GetOwner(ctx, "s1")
	if err != nil || !ok || owner != "user-1" {
		t.Fatalf("GetOwner() = %q, %v, %v; want user-1, true, nil", owner, ok, err)
	}
}
