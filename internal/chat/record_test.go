package chat

import (
	"testing"

	"github.com/tjfontaine/chat-assistant/internal/core/domain"
)

func TestRecord_SystemMessageInvariant(t *testing.T) {
	record := NewRecord("s1", nil)

	if err := record.Append(domain.NewTextMessage(domain.RoleSystem, "persona")); err != nil {
		t.Fatalf("Append(system) on empty record error = %v", err)
	}
	if err := record.Append(domain.NewTextMessage(domain.RoleHuman, "hi")); err != nil {
		t.Fatalf("Append(human) error = %v", err)
	}
	if err := record.Append(domain.NewTextMessage(domain.RoleSystem, "another")); err == nil {
		t.Fatal("Append(system) on non-empty record should fail")
	}
}

func TestRecord_RejectsUnknownRole(t *testing.T) {
	record := NewRecord("s1", nil)
	if err := record.Append(domain.NewTextMessage("robot", "beep")); err == nil {
		t.Fatal("Append() with unknown role should fail")
	}
}

func TestRecord_WorkingCopyIsIndependent(t *testing.T) {
	record := NewRecord("s1", []domain.Message{
		domain.NewTextMessage(domain.RoleSystem, "persona"),
		domain.NewTextMessage(domain.RoleHuman, "hi"),
		domain.NewTextMessage(domain.RoleAI, "hello"),
	})

	working := record.WorkingCopy()
	if _, ok := working.RemoveSystemMessage(); !ok {
		t.Fatal("RemoveSystemMessage() found nothing")
	}
	if last, ok := working.RemoveLastMessage(); !ok || last.Content.Text != "hello" {
		t.Fatalf("RemoveLastMessage() = %q, %v", last.Content.Text, ok)
	}
	working.Messages[0].Content.Text = "mutated"

	if len(record.Messages) != 3 {
		t.Fatalf("record has %d messages after working-copy edits, want 3", len(record.Messages))
	}
	if record.Messages[1].Content.Text != "hi" {
		t.Errorf("record.Messages[1] = %q, want hi", record.Messages[1].Content.Text)
	}
}
