package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/tjfontaine/chat-assistant/internal/core/domain"
	"github.com/tjfontaine/chat-assistant/internal/core/ports"
	"github.com/tjfontaine/chat-assistant/internal/guard"
	"github.com/tjfontaine/chat-assistant/internal/model/mock"
	"github.com/tjfontaine/chat-assistant/internal/storage/memory"
)

type allowBackends struct {
	featureOff bool
	quotaCalls int
}

func (b *allowBackends) IsEnabled(ctx context.Context, action string) bool {
	return !b.featureOff
}

func (b *allowBackends) HasPermission(ctx context.Context, principal, action string) bool {
	return true
}

func (b *allowBackends) TryConsume(ctx context.Context, principal, action string) bool {
	b.quotaCalls++
	return true
}

// captureInvoker records the working copy it was handed.
type captureInvoker struct {
	views []*domain.WorkingCopy
	inner ports.ModelInvoker
}

func (c *captureInvoker) Invoke(ctx context.Context, view *domain.WorkingCopy) (domain.Message, error) {
	copied := domain.NewWorkingCopy(view.SessionID, view.Messages)
	c.views = append(c.views, copied)
	return c.inner.Invoke(ctx, view)
}

type failingInvoker struct{}

func (failingInvoker) Invoke(context.Context, *domain.WorkingCopy) (domain.Message, error) {
	return domain.Message{}, errors.New("provider exploded: status 500, secret detail")
}

func newTestService(model ports.ModelInvoker, backends *allowBackends) (*Service, *memory.Store) {
	store := memory.New()
	chain := guard.NewChain(backends, backends, backends)
	registry := NewRegistry(store, slog.Default())
	return NewService(store, model, chain, registry, slog.Default()), store
}

func TestService_CreateSession(t *testing.T) {
	svc, _ := newTestService(mock.New(), &allowBackends{})
	ctx := context.Background()

	id, err := svc.CreateSession(ctx, "user-1", "")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if id == "" {
		t.Fatal("CreateSession() returned empty id")
	}

	ok, err := svc.Registry().IsAssociated(ctx, id, "user-1")
	if err != nil || !ok {
		t.Fatalf("IsAssociated() = %v, %v; want true", ok, err)
	}

	explicit, err := svc.CreateSession(ctx, "user-1", "my-session")
	if err != nil {
		t.Fatalf("CreateSession(explicit) error = %v", err)
	}
	if explicit != "my-session" {
		t.Errorf("CreateSession(explicit) = %q, want my-session", explicit)
	}
}

func TestService_CreateSessionFeatureDisabled(t *testing.T) {
	svc, _ := newTestService(mock.New(), &allowBackends{featureOff: true})

	_, err := svc.CreateSession(context.Background(), "user-1", "")
	if !domain.IsKind(err, domain.KindFeatureDisabled) {
		t.Fatalf("CreateSession() error = %v, want feature_disabled", err)
	}
}

func TestService_InvokeRoundTrips(t *testing.T) {
	svc, _ := newTestService(mock.New(), &allowBackends{})
	ctx := context.Background()

	id, err := svc.CreateSession(ctx, "user-1", "")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	const rounds = 3
	for i := 0; i < rounds; i++ {
		text := fmt.Sprintf("hello %d", i)
		reply, err := svc.Invoke(ctx, "user-1", id, domain.NewTextMessage(domain.RoleHuman, text), nil)
		if err != nil {
			t.Fatalf("Invoke(%d) error = %v", i, err)
		}
		if reply.Role != domain.RoleAI {
			t.Fatalf("reply role = %v, want ai", reply.Role)
		}
		if want := "MockMessage: " + text; reply.Content.Text != want {
			t.Fatalf("reply = %q, want %q", reply.Content.Text, want)
		}
	}

	msgs, err := svc.Recall(ctx, "user-1", id)
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if len(msgs) != 2*rounds {
		t.Fatalf("Recall() returned %d messages, want %d", len(msgs), 2*rounds)
	}
	for i, msg := range msgs {
		want := domain.RoleHuman
		if i%2 == 1 {
			want = domain.RoleAI
		}
		if msg.Role != want {
			t.Errorf("messages[%d].Role = %v, want %v", i, msg.Role, want)
		}
	}
}

func TestService_InvokeEmptyMessage(t *testing.T) {
	svc, _ := newTestService(mock.New(), &allowBackends{})
	ctx := context.Background()

	id, _ := svc.CreateSession(ctx, "user-1", "")

	reply, err := svc.Invoke(ctx, "user-1", id, domain.NewTextMessage(domain.RoleHuman, "   "), nil)
	if err != nil {
		t.Fatalf("Invoke() error = %v, want degraded reply", err)
	}
	if reply.Role != domain.RoleSystem || reply.Content.Text != "Please provide a message." {
		t.Fatalf("degraded reply = %v %q", reply.Role, reply.Content.Text)
	}

	msgs, err := svc.Recall(ctx, "user-1", id)
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("record has %d messages after empty invoke, want 0", len(msgs))
	}
}

func TestService_InvokeNonHumanMessage(t *testing.T) {
	svc, _ := newTestService(mock.New(), &allowBackends{})
	ctx := context.Background()

	id, _ := svc.CreateSession(ctx, "user-1", "")

	reply, err := svc.Invoke(ctx, "user-1", id, domain.NewTextMessage(domain.RoleSystem, "not from a user"), nil)
	if err != nil {
		t.Fatalf("Invoke() error = %v, want degraded reply", err)
	}
	if reply.Role != domain.RoleSystem {
		t.Fatalf("degraded reply role = %v, want system", reply.Role)
	}

	msgs, _ := svc.Recall(ctx, "user-1", id)
	if len(msgs) != 0 {
		t.Fatalf("record has %d messages, want 0", len(msgs))
	}
}

func TestService_ContextIsEphemeral(t *testing.T) {
	capture := &captureInvoker{inner: mock.New()}
	svc, _ := newTestService(capture, &allowBackends{})
	ctx := context.Background()

	id, _ := svc.CreateSession(ctx, "user-1", "")

	if _, err := svc.Invoke(ctx, "user-1", id, domain.NewTextMessage(domain.RoleHuman, "hi"), nil); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if _, err := svc.Invoke(ctx, "user-1", id,
		domain.NewTextMessage(domain.RoleHuman, "what about here"),
		map[string]string{"city": "HK"},
	); err != nil {
		t.Fatalf("Invoke() with context error = %v", err)
	}

	// Second working copy: prior round (2 messages) + synthesized
	// system context + the new human message.
	view := capture.views[1]
	if len(view.Messages) != 4 {
		t.Fatalf("working copy has %d messages, want 4", len(view.Messages))
	}
	sys := view.Messages[2]
	if sys.Role != domain.RoleSystem {
		t.Fatalf("messages[2].Role = %v, want system", sys.Role)
	}
	if want := "real-time context and information:\ncity:HK;"; sys.Content.Text != want {
		t.Errorf("context message = %q, want %q", sys.Content.Text, want)
	}
	if view.Messages[3].Role != domain.RoleHuman {
		t.Errorf("messages[3].Role = %v, want human", view.Messages[3].Role)
	}

	// The persisted record never contains the context message.
	msgs, _ := svc.Recall(ctx, "user-1", id)
	if len(msgs) != 4 {
		t.Fatalf("persisted record has %d messages, want 4", len(msgs))
	}
	for i, msg := range msgs {
		if msg.Role == domain.RoleSystem {
			t.Errorf("persisted messages[%d] has role system", i)
		}
	}
}

func TestService_InvokeWithPersistedSystemMessage(t *testing.T) {
	svc, store := newTestService(mock.New(), &allowBackends{})
	ctx := context.Background()

	// A record may carry an explicitly set persona as its leading
	// system message; appends after it must keep the record valid.
	if _, err := store.InitConversation(ctx, "seeded"); err != nil {
		t.Fatalf("InitConversation() error = %v", err)
	}
	if err := store.AppendMessages(ctx, "seeded", []domain.Message{
		domain.NewTextMessage(domain.RoleSystem, "persona"),
	}); err != nil {
		t.Fatalf("AppendMessages() error = %v", err)
	}
	if _, err := svc.CreateSession(ctx, "user-1", "seeded"); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	reply, err := svc.Invoke(ctx, "user-1", "seeded", domain.NewTextMessage(domain.RoleHuman, "hi"), nil)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if reply.Role != domain.RoleAI {
		t.Fatalf("reply role = %v, want ai", reply.Role)
	}

	msgs, err := svc.Recall(ctx, "user-1", "seeded")
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	wantRoles := []domain.Role{domain.RoleSystem, domain.RoleHuman, domain.RoleAI}
	if len(msgs) != len(wantRoles) {
		t.Fatalf("record has %d messages, want %d", len(msgs), len(wantRoles))
	}
	for i, want := range wantRoles {
		if msgs[i].Role != want {
			t.Errorf("messages[%d].Role = %v, want %v", i, msgs[i].Role, want)
		}
	}
}

func TestService_CrossPrincipalAccessDenied(t *testing.T) {
	svc, _ := newTestService(mock.New(), &allowBackends{})
	ctx := context.Background()

	id, _ := svc.CreateSession(ctx, "user-1", "")

	_, err := svc.Invoke(ctx, "user-2", id, domain.NewTextMessage(domain.RoleHuman, "hi"), nil)
	if !domain.IsKind(err, domain.KindNotAuthorized) {
		t.Fatalf("Invoke() by foreign principal error = %v, want not_authorized", err)
	}
	_, err = svc.Recall(ctx, "user-2", id)
	if !domain.IsKind(err, domain.KindNotAuthorized) {
		t.Fatalf("Recall() by foreign principal error = %v, want not_authorized", err)
	}

	// Unknown sessions are denied the same way.
	_, err = svc.Recall(ctx, "user-2", "no-such-session")
	if !domain.IsKind(err, domain.KindNotAuthorized) {
		t.Fatalf("Recall() on unknown session error = %v, want not_authorized", err)
	}

	// Trusted internal callers can bypass the association check.
	if _, err := svc.Recall(ctx, "user-2", id, BypassAssociationCheck()); err != nil {
		t.Fatalf("Recall() with bypass error = %v", err)
	}
}

func TestService_UpstreamFailureIsOpaque(t *testing.T) {
	svc, _ := newTestService(failingInvoker{}, &allowBackends{})
	ctx := context.Background()

	id, _ := svc.CreateSession(ctx, "user-1", "")

	_, err := svc.Invoke(ctx, "user-1", id, domain.NewTextMessage(domain.RoleHuman, "hi"), nil)
	if !domain.IsKind(err, domain.KindUpstreamInvocation) {
		t.Fatalf("Invoke() error = %v, want upstream_invocation_failure", err)
	}
	for _, leak := range []string{"provider exploded", "status 500", "secret"} {
		if strings.Contains(err.Error(), leak) {
			t.Errorf("error %q leaks upstream detail %q", err, leak)
		}
	}

	// A failed invocation persists nothing.
	msgs, _ := svc.Recall(ctx, "user-1", id)
	if len(msgs) != 0 {
		t.Fatalf("record has %d messages after failed invoke, want 0", len(msgs))
	}
}

func TestService_DisabledFeatureLeavesQuotaUntouched(t *testing.T) {
	backends := &allowBackends{featureOff: true}
	svc, _ := newTestService(mock.New(), backends)

	_, err := svc.Invoke(context.Background(), "user-1", "some-session",
		domain.NewTextMessage(domain.RoleHuman, "hi"), nil)
	if !domain.IsKind(err, domain.KindFeatureDisabled) {
		t.Fatalf("Invoke() error = %v, want feature_disabled", err)
	}
	if backends.quotaCalls != 0 {
		t.Errorf("quota consumed %d times behind a disabled feature, want 0", backends.quotaCalls)
	}
}

func TestService_SessionsAreIndependent(t *testing.T) {
	svc, _ := newTestService(mock.New(), &allowBackends{})
	ctx := context.Background()

	first, _ := svc.CreateSession(ctx, "user-1", "")
	second, _ := svc.CreateSession(ctx, "user-1", "")

	if _, err := svc.Invoke(ctx, "user-1", first, domain.NewTextMessage(domain.RoleHuman, "for first"), nil); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	msgs, err := svc.Recall(ctx, "user-1", second)
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("second session has %d messages, want 0", len(msgs))
	}

	msgs, _ = svc.Recall(ctx, "user-1", first)
	if len(msgs) != 2 || msgs[0].Content.Text != "for first" {
		t.Fatalf("first session history = %+v", msgs)
	}
}

func TestFormatContext(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		want   string
	}{
		{"empty", nil, ""},
		{"single", map[string]string{"city": "HK"}, "real-time context and information:\ncity:HK;"},
		{
			"sorted keys",
			map[string]string{"weather": "rainy", "city": "HK", "time": "12:00"},
			"real-time context and information:\ncity:HK;\ntime:12:00;\nweather:rainy;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatContext(tt.values); got != tt.want {
				t.Errorf("formatContext() = %q, want %q", got, tt.want)
			}
		})
	}
}
