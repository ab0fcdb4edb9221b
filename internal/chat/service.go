// Package chat implements the session lifecycle core: a guarded,
// stateless service that materializes conversation records on first
// access, mediates reads and writes, and drives the single round-trip
// of "append user message, invoke model, append reply, commit".
package chat

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tjfontaine/chat-assistant/internal/core/domain"
	"github.com/tjfontaine/chat-assistant/internal/core/ports"
	"github.com/tjfontaine/chat-assistant/internal/guard"
)

// Action names checked by the guard chain.
const (
	ActionCreate = "chat.create"
	ActionInvoke = "chat.invoke"
	ActionRecall = "chat.recall"
)

const contextPreamble = "real-time context and information:"

// degradedReply is returned, without any persistence, when the inbound
// message cannot be sent to the model.
var degradedReply = domain.NewTextMessage(domain.RoleSystem, "Please provide a message.")

// Service is the session controller. It is stateless with respect to
// sessions: every operation takes the session id explicitly, so there
// is no current-session field to reset and no stale record can leak
// across calls.
type Service struct {
	store    ports.ChatStore
	model    ports.ModelInvoker
	chain    *guard.Chain
	registry *Registry
	logger   *slog.Logger

	// locks serializes read-append-commit per session within this
	// process. SQLite's write transaction handles cross-connection
	// writers; this keeps two in-process invokes on the same session
	// from interleaving their appends.
	locks sessionLocks
}

// NewService wires the session controller.
func NewService(store ports.ChatStore, model ports.ModelInvoker, chain *guard.Chain, registry *Registry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		model:    model,
		chain:    chain,
		registry: registry,
		logger:   logger,
	}
}

// CallOption adjusts a single guarded call. The bypass options exist
// for trusted system-to-system callers and are never reachable from
// the HTTP surface.
type CallOption func(*callOptions)

type callOptions struct {
	bypass            guard.Bypass
	bypassAssociation bool
}

// BypassFeatureCheck skips the feature-enablement guard.
func BypassFeatureCheck() CallOption {
	return func(o *callOptions) { o.bypass.Feature = true }
}

// BypassPermissionCheck skips the permission guard.
func BypassPermissionCheck() CallOption {
	return func(o *callOptions) { o.bypass.Permission = true }
}

// BypassQuotaCheck skips the quota guard.
func BypassQuotaCheck() CallOption {
	return func(o *callOptions) { o.bypass.Quota = true }
}

// BypassAssociationCheck skips the session-ownership pre-check.
func BypassAssociationCheck() CallOption {
	return func(o *callOptions) { o.bypassAssociation = true }
}

func applyOptions(opts []CallOption) callOptions {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// CreateSession establishes a session for principal. When explicitID
// is empty a fresh id is derived from a newly initialized empty
// record; otherwise the given id is used. The ownership link is
// registered either way.
func (s *Service) CreateSession(ctx context.Context, principal, explicitID string, opts ...CallOption) (string, error) {
	o := applyOptions(opts)
	if err := s.chain.Check(ctx, principal, ActionCreate, o.bypass); err != nil {
		return "", err
	}

	sessionID := explicitID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if _, err := s.store.InitConversation(ctx, sessionID); err != nil {
		return "", fmt.Errorf("initialize session %s: %w", sessionID, err)
	}
	if err := s.registry.Associate(ctx, sessionID, principal); err != nil {
		return "", err
	}

	s.logger.Info("session created",
		slog.String("session_id", sessionID),
		slog.String("principal", principal),
	)
	return sessionID, nil
}

// Invoke runs one conversation round-trip: append the human message,
// call the model with a working copy of the history, append the reply,
// and commit both appends atomically. The reply message is returned.
//
// An empty inbound message yields a degraded reply and persists
// nothing. Any model failure is logged in full and surfaced as a
// single opaque upstream error.
func (s *Service) Invoke(ctx context.Context, principal, sessionID string, msg domain.Message, contextValues map[string]string, opts ...CallOption) (domain.Message, error) {
	o := applyOptions(opts)
	if err := s.chain.Check(ctx, principal, ActionInvoke, o.bypass); err != nil {
		return domain.Message{}, err
	}
	if err := s.checkAssociation(ctx, principal, sessionID, ActionInvoke, o); err != nil {
		return domain.Message{}, err
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	msgs, err := s.store.InitConversation(ctx, sessionID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("initialize session %s: %w", sessionID, err)
	}
	record := NewRecord(sessionID, msgs)

	if strings.TrimSpace(msg.Content.Text) == "" || msg.Role != domain.RoleHuman {
		return degradedReply, nil
	}

	contextText := formatContext(contextValues)
	working := record.WorkingCopy()
	if contextText != "" {
		// The synthesized context message lives only in the working
		// copy handed to the model; it is never persisted.
		working.Append(domain.NewTextMessage(domain.RoleSystem, contextText))
	}
	working.Append(msg.Clone())

	reply, err := s.model.Invoke(ctx, working)
	if err != nil {
		s.logger.Error("chat model invocation failed",
			slog.String("session_id", sessionID),
			slog.String("principal", principal),
			slog.Any("error", err),
		)
		return domain.Message{}, domain.UpstreamInvocationError(ActionInvoke)
	}
	reply.Role = domain.RoleAI

	// The record enforces the system-first invariant and role validity
	// before anything reaches the store.
	for _, m := range []domain.Message{msg, reply} {
		if err := record.Append(m); err != nil {
			return domain.Message{}, fmt.Errorf("append to session %s: %w", sessionID, err)
		}
	}
	if err := s.store.AppendMessages(ctx, sessionID, []domain.Message{msg, reply}); err != nil {
		return domain.Message{}, fmt.Errorf("commit session %s: %w", sessionID, err)
	}

	s.logger.Info("chat model invoked",
		slog.String("session_id", sessionID),
		slog.String("principal", principal),
	)
	return reply, nil
}

// Recall returns the full persisted message sequence for sessionID.
func (s *Service) Recall(ctx context.Context, principal, sessionID string, opts ...CallOption) ([]domain.Message, error) {
	o := applyOptions(opts)
	if err := s.chain.Check(ctx, principal, ActionRecall, o.bypass); err != nil {
		return nil, err
	}
	if err := s.checkAssociation(ctx, principal, sessionID, ActionRecall, o); err != nil {
		return nil, err
	}

	msgs, err := s.store.InitConversation(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("initialize session %s: %w", sessionID, err)
	}
	return msgs, nil
}

// Registry exposes association queries for callers outside this
// package (the HTTP layer, internal tooling).
func (s *Service) Registry() *Registry {
	return s.registry
}

func (s *Service) checkAssociation(ctx context.Context, principal, sessionID, action string, o callOptions) error {
	if o.bypassAssociation {
		return nil
	}
	ok, err := s.registry.IsAssociated(ctx, sessionID, principal)
	if err != nil {
		return fmt.Errorf("check session association: %w", err)
	}
	if !ok {
		return domain.NotAuthorized(action, "the principal is not associated with the specified session")
	}
	return nil
}

// formatContext renders key/value pairs as "key:value;" lines in
// sorted key order, under a fixed preamble. Empty input yields "".
func formatContext(values map[string]string) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(contextPreamble)
	for _, k := range keys {
		b.WriteString("\n")
		b.WriteString(k)
		b.WriteString(":")
		b.WriteString(values[k])
		b.WriteString(";")
	}
	return b.String()
}

// sessionLocks is a fixed set of striped mutexes keyed by session id.
const lockStripes = 64

type sessionLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (l *sessionLocks) lock(sessionID string) func() {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	m := &l.stripes[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}
