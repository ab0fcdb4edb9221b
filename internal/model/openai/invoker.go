// Package openai provides a ModelInvoker backed by an OpenAI-compatible
// chat completion API.
package openai

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tjfontaine/chat-assistant/internal/core/domain"
	"github.com/tjfontaine/chat-assistant/internal/core/ports"
)

// Config configures the invoker.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Invoker calls a chat completion endpoint with the conversation
// working copy. Errors escape as-is; the chat service owns mapping
// them to the opaque upstream failure.
type Invoker struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

var _ ports.ModelInvoker = (*Invoker)(nil)

// New creates an invoker from config.
func New(cfg Config, logger *slog.Logger) *Invoker {
	if logger == nil {
		logger = slog.Default()
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Invoker{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		logger: logger,
	}
}

// Invoke sends the working copy to the model. The copy is disposable,
// so the system instruction and the trailing human message are pulled
// out of it directly: the instruction leads the request, the remaining
// history follows, and the trailing message closes it with its media
// attached.
func (i *Invoker) Invoke(ctx context.Context, view *domain.WorkingCopy) (domain.Message, error) {
	var req openai.ChatCompletionRequest
	req.Model = i.model

	if system, ok := view.RemoveSystemMessage(); ok {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system.Content.Text,
		})
	}

	current, hasCurrent := view.RemoveLastMessage()
	for _, msg := range view.Messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    mapRole(msg.Role),
			Content: msg.Content.Text,
		})
	}
	if hasCurrent {
		req.Messages = append(req.Messages, currentMessage(current))
	}

	resp, err := i.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.Message{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Message{}, fmt.Errorf("chat completion: no choices returned")
	}

	i.logger.Debug("chat completion finished",
		slog.String("model", i.model),
		slog.String("finish_reason", string(resp.Choices[0].FinishReason)),
	)
	return domain.NewTextMessage(domain.RoleAI, resp.Choices[0].Message.Content), nil
}

// currentMessage renders the trailing message, attaching media as
// image parts when present.
func currentMessage(msg domain.Message) openai.ChatCompletionMessage {
	if len(msg.Content.Media) == 0 {
		return openai.ChatCompletionMessage{
			Role:    mapRole(msg.Role),
			Content: msg.Content.Text,
		}
	}

	parts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: msg.Content.Text,
	}}
	for _, item := range msg.Content.Media {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: item.DataURI()},
		})
	}
	return openai.ChatCompletionMessage{
		Role:         mapRole(msg.Role),
		MultiContent: parts,
	}
}

func mapRole(role domain.Role) string {
	switch role {
	case domain.RoleAI:
		return openai.ChatMessageRoleAssistant
	case domain.RoleSystem:
		return openai.ChatMessageRoleSystem
	default:
		return openai.ChatMessageRoleUser
	}
}
