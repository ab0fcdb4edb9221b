package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/chat-assistant/internal/chat"
	"github.com/tjfontaine/chat-assistant/internal/core/domain"
)

// Handlers exposes the chat service over HTTP. This layer is a thin
// adapter: it decodes requests, resolves the principal from context,
// and maps domain error kinds to status codes. Guard bypass flags are
// deliberately not representable here.
type Handlers struct {
	service *chat.Service
	logger  *slog.Logger
}

// NewHandlers creates the HTTP handlers for the chat service.
func NewHandlers(service *chat.Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{service: service, logger: logger}
}

type createSessionRequest struct {
	SessionID string `json:"sessionId,omitempty"`
}

type createSessionResponse struct {
	SessionID string `json:"sessionId"`
}

type chatRequest struct {
	SessionID string            `json:"chatId"`
	Content   chatContent       `json:"content"`
	Context   map[string]string `json:"context,omitempty"`
}

type chatContent struct {
	Message string   `json:"message"`
	Media   []string `json:"media,omitempty"` // data: URIs
}

type chatResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"chatId"`
}

type messageView struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type recallResponse struct {
	SessionID string        `json:"chatId"`
	Messages  []messageView `json:"messages"`
}

// HandleCreateSession handles POST /v1/sessions.
func (h *Handlers) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	sessionID, err := h.service.CreateSession(r.Context(), GetPrincipal(r.Context()), req.SessionID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: sessionID})
}

// HandleChat handles POST /v1/chat.
func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "chatId is required")
		return
	}

	media := make([]domain.MediaItem, 0, len(req.Content.Media))
	for _, uri := range req.Content.Media {
		item, err := domain.MediaFromDataURI(uri)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid media payload")
			return
		}
		media = append(media, item)
	}

	msg := domain.NewMessage(domain.RoleHuman, req.Content.Message, media)
	reply, err := h.service.Invoke(r.Context(), GetPrincipal(r.Context()), req.SessionID, msg, req.Context)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Message:   reply.Content.Text,
		SessionID: req.SessionID,
	})
}

// HandleRecall handles GET /v1/sessions/{sessionID}/messages.
func (h *Handlers) HandleRecall(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	msgs, err := h.service.Recall(r.Context(), GetPrincipal(r.Context()), sessionID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, messageView{Role: string(m.Role), Text: m.Content.Text})
	}
	writeJSON(w, http.StatusOK, recallResponse{SessionID: sessionID, Messages: views})
}

func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch domain.KindOf(err) {
	case domain.KindNotAuthorized:
		status = http.StatusForbidden
	case domain.KindFeatureDisabled:
		status = http.StatusServiceUnavailable
	case domain.KindQuotaExceeded:
		status = http.StatusTooManyRequests
	case domain.KindInvalidInput:
		status = http.StatusBadRequest
	case domain.KindUpstreamInvocation:
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			slog.String("request_id", GetRequestID(r.Context())),
			slog.Any("error", err),
		)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
