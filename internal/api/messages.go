package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"w2s.io/advisor/internal/metrics"
	"w2s.io/advisor/internal/store"
)

type createMessageRequest struct {
	ConversationID string            `json:"conversation_id" validate:"required"`
	Role           store.MessageRole `json:"role" validate:"required,oneof=user assistant"`
	Content        string            `json:"content" validate:"required"`
}

type createSavedRequest struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	Title          string `json:"title" validate:"max=200"`
}

func (h *APIHandler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	h.listMessages(w, r, store.MessageFilter{})
}

// FilterMessagesHandler lists one conversation's messages, or every message
// when conversation_id is absent.
func (h *APIHandler) FilterMessagesHandler(w http.ResponseWriter, r *http.Request) {
	convID := r.URL.Query().Get("conversation_id")
	h.listMessages(w, r, store.MessageFilter{ConversationID: convID})
}

func (h *APIHandler) listMessages(w http.ResponseWriter, r *http.Request, filter store.MessageFilter) {
	msgs, err := h.db.ListMessages(r.Context(), filter)
	if err != nil {
		fail(w, r, err, "Message")
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *APIHandler) CreateMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req createMessageRequest
	if !h.decode(w, r, &req) {
		return
	}
	msg := &store.Message{
		ConversationID: req.ConversationID,
		Role:           req.Role,
		Content:        req.Content,
	}
	if err := h.chats.PostMessage(r.Context(), h.currentUserID, msg); err != nil {
		fail(w, r, err, "Message")
		return
	}
	metrics.RecordCreated("messages")
	writeJSON(w, http.StatusCreated, msg)
}

func (h *APIHandler) DeleteMessageHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "Message")
	if !ok {
		return
	}
	if err := h.db.DeleteMessage(r.Context(), id); err != nil {
		fail(w, r, err, "Message")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	convs, err := h.chats.Conversations(r.Context())
	if err != nil {
		fail(w, r, err, "Conversation")
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

func (h *APIHandler) DeleteConversationHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := h.chats.DeleteConversation(r.Context(), chi.URLParam(r, "conversationID")); err != nil {
		fail(w, r, err, "Conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ListSavedHandler(w http.ResponseWriter, r *http.Request) {
	h.listSaved(w, r, "")
}

// FilterSavedHandler falls back to the full list without conversation_id.
func (h *APIHandler) FilterSavedHandler(w http.ResponseWriter, r *http.Request) {
	convID := r.URL.Query().Get("conversation_id")
	h.listSaved(w, r, convID)
}

func (h *APIHandler) listSaved(w http.ResponseWriter, r *http.Request, convID string) {
	saved, err := h.db.ListSavedConversations(r.Context(), convID)
	if err != nil {
		fail(w, r, err, "Saved conversation")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *APIHandler) CreateSavedHandler(w http.ResponseWriter, r *http.Request) {
	var req createSavedRequest
	if !h.decode(w, r, &req) {
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "New conversation"
	}
	sc := &store.SavedConversation{ConversationID: req.ConversationID, Title: title}
	if err := h.db.CreateSavedConversation(r.Context(), sc); err != nil {
		fail(w, r, err, "Saved conversation")
		return
	}
	metrics.RecordCreated("saved_conversations")
	writeJSON(w, http.StatusCreated, sc)
}

func (h *APIHandler) DeleteSavedHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "Saved conversation")
	if !ok {
		return
	}
	if err := h.db.DeleteSavedConversation(r.Context(), id); err != nil {
		fail(w, r, err, "Saved conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
