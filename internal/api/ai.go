package api

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"w2s.io/advisor/internal/prompt"
)

// AIChatHandler forwards one composed request to the model.
func (h *APIHandler) AIChatHandler(w http.ResponseWriter, r *http.Request) {
	var req prompt.ChatRequest
	if !h.decode(w, r, &req) {
		return
	}
	reply, err := h.responder.Chat(r.Context(), req)
	if err != nil {
		log.Error().Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Int("history", len(req.ConversationHistory)).
			Msg("Error in AI chat endpoint")
		http.Error(w, "Error communicating with AI", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, prompt.ChatResponse{Response: reply})
}
