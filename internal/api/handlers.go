package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"w2s.io/advisor/internal/core"
	"w2s.io/advisor/internal/store"
)

type APIHandler struct {
	db            store.Store
	chats         *core.ChatService
	businesses    *core.BusinessService
	keys          *core.KeyService
	analytics     *core.AnalyticsService
	responder     core.Responder
	validate      *validator.Validate
	currentUserID int64
}

// NewAPIHandler wires the record handlers over db. Requests act as
// currentUserID; responder serves /ai/chat.
func NewAPIHandler(db store.Store, responder core.Responder, currentUserID int64, now store.Clock) *APIHandler {
	return &APIHandler{
		db:            db,
		chats:         core.NewChatService(db),
		businesses:    core.NewBusinessService(db),
		keys:          core.NewKeyService(db),
		analytics:     core.NewAnalyticsService(db, now),
		responder:     responder,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		currentUserID: currentUserID,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}

// decode reads the JSON body into dst and validates it. It writes the 400
// itself and reports false on failure.
func (h *APIHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			http.Error(w, fmt.Sprintf("Invalid field %s: failed %s", fe.Field(), fe.Tag()), http.StatusBadRequest)
			return false
		}
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// idParam parses the {id} route parameter. Ids that parse but can never
// exist answer 404 like any other unknown id.
func idParam(w http.ResponseWriter, r *http.Request, what string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return 0, false
	}
	if id <= 0 {
		http.Error(w, what+" not found", http.StatusNotFound)
		return 0, false
	}
	return id, true
}

// fail maps store errors onto HTTP responses. what names the record kind
// for the 404 body.
func fail(w http.ResponseWriter, r *http.Request, err error, what string) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, what+" not found", http.StatusNotFound)
		return
	}
	log.Error().Err(err).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("path", r.URL.Path).
		Msg("Request failed")
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
