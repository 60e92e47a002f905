package api

import (
	"net/http"

	"w2s.io/advisor/internal/core"
	"w2s.io/advisor/internal/metrics"
	"w2s.io/advisor/internal/store"
)

// GetChatSettingsHandler answers null until settings have been created.
func (h *APIHandler) GetChatSettingsHandler(w http.ResponseWriter, r *http.Request) {
	cs, err := h.db.GetChatSettings(r.Context())
	if err != nil {
		fail(w, r, err, "Chat settings")
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

// CreateChatSettingsHandler creates the settings once. Later calls return the
// stored record with 200.
func (h *APIHandler) CreateChatSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var req store.ChatSettings
	if !h.decode(w, r, &req) {
		return
	}
	cs, created, err := h.db.CreateChatSettings(r.Context(), req)
	if err != nil {
		fail(w, r, err, "Chat settings")
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
		metrics.RecordCreated("chat_settings")
	}
	writeJSON(w, status, cs)
}

func (h *APIHandler) ListKeysHandler(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.List(r.Context())
	if err != nil {
		fail(w, r, err, "API key")
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

func (h *APIHandler) CreateKeyHandler(w http.ResponseWriter, r *http.Request) {
	var req core.NewAPIKey
	if !h.decode(w, r, &req) {
		return
	}
	k, err := h.keys.Create(r.Context(), req)
	if err != nil {
		fail(w, r, err, "API key")
		return
	}
	metrics.RecordCreated("api_keys")
	writeJSON(w, http.StatusCreated, k)
}

func (h *APIHandler) UpdateKeyHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "API key")
	if !ok {
		return
	}
	var patch store.APIKeyPatch
	if !h.decode(w, r, &patch) {
		return
	}
	k, err := h.db.UpdateAPIKey(r.Context(), id, patch)
	if err != nil {
		fail(w, r, err, "API key")
		return
	}
	writeJSON(w, http.StatusOK, k)
}

func (h *APIHandler) DeleteKeyHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "API key")
	if !ok {
		return
	}
	if err := h.db.DeleteAPIKey(r.Context(), id); err != nil {
		fail(w, r, err, "API key")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) AnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	sum, err := h.analytics.Summary(r.Context())
	if err != nil {
		fail(w, r, err, "Analytics")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *APIHandler) UserStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analytics.UserStats(r.Context())
	if err != nil {
		fail(w, r, err, "User")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
