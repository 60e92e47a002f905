package api

import (
	"net/http"

	"w2s.io/advisor/internal/core"
	"w2s.io/advisor/internal/metrics"
	"w2s.io/advisor/internal/store"
)

func (h *APIHandler) ListBusinessesHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.businesses.List(r.Context(), h.currentUserID)
	if err != nil {
		fail(w, r, err, "Business")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *APIHandler) CreateBusinessHandler(w http.ResponseWriter, r *http.Request) {
	var req core.NewBusiness
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.businesses.Create(r.Context(), h.currentUserID, req)
	if err != nil {
		fail(w, r, err, "Business")
		return
	}
	metrics.RecordCreated("businesses")
	writeJSON(w, http.StatusCreated, b)
}

func (h *APIHandler) UpdateBusinessHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "Business")
	if !ok {
		return
	}
	var patch store.BusinessPatch
	if !h.decode(w, r, &patch) {
		return
	}
	b, err := h.businesses.Update(r.Context(), h.currentUserID, id, patch)
	if err != nil {
		fail(w, r, err, "Business")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *APIHandler) DeleteBusinessHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "Business")
	if !ok {
		return
	}
	if err := h.businesses.Delete(r.Context(), h.currentUserID, id); err != nil {
		fail(w, r, err, "Business")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) SetPrimaryBusinessHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "Business")
	if !ok {
		return
	}
	b, err := h.businesses.SetPrimary(r.Context(), h.currentUserID, id)
	if err != nil {
		fail(w, r, err, "Business")
		return
	}
	writeJSON(w, http.StatusOK, b)
}
