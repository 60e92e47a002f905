package api

import (
	"net/http"

	"w2s.io/advisor/internal/metrics"
	"w2s.io/advisor/internal/store"
)

type createUserRequest struct {
	Name         string              `json:"name"`
	Email        string              `json:"email" validate:"required,email"`
	FullName     string              `json:"full_name"`
	Role         store.Role          `json:"role" validate:"omitempty,oneof=user internal admin"`
	BusinessType *store.BusinessType `json:"business_type" validate:"omitnil,oneof=has_business wants_to_start unknown_start"`
	ReferredBy   *int64              `json:"referred_by"`
}

func (h *APIHandler) GetMeHandler(w http.ResponseWriter, r *http.Request) {
	u, err := h.db.GetUser(r.Context(), h.currentUserID)
	if err != nil {
		fail(w, r, err, "User")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *APIHandler) UpdateMeHandler(w http.ResponseWriter, r *http.Request) {
	var patch store.UserPatch
	if !h.decode(w, r, &patch) {
		return
	}
	u, err := h.db.UpdateUser(r.Context(), h.currentUserID, patch)
	if err != nil {
		fail(w, r, err, "User")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *APIHandler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.db.ListUsers(r.Context())
	if err != nil {
		fail(w, r, err, "User")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// CreateUserHandler adds a user who has not been through onboarding yet.
func (h *APIHandler) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	role := req.Role
	if role == "" {
		role = store.RoleUser
	}
	name := req.Name
	if name == "" {
		name = req.FullName
	}
	u := &store.User{
		Name:         name,
		Email:        req.Email,
		FullName:     req.FullName,
		Role:         role,
		BusinessType: req.BusinessType,
		ReferredBy:   req.ReferredBy,
	}
	if err := h.db.CreateUser(r.Context(), u); err != nil {
		fail(w, r, err, "User")
		return
	}
	metrics.RecordCreated("users")
	writeJSON(w, http.StatusCreated, u)
}

func (h *APIHandler) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "User")
	if !ok {
		return
	}
	var patch store.UserPatch
	if !h.decode(w, r, &patch) {
		return
	}
	u, err := h.db.UpdateUser(r.Context(), id, patch)
	if err != nil {
		fail(w, r, err, "User")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *APIHandler) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "User")
	if !ok {
		return
	}
	if err := h.db.DeleteUser(r.Context(), id); err != nil {
		fail(w, r, err, "User")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ReferralsHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.analytics.Referrals(r.Context(), h.currentUserID)
	if err != nil {
		fail(w, r, err, "User")
		return
	}
	writeJSON(w, http.StatusOK, users)
}
