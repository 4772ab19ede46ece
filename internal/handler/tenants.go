package handler

import (
	"net/http"

	"financeplanner/internal/tenancy"
	"financeplanner/internal/tenant"
)

// TenantsHandler serves tenant and membership management.
type TenantsHandler struct {
	manager *tenancy.Manager
}

// NewTenantsHandler creates a new tenants handler.
func NewTenantsHandler(manager *tenancy.Manager) *TenantsHandler {
	return &TenantsHandler{manager: manager}
}

type tenantNameRequest struct {
	Name string `json:"name"`
}

type inviteRequest struct {
	AuthUserID string `json:"auth_user_id"`
	Role       string `json:"role"`
}

type roleRequest struct {
	Role string `json:"role"`
}

type tenantListResponse struct {
	Tenants []*tenant.Summary `json:"tenants"`
	Total   int               `json:"total"`
}

type memberRemovedResponse struct {
	Message       string `json:"message"`
	RemovedUserID int64  `json:"removed_user_id"`
}

// ListMine handles GET /api/v1/tenants
func (h *TenantsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}

	tenants, err := h.manager.ListForUser(r.Context(), u)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tenantListResponse{Tenants: tenants, Total: len(tenants)})
}

// Create handles POST /api/v1/tenants
func (h *TenantsHandler) Create(w http.ResponseWriter, r *http.Request) {
	u, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req tenantNameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	summary, err := h.manager.Create(r.Context(), u, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, summary)
}

// GetCurrent handles GET /api/v1/tenants/me
func (h *TenantsHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	ac, ok := tenantContext(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.manager.GetCurrent(ac))
}

// Update handles PATCH /api/v1/tenants/me
func (h *TenantsHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac, ok := tenantContext(w, r)
	if !ok {
		return
	}

	var req tenantNameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	t, err := h.manager.UpdateName(r.Context(), ac, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

// Delete handles DELETE /api/v1/tenants/me
func (h *TenantsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac, ok := tenantContext(w, r)
	if !ok {
		return
	}

	if err := h.manager.Delete(r.Context(), ac); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMembers handles GET /api/v1/tenants/me/members
func (h *TenantsHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	ac, ok := tenantContext(w, r)
	if !ok {
		return
	}

	members, err := h.manager.ListMembers(r.Context(), ac)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, members)
}

// Invite handles POST /api/v1/tenants/me/members
func (h *TenantsHandler) Invite(w http.ResponseWriter, r *http.Request) {
	ac, ok := tenantContext(w, r)
	if !ok {
		return
	}

	var req inviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	member, err := h.manager.Invite(r.Context(), ac, req.AuthUserID, tenant.Role(req.Role))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, member)
}

// UpdateRole handles PATCH /api/v1/tenants/me/members/{user_id}/role
func (h *TenantsHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	ac, ok := tenantContext(w, r)
	if !ok {
		return
	}

	userID, err := pathID(r, "user_id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req roleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	membership, err := h.manager.UpdateMemberRole(r.Context(), ac, userID, tenant.Role(req.Role))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, membership)
}

// RemoveMember handles DELETE /api/v1/tenants/me/members/{user_id}
func (h *TenantsHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	ac, ok := tenantContext(w, r)
	if !ok {
		return
	}

	userID, err := pathID(r, "user_id")
	if err != nil {
		writeError(w, err)
		return
	}

	removed, err := h.manager.RemoveMember(r.Context(), ac, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, memberRemovedResponse{
		Message:       "member removed",
		RemovedUserID: removed.UserID,
	})
}
