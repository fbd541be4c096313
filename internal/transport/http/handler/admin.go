package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/callready/funnel-api/internal/application/admin"
)

// AdminHandler handles the internal operations endpoints.
type AdminHandler struct {
	svc admin.Service
}

func NewAdminHandler(svc admin.Service) *AdminHandler {
	return &AdminHandler{svc: svc}
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, err := h.svc.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{Bearer: token})
}

func (h *AdminHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	leads, next, err := h.svc.ListLeads(r.Context(), int32(limit), r.URL.Query().Get("cursor"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PaginatedLeadsEnvelope{Data: leads, NextCursor: next})
}

// ResendWebhook re-dispatches the CRM webhook for a stored lead, for
// recovering deliveries that failed or were rejected upstream.
func (h *AdminHandler) ResendWebhook(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ResendWebhook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		env := ForwardEnvelope{Error: err.Error()}
		if res != nil {
			env.ContactID = res.ContactID
			env.LeadID = res.LeadID
			env.GHLStatus = res.CRMStatus
		}
		writeJSON(w, statusFor(err), env)
		return
	}
	writeJSON(w, http.StatusOK, ForwardEnvelope{
		Success:   true,
		ContactID: res.ContactID,
		LeadID:    res.LeadID,
		GHLStatus: res.CRMStatus,
	})
}
