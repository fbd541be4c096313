package handler

import (
	"encoding/json"
	"net/http"

	"github.com/callready/funnel-api/internal/application/lead"
	"github.com/callready/funnel-api/internal/pkg/validate"
	"github.com/callready/funnel-api/internal/transport/http/middleware"
)

// LeadHandler handles quiz funnel submission endpoints.
type LeadHandler struct {
	svc lead.Service
}

func NewLeadHandler(svc lead.Service) *LeadHandler {
	return &LeadHandler{svc: svc}
}

// leadRequest mirrors the funnel frontend's submission shape.
type leadRequest struct {
	// Only presence is validated: the funnel stores whatever string the
	// visitor typed, and a format gate here would drop otherwise-useful leads.
	Email             string         `json:"email" validate:"required"`
	FirstName         string         `json:"firstName"`
	LastName          string         `json:"lastName"`
	PhoneNumber       string         `json:"phoneNumber"`
	SessionID         string         `json:"sessionId"`
	FunnelType        string         `json:"funnelType"`
	ZipCode           string         `json:"zipCode"`
	State             string         `json:"state"`
	StateName         string         `json:"stateName"`
	QuizAnswers       map[string]any `json:"quizAnswers"`
	CalculatedResults any            `json:"calculatedResults"`
	LicensingInfo     any            `json:"licensingInfo"`
	UTMParams         map[string]any `json:"utmParams"`
}

func (b leadRequest) toCapture() lead.CaptureRequest {
	return lead.CaptureRequest{
		Email:             b.Email,
		FirstName:         b.FirstName,
		LastName:          b.LastName,
		PhoneNumber:       b.PhoneNumber,
		SessionID:         b.SessionID,
		FunnelType:        b.FunnelType,
		ZipCode:           b.ZipCode,
		State:             b.State,
		StateName:         b.StateName,
		QuizAnswers:       b.QuizAnswers,
		CalculatedResults: b.CalculatedResults,
		LicensingInfo:     b.LicensingInfo,
		UTMParams:         b.UTMParams,
	}
}

func requestMeta(r *http.Request) lead.RequestMeta {
	landing := r.Header.Get("X-Forwarded-Url")
	if landing == "" {
		landing = r.Header.Get("Referer")
	}
	return lead.RequestMeta{
		Referrer:  r.Header.Get("Referer"),
		PageURL:   landing,
		UserAgent: r.UserAgent(),
		IPAddress: middleware.ClientIP(r),
	}
}

// CaptureEmail persists a partial submission as soon as an email is known.
func (h *LeadHandler) CaptureEmail(w http.ResponseWriter, r *http.Request) {
	var body leadRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.CaptureEmail(r.Context(), body.toCapture(), requestMeta(r))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CaptureEnvelope{
		Success:    true,
		ContactID:  res.ContactID,
		LeadID:     res.LeadID,
		EventID:    res.EventID,
		Status:     res.LeadStatus,
		IsVerified: res.IsVerified,
	})
}

// VerifyAndForward finalizes a verified lead and forwards it to the CRM.
// A delivery failure still leaves the lead stored and verified.
func (h *LeadHandler) VerifyAndForward(w http.ResponseWriter, r *http.Request) {
	var body leadRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.VerifyAndForward(r.Context(), body.toCapture(), requestMeta(r))
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
