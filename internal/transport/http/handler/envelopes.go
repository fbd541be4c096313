package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/callready/funnel-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OTPSendEnvelope wraps verification-code issuance responses.
type OTPSendEnvelope struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message,omitempty"`
	// DevelopmentOTP is only populated outside production.
	DevelopmentOTP string `json:"developmentOTP,omitempty"`
	Error          string `json:"error,omitempty"`
}

// OTPVerifyEnvelope wraps verification-check responses.
type OTPVerifyEnvelope struct {
	Verified    bool   `json:"verified"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	Error       string `json:"error,omitempty"`
}

// CaptureEnvelope wraps lead capture responses.
type CaptureEnvelope struct {
	Success    bool   `json:"success"`
	ContactID  string `json:"contactId,omitempty"`
	LeadID     string `json:"leadId,omitempty"`
	EventID    string `json:"eventId,omitempty"`
	Status     string `json:"status,omitempty"`
	IsVerified bool   `json:"isVerified"`
	Error      string `json:"error,omitempty"`
}

// ForwardEnvelope wraps verify-and-forward responses.
type ForwardEnvelope struct {
	Success   bool   `json:"success"`
	ContactID string `json:"contactId,omitempty"`
	LeadID    string `json:"leadId,omitempty"`
	GHLStatus int    `json:"ghlStatus,omitempty"`
	Error     string `json:"error,omitempty"`
}

// AuthEnvelope wraps admin login responses.
type AuthEnvelope struct {
	Bearer string `json:"Bearer,omitempty"`
	Error  string `json:"error,omitempty"`
}

// PaginatedLeadsEnvelope wraps paginated lead list responses.
type PaginatedLeadsEnvelope struct {
	Data       []domain.Lead `json:"data"`
	NextCursor string        `json:"nextCursor,omitempty"`
	Error      string        `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps domain sentinel errors onto HTTP status codes.
func httpError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrBadRequest),
		errors.Is(err, domain.ErrExpired),
		errors.Is(err, domain.ErrTooManyAttempts),
		errors.Is(err, domain.ErrMismatch):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrUpstreamFailure):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
