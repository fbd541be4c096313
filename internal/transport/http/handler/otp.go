package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/callready/funnel-api/internal/application/otp"
)

// OTPHandler handles phone verification endpoints.
type OTPHandler struct {
	svc otp.Service
	// echoCode includes the generated code in the send response. Enabled
	// outside production so the funnel can be exercised without real SMS.
	echoCode bool
}

func NewOTPHandler(svc otp.Service, echoCode bool) *OTPHandler {
	return &OTPHandler{svc: svc, echoCode: echoCode}
}

// Send issues a verification code to the submitted phone number.
func (h *OTPHandler) Send(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PhoneNumber string `json:"phoneNumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	code, err := h.svc.Issue(r.Context(), body.PhoneNumber)
	if err != nil {
		httpError(w, err)
		return
	}
	env := OTPSendEnvelope{Sent: true, Message: "verification code sent"}
	if h.echoCode {
		env.DevelopmentOTP = code
	}
	writeJSON(w, http.StatusOK, env)
}

// Verify checks a submitted code against the stored verification.
func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PhoneNumber string `json:"phoneNumber"`
		OTP         string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.Verify(r.Context(), body.PhoneNumber, body.OTP); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OTPVerifyEnvelope{
		Verified:    true,
		PhoneNumber: body.PhoneNumber,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}
