// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OTPIssued counts issued passcodes.
	OTPIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "funnel_otp_issued_total",
		Help: "Number of OTP codes issued.",
	})

	// OTPVerifications counts verification checks by result
	// (verified, mismatch, expired, too_many_attempts, not_found).
	OTPVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "funnel_otp_verifications_total",
		Help: "Number of OTP verification attempts by result.",
	}, []string{"result"})

	// LeadsCaptured counts lead capture submissions by resulting status.
	LeadsCaptured = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "funnel_leads_captured_total",
		Help: "Number of lead captures by lead status.",
	}, []string{"status"})

	// WebhookDispatches counts CRM webhook deliveries by outcome
	// (success, failure, timeout).
	WebhookDispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "funnel_webhook_dispatch_total",
		Help: "Number of CRM webhook dispatch attempts by outcome.",
	}, []string{"outcome"})
)
