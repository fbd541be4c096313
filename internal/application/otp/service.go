package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"time"

	"github.com/callready/funnel-api/internal/domain"
	"github.com/callready/funnel-api/internal/metrics"
	"github.com/callready/funnel-api/internal/pkg/phone"
)

var codePattern = regexp.MustCompile(`^\d{6}$`)

// Service issues and verifies phone passcodes.
type Service interface {
	// Issue generates a 6-digit code for the phone number, stores it with a
	// fresh attempt counter and returns the code so non-production responses
	// can echo it.
	Issue(ctx context.Context, phoneNumber string) (string, error)
	// Verify checks a submitted code against the stored record.
	Verify(ctx context.Context, phoneNumber, code string) error
}

type otpStore interface {
	Put(ctx context.Context, v *domain.OTPVerification) error
	Get(ctx context.Context, phoneNumber string) (*domain.OTPVerification, error)
	IncrementAttempts(ctx context.Context, v *domain.OTPVerification) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type service struct {
	repo   otpStore
	sender smsSender // nil when SMS delivery is not configured
}

type ServiceDeps struct {
	Repo      otpStore
	SMSSender smsSender
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.Repo, sender: deps.SMSSender}
}

func (s *service) Issue(ctx context.Context, phoneNumber string) (string, error) {
	if !phone.IsE164(phoneNumber) {
		return "", fmt.Errorf("phone number must be +1 followed by 10 digits: %w", domain.ErrBadRequest)
	}

	code, err := generateCode()
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	expires := now.Add(domain.OTPValidity)
	v := &domain.OTPVerification{
		PhoneNumber: phoneNumber,
		Code:        code,
		ExpiresAt:   expires,
		Attempts:    0,
		CreatedAt:   now,
		UpdatedAt:   now,
		PurgeAt:     expires.Add(24 * time.Hour).Unix(),
	}
	// Last write wins per phone number; any prior record is superseded.
	if err := s.repo.Put(ctx, v); err != nil {
		return "", fmt.Errorf("store verification code: %w", err)
	}
	metrics.OTPIssued.Inc()

	msg := fmt.Sprintf("Your SmallBizSimple verification code is: %s. This code expires in 10 minutes.", code)
	if s.sender == nil {
		// SMS delivery not configured; the would-be send is logged so the
		// gap is visible in every environment.
		slog.Info("sms delivery disabled, code not sent", "phone", phoneNumber)
		return code, nil
	}
	if err := s.sender.SendSMS(ctx, phoneNumber, msg); err != nil {
		// The code is already stored; the caller can re-request. Delivery
		// failure is not surfaced as an issuance failure.
		slog.Warn("sms send failed", "phone", phoneNumber, "err", err)
	}
	return code, nil
}

func (s *service) Verify(ctx context.Context, phoneNumber, code string) error {
	if !phone.IsE164(phoneNumber) {
		return fmt.Errorf("phone number must be +1 followed by 10 digits: %w", domain.ErrBadRequest)
	}
	if !codePattern.MatchString(code) {
		return fmt.Errorf("code must be 6 digits: %w", domain.ErrBadRequest)
	}

	v, err := s.repo.Get(ctx, phoneNumber)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.OTPVerifications.WithLabelValues("not_found").Inc()
			return fmt.Errorf("no verification code for this phone number: %w", err)
		}
		return fmt.Errorf("load verification code: %w", err)
	}

	now := time.Now().UTC()
	if now.After(v.ExpiresAt) {
		metrics.OTPVerifications.WithLabelValues("expired").Inc()
		return fmt.Errorf("verification code has expired, request a new one: %w", domain.ErrExpired)
	}
	if v.Attempts >= domain.MaxOTPAttempts {
		metrics.OTPVerifications.WithLabelValues("too_many_attempts").Inc()
		return fmt.Errorf("too many failed attempts, request a new code: %w", domain.ErrTooManyAttempts)
	}
	if v.Code != code {
		v.Attempts++
		v.UpdatedAt = now
		if err := s.repo.IncrementAttempts(ctx, v); err != nil {
			slog.Warn("failed to persist attempt counter", "phone", phoneNumber, "err", err)
		}
		metrics.OTPVerifications.WithLabelValues("mismatch").Inc()
		return fmt.Errorf("invalid verification code: %w", domain.ErrMismatch)
	}

	// A correct code leaves the record untouched: it stays valid until
	// expiry, so a successful check can be replayed within the window.
	metrics.OTPVerifications.WithLabelValues("verified").Inc()
	return nil
}

// generateCode returns a uniform random 6-digit code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}
