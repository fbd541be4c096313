// Package admin backs the internal operations surface: credentialed login
// and read access to captured leads, plus manual webhook re-delivery.
package admin

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/callready/funnel-api/internal/application/lead"
	"github.com/callready/funnel-api/internal/domain"
)

type tokenSigner interface {
	Sign(username string) (string, error)
}

type Service interface {
	Login(ctx context.Context, username, password string) (string, error)
	ListLeads(ctx context.Context, limit int32, cursor string) ([]domain.Lead, string, error)
	ResendWebhook(ctx context.Context, leadID string) (*lead.ForwardResult, error)
}

type service struct {
	leads        lead.Service
	signer       tokenSigner
	username     string
	passwordHash string
}

type ServiceDeps struct {
	LeadService  lead.Service
	Signer       tokenSigner
	Username     string
	PasswordHash string // bcrypt hash of the admin password
}

func NewService(deps ServiceDeps) Service {
	return &service{
		leads:        deps.LeadService,
		signer:       deps.Signer,
		username:     deps.Username,
		passwordHash: deps.PasswordHash,
	}
}

func (s *service) Login(ctx context.Context, username, password string) (string, error) {
	if username != s.username {
		return "", fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	return s.signer.Sign(username)
}

func (s *service) ListLeads(ctx context.Context, limit int32, cursor string) ([]domain.Lead, string, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	return s.leads.List(ctx, limit, cursor)
}

func (s *service) ResendWebhook(ctx context.Context, leadID string) (*lead.ForwardResult, error) {
	if leadID == "" {
		return nil, fmt.Errorf("lead id is required: %w", domain.ErrBadRequest)
	}
	return s.leads.Resend(ctx, leadID)
}
