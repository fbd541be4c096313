package http

import (
	"github.com/callready/funnel-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/callready/funnel-api/internal/infrastructure/jwt"
	s3infra "github.com/callready/funnel-api/internal/infrastructure/s3"
	"github.com/callready/funnel-api/internal/infrastructure/smtp"
	"github.com/callready/funnel-api/internal/infrastructure/sns"
	"github.com/callready/funnel-api/internal/infrastructure/webhook"
)

// Deps holds all infrastructure dependencies for the router. SMSSender,
// Mailer, Archive and JWTProvider are optional; the router degrades
// gracefully when they are absent.
type Deps struct {
	ContactRepo *dynamo.ContactRepo
	LeadRepo    *dynamo.LeadRepo
	OTPRepo     *dynamo.OTPRepo
	EventRepo   *dynamo.EventRepo
	Dispatcher  webhook.Dispatcher
	Archive     *s3infra.Archive
	Mailer      smtp.Mailer
	SMSSender   sns.SMSSender
	JWTProvider *jwtinfra.Provider
}
