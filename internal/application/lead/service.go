package lead

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/callready/funnel-api/internal/domain"
	"github.com/callready/funnel-api/internal/infrastructure/webhook"
	"github.com/callready/funnel-api/internal/metrics"
	"github.com/callready/funnel-api/internal/pkg/id"
	"github.com/callready/funnel-api/internal/pkg/phone"
)

const (
	contactSource = "smallbizsimple_quiz"
	crmSource     = "SmallBizSimple Quiz"

	// placeholderLeadScore is sent until real scoring exists on the CRM side.
	placeholderLeadScore = 75
)

// CaptureRequest is one funnel submission. The same shape feeds both the
// email-capture and the verify-and-forward paths.
type CaptureRequest struct {
	Email             string
	FirstName         string
	LastName          string
	PhoneNumber       string
	SessionID         string
	FunnelType        string
	ZipCode           string
	State             string
	StateName         string
	QuizAnswers       map[string]any
	CalculatedResults any
	LicensingInfo     any
	UTMParams         map[string]any
}

// RequestMeta carries request-derived fields used for analytics events and
// lead enrichment.
type RequestMeta struct {
	Referrer  string
	PageURL   string
	UserAgent string
	IPAddress string
}

// CaptureResult identifies the records touched by a capture submission.
type CaptureResult struct {
	ContactID  string
	LeadID     string
	EventID    string
	LeadStatus string
	IsVerified bool
}

// ForwardResult identifies the records touched by a verify-and-forward call
// plus the CRM's HTTP status (0 when no response arrived).
type ForwardResult struct {
	ContactID string
	LeadID    string
	CRMStatus int
}

// Service implements the lead capture/merge flows.
type Service interface {
	CaptureEmail(ctx context.Context, req CaptureRequest, meta RequestMeta) (*CaptureResult, error)
	VerifyAndForward(ctx context.Context, req CaptureRequest, meta RequestMeta) (*ForwardResult, error)
	// List pages through all leads, for the admin surface.
	List(ctx context.Context, limit int32, cursor string) ([]domain.Lead, string, error)
	// Resend re-dispatches the CRM webhook for a stored lead.
	Resend(ctx context.Context, leadID string) (*ForwardResult, error)
}

type contactStore interface {
	Put(ctx context.Context, c *domain.Contact) error
	Get(ctx context.Context, contactID string) (*domain.Contact, error)
	GetByEmail(ctx context.Context, email string) (*domain.Contact, error)
	GetByPhoneHash(ctx context.Context, phoneHash string) (*domain.Contact, error)
	Update(ctx context.Context, contactID string, updates map[string]interface{}) error
}

type leadStore interface {
	Put(ctx context.Context, l *domain.Lead) error
	Get(ctx context.Context, leadID string) (*domain.Lead, error)
	GetByContactSession(ctx context.Context, contactID, sessionID string) (*domain.Lead, error)
	Update(ctx context.Context, leadID string, updates map[string]interface{}) error
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Lead, string, error)
}

type eventStore interface {
	Put(ctx context.Context, e *domain.AnalyticsEvent) error
	LatestForSession(ctx context.Context, sessionID string) (*domain.AnalyticsEvent, error)
}

type payloadArchive interface {
	Store(ctx context.Context, key string, body []byte) (string, error)
}

type alertMailer interface {
	SendEmail(to, subject, body string) error
}

type service struct {
	contacts      contactStore
	leads         leadStore
	events        eventStore
	dispatcher    webhook.Dispatcher
	archive       payloadArchive // nil when no audit bucket is configured
	mailer        alertMailer    // nil when ops alerting is not configured
	alertEmail    string
	webhookURL    string
	siteKey       string
	defaultFunnel string
}

type ServiceDeps struct {
	ContactRepo   contactStore
	LeadRepo      leadStore
	EventRepo     eventStore
	Dispatcher    webhook.Dispatcher
	Archive       payloadArchive
	Mailer        alertMailer
	AlertEmail    string
	WebhookURL    string
	SiteKey       string
	DefaultFunnel string
}

func NewService(deps ServiceDeps) Service {
	return &service{
		contacts:      deps.ContactRepo,
		leads:         deps.LeadRepo,
		events:        deps.EventRepo,
		dispatcher:    deps.Dispatcher,
		archive:       deps.Archive,
		mailer:        deps.Mailer,
		alertEmail:    deps.AlertEmail,
		webhookURL:    deps.WebhookURL,
		siteKey:       deps.SiteKey,
		defaultFunnel: deps.DefaultFunnel,
	}
}

func (s *service) CaptureEmail(ctx context.Context, req CaptureRequest, meta RequestMeta) (*CaptureResult, error) {
	if req.Email == "" {
		return nil, fmt.Errorf("email is required: %w", domain.ErrBadRequest)
	}

	contact, err := s.upsertContact(ctx, req.Email, req.FirstName, req.LastName, req.PhoneNumber)
	if err != nil {
		return nil, err
	}

	lead, err := s.upsertLead(ctx, contact, req, meta, false, contact.Email)
	if err != nil {
		return nil, err
	}
	metrics.LeadsCaptured.WithLabelValues(lead.Status).Inc()

	eventName := "email_captured"
	if req.PhoneNumber != "" {
		eventName = "lead_captured"
	}
	eventID := s.logEvent(ctx, &domain.AnalyticsEvent{
		EventName:     eventName,
		EventCategory: "lead_generation",
		EventLabel:    contactSource,
		UserID:        contact.Email,
		SessionID:     req.SessionID,
		PageURL:       meta.Referrer,
		UserAgent:     meta.UserAgent,
		IPAddress:     meta.IPAddress,
		Properties: map[string]any{
			"site_key":           s.siteKey,
			"email":              contact.Email,
			"first_name":         req.FirstName,
			"last_name":          req.LastName,
			"phone":              req.PhoneNumber,
			"quiz_answers":       req.QuizAnswers,
			"calculated_results": req.CalculatedResults,
			"licensing_info":     req.LicensingInfo,
			"funnel_type":        lead.FunnelType,
			"zip_code":           req.ZipCode,
			"state":              req.State,
			"state_name":         req.StateName,
			"status":             lead.Status,
			"is_verified":        lead.IsVerified,
			"utm_parameters":     req.UTMParams,
		},
	})

	return &CaptureResult{
		ContactID:  contact.ContactID,
		LeadID:     lead.LeadID,
		EventID:    eventID,
		LeadStatus: lead.Status,
		IsVerified: lead.IsVerified,
	}, nil
}

func (s *service) VerifyAndForward(ctx context.Context, req CaptureRequest, meta RequestMeta) (*ForwardResult, error) {
	if req.Email == "" || req.PhoneNumber == "" {
		return nil, fmt.Errorf("email and phone number are required: %w", domain.ErrBadRequest)
	}

	contact, err := s.upsertContact(ctx, req.Email, req.FirstName, req.LastName, req.PhoneNumber)
	if err != nil {
		return nil, err
	}

	lead, err := s.upsertLead(ctx, contact, req, meta, true, "")
	if err != nil {
		return nil, err
	}
	metrics.LeadsCaptured.WithLabelValues(lead.Status).Inc()

	payload := s.buildPayload(req, contact, lead)
	return s.dispatch(ctx, lead, contact, payload, req.SessionID, meta)
}

func (s *service) List(ctx context.Context, limit int32, cursor string) ([]domain.Lead, string, error) {
	return s.leads.ScanPage(ctx, limit, cursor)
}

func (s *service) Resend(ctx context.Context, leadID string) (*ForwardResult, error) {
	lead, err := s.leads.Get(ctx, leadID)
	if err != nil {
		return nil, err
	}
	contact, err := s.contacts.Get(ctx, lead.ContactID)
	if err != nil {
		return nil, err
	}

	payload := &webhook.Payload{
		FirstName:         contact.FirstName,
		LastName:          contact.LastName,
		Email:             contact.Email,
		Phone:             phone.FormatE164(contact.Phone),
		ZipCode:           lead.ZipCode,
		State:             lead.State,
		StateName:         lead.StateName,
		Source:            crmSource,
		FunnelType:        lead.FunnelType,
		QuizAnswers:       lead.QuizAnswers,
		CalculatedResults: lead.QuizAnswers[keyCalculatedResults],
		LicensingInfo:     lead.QuizAnswers[keyLicensingInfo],
		LeadScore:         placeholderLeadScore,
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
		UTMParams:         asMap(lead.QuizAnswers[keyUTMParameters]),
	}
	return s.dispatch(ctx, lead, contact, payload, lead.SessionID, RequestMeta{})
}

// upsertContact finds or creates the contact for a submission. Existing
// contacts are filled additively: populated fields are never overwritten.
// When an email match and a phone match both exist, the email match wins.
func (s *service) upsertContact(ctx context.Context, email, firstName, lastName, rawPhone string) (*domain.Contact, error) {
	emailLower := strings.ToLower(strings.TrimSpace(email))

	var e164, fingerprint string
	if rawPhone != "" {
		e164 = phone.FormatE164(rawPhone)
		fingerprint = phone.Hash(e164)
	}

	existing, err := s.contacts.GetByEmail(ctx, emailLower)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing == nil && fingerprint != "" {
		existing, err = s.contacts.GetByPhoneHash(ctx, fingerprint)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	if existing != nil {
		updates := map[string]interface{}{}
		if firstName != "" && existing.FirstName == "" {
			updates["first_name"] = firstName
			existing.FirstName = firstName
		}
		if lastName != "" && existing.LastName == "" {
			updates["last_name"] = lastName
			existing.LastName = lastName
		}
		if e164 != "" && existing.Phone == "" {
			updates["phone"] = e164
			updates["phone_hash"] = fingerprint
			existing.Phone = e164
			existing.PhoneHash = fingerprint
		}
		if emailLower != "" && existing.Email == "" {
			updates["email"] = emailLower
			existing.Email = emailLower
		}
		if len(updates) > 0 {
			if err := s.contacts.Update(ctx, existing.ContactID, updates); err != nil {
				return nil, err
			}
		}
		return existing, nil
	}

	now := time.Now().UTC()
	c := &domain.Contact{
		ContactID: id.New(),
		Email:     emailLower,
		Phone:     e164,
		PhoneHash: fingerprint,
		FirstName: firstName,
		LastName:  lastName,
		Source:    contactSource,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.contacts.Put(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// upsertLead finds or creates the lead for (contact, session), merging the
// submission into any stored state. fallbackUserID fills user_id when no
// analytics event supplied one (the capture path passes the email, the
// forward path passes nothing, matching the site's original behavior).
func (s *service) upsertLead(ctx context.Context, contact *domain.Contact, req CaptureRequest, meta RequestMeta, verified bool, fallbackUserID string) (*domain.Lead, error) {
	var existing *domain.Lead
	if req.SessionID != "" {
		l, err := s.leads.GetByContactSession(ctx, contact.ContactID, req.SessionID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		existing = l
	}

	// Read-through enrichment: the lead borrows referrer/landing page/user id
	// observed in an earlier analytics write for the same session.
	referrer := meta.Referrer
	landingPage := meta.PageURL
	userID := ""
	if req.SessionID != "" {
		if ev, err := s.events.LatestForSession(ctx, req.SessionID); err == nil {
			if referrer == "" {
				referrer = ev.Referrer
			}
			if landingPage == "" {
				landingPage = ev.PageURL
			}
			userID = ev.UserID
		}
	}
	if landingPage == "" {
		landingPage = referrer
	}
	if userID == "" {
		userID = fallbackUserID
	}

	funnel := req.FunnelType
	if funnel == "" {
		funnel = s.defaultFunnel
	}

	status := domain.StatusEmailCaptured
	if req.PhoneNumber != "" {
		status = domain.StatusPhoneCaptured
	}
	if verified {
		status = domain.StatusVerified
	}

	in := mergeInput{
		Answers:           req.QuizAnswers,
		CalculatedResults: req.CalculatedResults,
		LicensingInfo:     req.LicensingInfo,
		ZipCode:           req.ZipCode,
		State:             req.State,
		StateName:         req.StateName,
		UTMParams:         req.UTMParams,
	}
	if verified {
		in.PhoneNumber = phone.FormatE164(req.PhoneNumber)
	}

	snapshot := &domain.ContactSnapshot{
		Email:     contact.Email,
		Phone:     contact.Phone,
		FirstName: contact.FirstName,
		LastName:  contact.LastName,
		ZipCode:   req.ZipCode,
	}

	now := time.Now().UTC()
	if existing != nil {
		existing.Status = domain.StatusForward(existing.Status, status)
		newlyVerified := verified && !existing.IsVerified
		existing.IsVerified = existing.IsVerified || verified
		if newlyVerified {
			existing.VerifiedAt = &now
		}
		existing.FunnelType = funnel
		existing.ZipCode = firstNonEmpty(req.ZipCode, existing.ZipCode)
		existing.State = firstNonEmpty(req.State, existing.State)
		existing.StateName = firstNonEmpty(req.StateName, existing.StateName)
		existing.Referrer = firstNonEmpty(referrer, existing.Referrer)
		existing.LandingPage = firstNonEmpty(landingPage, existing.LandingPage)
		existing.UserID = firstNonEmpty(userID, existing.UserID)
		existing.Contact = snapshot
		existing.QuizAnswers = mergeQuizAnswers(existing.QuizAnswers, in)
		existing.UTMSource = firstNonEmpty(utmString(req.UTMParams, "utm_source"), existing.UTMSource)
		existing.UTMMedium = firstNonEmpty(utmString(req.UTMParams, "utm_medium"), existing.UTMMedium)
		existing.UTMCampaign = firstNonEmpty(utmString(req.UTMParams, "utm_campaign"), existing.UTMCampaign)
		existing.UpdatedAt = now

		updates := map[string]interface{}{
			"status":       existing.Status,
			"is_verified":  existing.IsVerified,
			"funnel_type":  existing.FunnelType,
			"zip_code":     existing.ZipCode,
			"state":        existing.State,
			"state_name":   existing.StateName,
			"referrer":     existing.Referrer,
			"landing_page": existing.LandingPage,
			"user_id":      existing.UserID,
			"contact":      existing.Contact,
			"quiz_answers": existing.QuizAnswers,
			"utm_source":   existing.UTMSource,
			"utm_medium":   existing.UTMMedium,
			"utm_campaign": existing.UTMCampaign,
		}
		if newlyVerified {
			updates["verified_at"] = now
		}
		if err := s.leads.Update(ctx, existing.LeadID, updates); err != nil {
			return nil, err
		}
		return existing, nil
	}

	l := &domain.Lead{
		LeadID:      id.New(),
		ContactID:   contact.ContactID,
		SessionID:   req.SessionID,
		SiteKey:     s.siteKey,
		FunnelType:  funnel,
		Status:      status,
		IsVerified:  verified,
		ZipCode:     req.ZipCode,
		State:       req.State,
		StateName:   req.StateName,
		Referrer:    referrer,
		LandingPage: landingPage,
		UserID:      userID,
		Contact:     snapshot,
		QuizAnswers: mergeQuizAnswers(nil, in),
		UTMSource:   utmString(req.UTMParams, "utm_source"),
		UTMMedium:   utmString(req.UTMParams, "utm_medium"),
		UTMCampaign: utmString(req.UTMParams, "utm_campaign"),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if verified {
		l.VerifiedAt = &now
	}
	if err := s.leads.Put(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *service) buildPayload(req CaptureRequest, contact *domain.Contact, lead *domain.Lead) *webhook.Payload {
	return &webhook.Payload{
		FirstName:         firstNonEmpty(req.FirstName, contact.FirstName),
		LastName:          firstNonEmpty(req.LastName, contact.LastName),
		Email:             req.Email,
		Phone:             phone.FormatE164(req.PhoneNumber),
		ZipCode:           lead.ZipCode,
		State:             lead.State,
		StateName:         lead.StateName,
		Source:            crmSource,
		FunnelType:        lead.FunnelType,
		QuizAnswers:       lead.QuizAnswers,
		CalculatedResults: req.CalculatedResults,
		LicensingInfo:     req.LicensingInfo,
		LeadScore:         placeholderLeadScore,
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
		UTMParams:         utmOrStored(req.UTMParams, lead.QuizAnswers),
	}
}

// dispatch sends the payload, audits the exchange and classifies the outcome.
// The lead is already committed as verified; a failed delivery is reported to
// the caller but never rolls the lead back.
func (s *service) dispatch(ctx context.Context, lead *domain.Lead, contact *domain.Contact, payload *webhook.Payload, sessionID string, meta RequestMeta) (*ForwardResult, error) {
	res, dispatchErr := s.dispatcher.Dispatch(ctx, payload)

	outcome := "success"
	switch {
	case errors.Is(dispatchErr, domain.ErrUpstreamTimeout):
		outcome = "timeout"
	case dispatchErr != nil:
		outcome = "failure"
	}
	metrics.WebhookDispatches.WithLabelValues(outcome).Inc()

	s.auditDispatch(ctx, lead, contact, payload, res, dispatchErr, sessionID, meta)

	if dispatchErr != nil && s.mailer != nil && s.alertEmail != "" {
		body := fmt.Sprintf("CRM webhook delivery failed for lead %s (contact %s): %v", lead.LeadID, contact.ContactID, dispatchErr)
		if err := s.mailer.SendEmail(s.alertEmail, "CRM webhook delivery failed", body); err != nil {
			slog.Warn("ops alert email failed", "lead_id", lead.LeadID, "err", err)
		}
	}

	result := &ForwardResult{ContactID: contact.ContactID, LeadID: lead.LeadID}
	if res != nil {
		result.CRMStatus = res.StatusCode
	}
	if dispatchErr != nil {
		return result, dispatchErr
	}
	return result, nil
}

// auditDispatch records the full outbound payload and inbound response as an
// analytics event for later reconciliation. Bodies are archived to S3 when a
// bucket is configured. Audit failures are logged, never surfaced.
func (s *service) auditDispatch(ctx context.Context, lead *domain.Lead, contact *domain.Contact, payload *webhook.Payload, res *webhook.Result, dispatchErr error, sessionID string, meta RequestMeta) {
	props := map[string]any{
		"site_key":        s.siteKey,
		"lead_id":         lead.LeadID,
		"contact_id":      contact.ContactID,
		"webhook_url":     s.webhookURL,
		"request_payload": payload,
		"success":         dispatchErr == nil,
	}
	if res != nil {
		props["response_status"] = res.StatusCode
		props["response_body"] = res.Body
	}
	if dispatchErr != nil {
		props["error"] = dispatchErr.Error()
	}

	eventID := id.New()
	if s.archive != nil {
		body, err := json.Marshal(map[string]any{"request": payload, "response": res})
		if err == nil {
			key := fmt.Sprintf("webhooks/%s/%s.json", lead.LeadID, eventID)
			if url, err := s.archive.Store(ctx, key, body); err != nil {
				slog.Warn("webhook audit archive failed", "lead_id", lead.LeadID, "err", err)
			} else {
				props["archive_url"] = url
			}
		}
	}

	e := &domain.AnalyticsEvent{
		EventID:       eventID,
		EventName:     "ghl_webhook_sent",
		EventCategory: "lead_distribution",
		EventLabel:    contactSource,
		UserID:        payload.Phone,
		SessionID:     sessionID,
		PageURL:       meta.Referrer,
		UserAgent:     meta.UserAgent,
		IPAddress:     meta.IPAddress,
		Properties:    props,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.events.Put(ctx, e); err != nil {
		slog.Warn("webhook audit event write failed", "lead_id", lead.LeadID, "err", err)
	}
}

// logEvent appends an analytics event, swallowing store errors — the primary
// write already succeeded and the log is non-critical.
func (s *service) logEvent(ctx context.Context, e *domain.AnalyticsEvent) string {
	e.EventID = id.New()
	e.CreatedAt = time.Now().UTC()
	if err := s.events.Put(ctx, e); err != nil {
		slog.Warn("analytics event write failed", "event_name", e.EventName, "err", err)
		return ""
	}
	return e.EventID
}

func utmString(utm map[string]any, key string) string {
	return asString(utm[key])
}

func utmOrStored(utm map[string]any, answers map[string]any) map[string]any {
	if utm != nil {
		return utm
	}
	if stored := asMap(answers[keyUTMParameters]); stored != nil {
		return stored
	}
	return map[string]any{}
}
