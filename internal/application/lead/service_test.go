package lead

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/callready/funnel-api/internal/domain"
	"github.com/callready/funnel-api/internal/infrastructure/webhook"
)

type mockContactStore struct{ mock.Mock }

func (m *mockContactStore) Put(ctx context.Context, c *domain.Contact) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockContactStore) Get(ctx context.Context, contactID string) (*domain.Contact, error) {
	args := m.Called(ctx, contactID)
	if c, ok := args.Get(0).(*domain.Contact); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockContactStore) GetByEmail(ctx context.Context, email string) (*domain.Contact, error) {
	args := m.Called(ctx, email)
	if c, ok := args.Get(0).(*domain.Contact); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockContactStore) GetByPhoneHash(ctx context.Context, phoneHash string) (*domain.Contact, error) {
	args := m.Called(ctx, phoneHash)
	if c, ok := args.Get(0).(*domain.Contact); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockContactStore) Update(ctx context.Context, contactID string, updates map[string]interface{}) error {
	return m.Called(ctx, contactID, updates).Error(0)
}

type mockLeadStore struct{ mock.Mock }

func (m *mockLeadStore) Put(ctx context.Context, l *domain.Lead) error {
	return m.Called(ctx, l).Error(0)
}

func (m *mockLeadStore) Get(ctx context.Context, leadID string) (*domain.Lead, error) {
	args := m.Called(ctx, leadID)
	if l, ok := args.Get(0).(*domain.Lead); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLeadStore) GetByContactSession(ctx context.Context, contactID, sessionID string) (*domain.Lead, error) {
	args := m.Called(ctx, contactID, sessionID)
	if l, ok := args.Get(0).(*domain.Lead); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLeadStore) Update(ctx context.Context, leadID string, updates map[string]interface{}) error {
	return m.Called(ctx, leadID, updates).Error(0)
}

func (m *mockLeadStore) ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Lead, string, error) {
	args := m.Called(ctx, limit, cursor)
	leads, _ := args.Get(0).([]domain.Lead)
	return leads, args.String(1), args.Error(2)
}

type mockEventStore struct{ mock.Mock }

func (m *mockEventStore) Put(ctx context.Context, e *domain.AnalyticsEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockEventStore) LatestForSession(ctx context.Context, sessionID string) (*domain.AnalyticsEvent, error) {
	args := m.Called(ctx, sessionID)
	if e, ok := args.Get(0).(*domain.AnalyticsEvent); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockDispatcher struct{ mock.Mock }

func (m *mockDispatcher) Dispatch(ctx context.Context, p *webhook.Payload) (*webhook.Result, error) {
	args := m.Called(ctx, p)
	if r, ok := args.Get(0).(*webhook.Result); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

type fixture struct {
	contacts   *mockContactStore
	leads      *mockLeadStore
	events     *mockEventStore
	dispatcher *mockDispatcher
	mailer     *mockMailer
}

func newFixture() *fixture {
	return &fixture{
		contacts:   new(mockContactStore),
		leads:      new(mockLeadStore),
		events:     new(mockEventStore),
		dispatcher: new(mockDispatcher),
		mailer:     new(mockMailer),
	}
}

func (f *fixture) service() Service {
	return NewService(ServiceDeps{
		ContactRepo:   f.contacts,
		LeadRepo:      f.leads,
		EventRepo:     f.events,
		Dispatcher:    f.dispatcher,
		WebhookURL:    "https://crm.example.com/hooks/abc",
		SiteKey:       "smallbizsimple.org",
		DefaultFunnel: "business_funding",
	})
}

func (f *fixture) serviceWithMailer(alertEmail string) Service {
	return NewService(ServiceDeps{
		ContactRepo:   f.contacts,
		LeadRepo:      f.leads,
		EventRepo:     f.events,
		Dispatcher:    f.dispatcher,
		Mailer:        f.mailer,
		AlertEmail:    alertEmail,
		WebhookURL:    "https://crm.example.com/hooks/abc",
		SiteKey:       "smallbizsimple.org",
		DefaultFunnel: "business_funding",
	})
}

func TestCaptureEmail_RequiresEmail(t *testing.T) {
	f := newFixture()

	_, err := f.service().CaptureEmail(context.Background(), CaptureRequest{SessionID: "sess-1"}, RequestMeta{})

	assert.ErrorIs(t, err, domain.ErrBadRequest)
	f.contacts.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestCaptureEmail_NewContactAndLead(t *testing.T) {
	f := newFixture()
	f.contacts.On("GetByEmail", mock.Anything, "jane@example.com").Return(nil, domain.ErrNotFound)
	f.events.On("LatestForSession", mock.Anything, "sess-1").Return(nil, domain.ErrNotFound)
	f.events.On("Put", mock.Anything, mock.Anything).Return(nil)

	var storedContact *domain.Contact
	f.contacts.On("Put", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		storedContact = args.Get(1).(*domain.Contact)
	}).Return(nil)

	var storedLead *domain.Lead
	f.leads.On("GetByContactSession", mock.Anything, mock.Anything, "sess-1").Return(nil, domain.ErrNotFound)
	f.leads.On("Put", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		storedLead = args.Get(1).(*domain.Lead)
	}).Return(nil)

	res, err := f.service().CaptureEmail(context.Background(), CaptureRequest{
		Email:     "Jane@Example.com",
		FirstName: "Jane",
		SessionID: "sess-1",
		ZipCode:   "60601",
		State:     "IL",
		StateName: "Illinois",
		QuizAnswers: map[string]any{
			"business_age": "2_years",
		},
	}, RequestMeta{Referrer: "https://smallbizsimple.org/quiz"})

	require.NoError(t, err)
	require.NotNil(t, storedContact)
	assert.Equal(t, "jane@example.com", storedContact.Email)
	assert.Equal(t, "smallbizsimple_quiz", storedContact.Source)
	assert.Empty(t, storedContact.Phone)

	require.NotNil(t, storedLead)
	assert.Equal(t, storedContact.ContactID, storedLead.ContactID)
	assert.Equal(t, domain.StatusEmailCaptured, storedLead.Status)
	assert.False(t, storedLead.IsVerified)
	assert.Equal(t, "business_funding", storedLead.FunnelType)
	assert.Equal(t, "60601", storedLead.ZipCode)
	assert.Equal(t, "2_years", storedLead.QuizAnswers["business_age"])
	assert.NotNil(t, storedLead.QuizAnswers["utm_parameters"])

	assert.Equal(t, storedContact.ContactID, res.ContactID)
	assert.Equal(t, storedLead.LeadID, res.LeadID)
	assert.NotEmpty(t, res.EventID)
	assert.Equal(t, domain.StatusEmailCaptured, res.LeadStatus)
}

func TestCaptureEmail_WithPhoneStatus(t *testing.T) {
	f := newFixture()
	f.contacts.On("GetByEmail", mock.Anything, "jane@example.com").Return(nil, domain.ErrNotFound)
	f.contacts.On("GetByPhoneHash", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	f.contacts.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.events.On("LatestForSession", mock.Anything, "sess-1").Return(nil, domain.ErrNotFound)
	f.events.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.leads.On("GetByContactSession", mock.Anything, mock.Anything, "sess-1").Return(nil, domain.ErrNotFound)

	var storedLead *domain.Lead
	f.leads.On("Put", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		storedLead = args.Get(1).(*domain.Lead)
	}).Return(nil)

	res, err := f.service().CaptureEmail(context.Background(), CaptureRequest{
		Email:       "jane@example.com",
		PhoneNumber: "+13125550100",
		SessionID:   "sess-1",
	}, RequestMeta{})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPhoneCaptured, storedLead.Status)
	assert.Equal(t, domain.StatusPhoneCaptured, res.LeadStatus)
}

func TestCaptureEmail_BackfillsExistingContact(t *testing.T) {
	f := newFixture()
	existing := &domain.Contact{
		ContactID: "contact-1",
		Email:     "jane@example.com",
		FirstName: "Janet", // already populated, must not be overwritten
	}
	f.contacts.On("GetByEmail", mock.Anything, "jane@example.com").Return(existing, nil)

	var updates map[string]interface{}
	f.contacts.On("Update", mock.Anything, "contact-1", mock.Anything).Run(func(args mock.Arguments) {
		updates = args.Get(2).(map[string]interface{})
	}).Return(nil)

	f.events.On("LatestForSession", mock.Anything, "sess-1").Return(nil, domain.ErrNotFound)
	f.events.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.leads.On("GetByContactSession", mock.Anything, "contact-1", "sess-1").Return(nil, domain.ErrNotFound)
	f.leads.On("Put", mock.Anything, mock.Anything).Return(nil)

	_, err := f.service().CaptureEmail(context.Background(), CaptureRequest{
		Email:       "jane@example.com",
		FirstName:   "Jane",
		LastName:    "Doe",
		PhoneNumber: "+13125550100",
		SessionID:   "sess-1",
	}, RequestMeta{})

	require.NoError(t, err)
	require.NotNil(t, updates)
	assert.NotContains(t, updates, "first_name")
	assert.Equal(t, "Doe", updates["last_name"])
	assert.Equal(t, "+13125550100", updates["phone"])
	assert.Contains(t, updates, "phone_hash")

	// email match made the phone-hash lookup unnecessary
	f.contacts.AssertNotCalled(t, "GetByPhoneHash", mock.Anything, mock.Anything)
}

func TestCaptureEmail_FallsBackToPhoneHashMatch(t *testing.T) {
	f := newFixture()
	existing := &domain.Contact{
		ContactID: "contact-2",
		Phone:     "+13125550100",
		PhoneHash: "abc123",
	}
	f.contacts.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, domain.ErrNotFound)
	f.contacts.On("GetByPhoneHash", mock.Anything, mock.Anything).Return(existing, nil)

	var updates map[string]interface{}
	f.contacts.On("Update", mock.Anything, "contact-2", mock.Anything).Run(func(args mock.Arguments) {
		updates = args.Get(2).(map[string]interface{})
	}).Return(nil)

	f.events.On("LatestForSession", mock.Anything, "sess-1").Return(nil, domain.ErrNotFound)
	f.events.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.leads.On("GetByContactSession", mock.Anything, "contact-2", "sess-1").Return(nil, domain.ErrNotFound)
	f.leads.On("Put", mock.Anything, mock.Anything).Return(nil)

	_, err := f.service().CaptureEmail(context.Background(), CaptureRequest{
		Email:       "new@example.com",
		PhoneNumber: "+13125550100",
		SessionID:   "sess-1",
	}, RequestMeta{})

	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updates["email"])
	f.contacts.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestCaptureEmail_NeverDowngradesVerifiedLead(t *testing.T) {
	f := newFixture()
	contact := &domain.Contact{ContactID: "contact-1", Email: "jane@example.com"}
	f.contacts.On("GetByEmail", mock.Anything, "jane@example.com").Return(contact, nil)

	now := contact.UpdatedAt
	verified := &domain.Lead{
		LeadID:      "lead-1",
		ContactID:   "contact-1",
		SessionID:   "sess-1",
		Status:      domain.StatusVerified,
		IsVerified:  true,
		VerifiedAt:  &now,
		QuizAnswers: map[string]any{"business_age": "2_years"},
	}
	f.leads.On("GetByContactSession", mock.Anything, "contact-1", "sess-1").Return(verified, nil)
	f.events.On("LatestForSession", mock.Anything, "sess-1").Return(nil, domain.ErrNotFound)
	f.events.On("Put", mock.Anything, mock.Anything).Return(nil)

	var updates map[string]interface{}
	f.leads.On("Update", mock.Anything, "lead-1", mock.Anything).Run(func(args mock.Arguments) {
		updates = args.Get(2).(map[string]interface{})
	}).Return(nil)

	res, err := f.service().CaptureEmail(context.Background(), CaptureRequest{
		Email:       "jane@example.com",
		SessionID:   "sess-1",
		QuizAnswers: map[string]any{"revenue": "under_100k"},
	}, RequestMeta{})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusVerified, updates["status"])
	assert.Equal(t, true, updates["is_verified"])
	assert.Equal(t, domain.StatusVerified, res.LeadStatus)
	assert.True(t, res.IsVerified)

	merged := updates["quiz_answers"].(map[string]any)
	assert.Equal(t, "2_years", merged["business_age"])
	assert.Equal(t, "under_100k", merged["revenue"])
}

func TestCaptureEmail_AnalyticsFailureIsSwallowed(t *testing.T) {
	f := newFixture()
	f.contacts.On("GetByEmail", mock.Anything, "jane@example.com").Return(nil, domain.ErrNotFound)
	f.contacts.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.events.On("LatestForSession", mock.Anything, "sess-1").Return(nil, domain.ErrNotFound)
	f.events.On("Put", mock.Anything, mock.Anything).Return(errors.New("throughput exceeded"))
	f.leads.On("GetByContactSession", mock.Anything, mock.Anything, "sess-1").Return(nil, domain.ErrNotFound)
	f.leads.On("Put", mock.Anything, mock.Anything).Return(nil)

	res, err := f.service().CaptureEmail(context.Background(), CaptureRequest{
		Email:     "jane@example.com",
		SessionID: "sess-1",
	}, RequestMeta{})

	require.NoError(t, err)
	assert.Empty(t, res.EventID)
	assert.NotEmpty(t, res.LeadID)
}

func TestCaptureEmail_EnrichesFromSessionEvents(t *testing.T) {
	f := newFixture()
	f.contacts.On("GetByEmail", mock.Anything, "jane@example.com").Return(nil, domain.ErrNotFound)
	f.contacts.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.events.On("LatestForSession", mock.Anything, "sess-1").Return(&domain.AnalyticsEvent{
		EventID:  "ev-1",
		UserID:   "anon-42",
		Referrer: "https://google.com",
		PageURL:  "https://smallbizsimple.org/quiz?utm_source=google",
	}, nil)
	f.events.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.leads.On("GetByContactSession", mock.Anything, mock.Anything, "sess-1").Return(nil, domain.ErrNotFound)

	var storedLead *domain.Lead
	f.leads.On("Put", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		storedLead = args.Get(1).(*domain.Lead)
	}).Return(nil)

	_, err := f.service().CaptureEmail(context.Background(), CaptureRequest{
		Email:     "jane@example.com",
		SessionID: "sess-1",
	}, RequestMeta{})

	require.NoError(t, err)
	assert.Equal(t, "anon-42", storedLead.UserID)
	assert.Equal(t, "https://google.com", storedLead.Referrer)
	assert.Equal(t, "https://smallbizsimple.org/quiz?utm_source=google", storedLead.LandingPage)
}

func TestVerifyAndForward_RequiresEmailAndPhone(t *testing.T) {
	f := newFixture()

	_, err := f.service().VerifyAndForward(context.Background(), CaptureRequest{Email: "jane@example.com"}, RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrBadRequest)

	_, err = f.service().VerifyAndForward(context.Background(), CaptureRequest{PhoneNumber: "+13125550100"}, RequestMeta{})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestVerifyAndForward_Success(t *testing.T) {
	f := newFixture()
	contact := &domain.Contact{ContactID: "contact-1", Email: "jane@example.com", Phone: "+13125550100", FirstName: "Jane"}
	stored := &domain.Lead{
		LeadID:    "lead-1",
		ContactID: "contact-1",
		SessionID: "sess-1",
		Status:    domain.StatusPhoneCaptured,
		ZipCode:   "60601",
		QuizAnswers: map[string]any{
			"business_age":   "2_years",
			"utm_parameters": map[string]any{"utm_source": "google"},
		},
	}
	f.contacts.On("GetByEmail", mock.Anything, "jane@example.com").Return(contact, nil)
	f.leads.On("GetByContactSession", mock.Anything, "contact-1", "sess-1").Return(stored, nil)
	f.events.On("LatestForSession", mock.Anything, "sess-1").Return(nil, domain.ErrNotFound)

	var updates map[string]interface{}
	f.leads.On("Update", mock.Anything, "lead-1", mock.Anything).Run(func(args mock.Arguments) {
		updates = args.Get(2).(map[string]interface{})
	}).Return(nil)

	var payload *webhook.Payload
	f.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		payload = args.Get(1).(*webhook.Payload)
	}).Return(&webhook.Result{StatusCode: 200, Body: `{"ok":true}`}, nil)

	var audit *domain.AnalyticsEvent
	f.events.On("Put", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		audit = args.Get(1).(*domain.AnalyticsEvent)
	}).Return(nil)

	res, err := f.service().VerifyAndForward(context.Background(), CaptureRequest{
		Email:       "jane@example.com",
		PhoneNumber: "(312) 555-0100",
		SessionID:   "sess-1",
	}, RequestMeta{})

	require.NoError(t, err)
	assert.Equal(t, "contact-1", res.ContactID)
	assert.Equal(t, "lead-1", res.LeadID)
	assert.Equal(t, 200, res.CRMStatus)

	assert.Equal(t, domain.StatusVerified, updates["status"])
	assert.Equal(t, true, updates["is_verified"])
	assert.Contains(t, updates, "verified_at")

	require.NotNil(t, payload)
	assert.Equal(t, "+13125550100", payload.Phone)
	assert.Equal(t, "jane@example.com", payload.Email)
	assert.Equal(t, "SmallBizSimple Quiz", payload.Source)
	assert.Equal(t, "60601", payload.ZipCode)
	assert.Equal(t, 75, payload.LeadScore)
	assert.Equal(t, map[string]any{"utm_source": "google"}, payload.UTMParams)
	assert.Equal(t, "+13125550100", payload.QuizAnswers["phone"])

	require.NotNil(t, audit)
	assert.Equal(t, "ghl_webhook_sent", audit.EventName)
	assert.Equal(t, true, audit.Properties["success"])
	assert.Equal(t, 200, audit.Properties["response_status"])
	assert.Equal(t, "lead-1", audit.Properties["lead_id"])
}

func TestVerifyAndForward_CreatesLeadWhenNoneStored(t *testing.T) {
	f := newFixture()
	f.contacts.On("GetByEmail", mock.Anything, "jane@example.com").Return(nil, domain.ErrNotFound)
	f.contacts.On("GetByPhoneHash", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	f.contacts.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.events.On("LatestForSession", mock.Anything, "sess-1").Return(nil, domain.ErrNotFound)
	f.events.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.leads.On("GetByContactSession", mock.Anything, mock.Anything, "sess-1").Return(nil, domain.ErrNotFound)

	var storedLead *domain.Lead
	f.leads.On("Put", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		storedLead = args.Get(1).(*domain.Lead)
	}).Return(nil)
	f.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(&webhook.Result{StatusCode: 200}, nil)

	res, err := f.service().VerifyAndForward(context.Background(), CaptureRequest{
		Email:       "jane@example.com",
		PhoneNumber: "+13125550100",
		SessionID:   "sess-1",
	}, RequestMeta{})

	require.NoError(t, err)
	require.NotNil(t, storedLead)
	assert.Equal(t, domain.StatusVerified, storedLead.Status)
	assert.True(t, storedLead.IsVerified)
	assert.NotNil(t, storedLead.VerifiedAt)
	assert.Equal(t, storedLead.LeadID, res.LeadID)
}

func TestVerifyAndForward_TimeoutSurfacesAfterVerification(t *testing.T) {
	f := newFixture()
	contact := &domain.Contact{ContactID: "contact-1", Email: "jane@example.com", Phone: "+13125550100"}
	stored := &domain.Lead{LeadID: "lead-1", ContactID: "contact-1", SessionID: "sess-1", Status: domain.StatusPhoneCaptured}
	f.contacts.On("GetByEmail", mock.Anything, "jane@example.com").Return(contact, nil)
	f.leads.On("GetByContactSession", mock.Anything, "contact-1", "sess-1").Return(stored, nil)
	f.events.On("LatestForSession", mock.Anything, "sess-1").Return(nil, domain.ErrNotFound)
	f.leads.On("Update", mock.Anything, "lead-1", mock.Anything).Return(nil)
	f.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil, domain.ErrUpstreamTimeout)

	var audit *domain.AnalyticsEvent
	f.events.On("Put", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		audit = args.Get(1).(*domain.AnalyticsEvent)
	}).Return(nil)

	res, err := f.service().VerifyAndForward(context.Background(), CaptureRequest{
		Email:       "jane@example.com",
		PhoneNumber: "+13125550100",
		SessionID:   "sess-1",
	}, RequestMeta{})

	assert.ErrorIs(t, err, domain.ErrUpstreamTimeout)
	require.NotNil(t, res)
	assert.Equal(t, 0, res.CRMStatus)

	// the lead was persisted as verified before the dispatch attempt
	f.leads.AssertCalled(t, "Update", mock.Anything, "lead-1", mock.Anything)

	require.NotNil(t, audit)
	assert.Equal(t, false, audit.Properties["success"])
	assert.NotEmpty(t, audit.Properties["error"])
}

func TestVerifyAndForward_UpstreamRejectionAlertsOps(t *testing.T) {
	f := newFixture()
	contact := &domain.Contact{ContactID: "contact-1", Email: "jane@example.com", Phone: "+13125550100"}
	stored := &domain.Lead{LeadID: "lead-1", ContactID: "contact-1", SessionID: "sess-1", Status: domain.StatusPhoneCaptured}
	f.contacts.On("GetByEmail", mock.Anything, "jane@example.com").Return(contact, nil)
	f.leads.On("GetByContactSession", mock.Anything, "contact-1", "sess-1").Return(stored, nil)
	f.events.On("LatestForSession", mock.Anything, "sess-1").Return(nil, domain.ErrNotFound)
	f.leads.On("Update", mock.Anything, "lead-1", mock.Anything).Return(nil)
	f.events.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.dispatcher.On("Dispatch", mock.Anything, mock.Anything).
		Return(&webhook.Result{StatusCode: 422, Body: "bad payload"}, domain.ErrUpstreamFailure)
	f.mailer.On("SendEmail", "ops@callready.io", mock.Anything, mock.Anything).Return(nil)

	res, err := f.serviceWithMailer("ops@callready.io").VerifyAndForward(context.Background(), CaptureRequest{
		Email:       "jane@example.com",
		PhoneNumber: "+13125550100",
		SessionID:   "sess-1",
	}, RequestMeta{})

	assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
	assert.Equal(t, 422, res.CRMStatus)
	f.mailer.AssertExpectations(t)
}

func TestResend_RebuildsPayloadFromStoredLead(t *testing.T) {
	f := newFixture()
	lead := &domain.Lead{
		LeadID:     "lead-1",
		ContactID:  "contact-1",
		SessionID:  "sess-1",
		FunnelType: "business_funding",
		ZipCode:    "60601",
		QuizAnswers: map[string]any{
			"business_age":       "2_years",
			"calculated_results": map[string]any{"tier": "A"},
			"utm_parameters":     map[string]any{"utm_source": "google"},
		},
	}
	contact := &domain.Contact{ContactID: "contact-1", Email: "jane@example.com", Phone: "+13125550100", FirstName: "Jane"}
	f.leads.On("Get", mock.Anything, "lead-1").Return(lead, nil)
	f.contacts.On("Get", mock.Anything, "contact-1").Return(contact, nil)
	f.events.On("Put", mock.Anything, mock.Anything).Return(nil)

	var payload *webhook.Payload
	f.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		payload = args.Get(1).(*webhook.Payload)
	}).Return(&webhook.Result{StatusCode: 200}, nil)

	res, err := f.service().Resend(context.Background(), "lead-1")

	require.NoError(t, err)
	assert.Equal(t, 200, res.CRMStatus)
	require.NotNil(t, payload)
	assert.Equal(t, "jane@example.com", payload.Email)
	assert.Equal(t, "+13125550100", payload.Phone)
	assert.Equal(t, map[string]any{"tier": "A"}, payload.CalculatedResults)
	assert.Equal(t, map[string]any{"utm_source": "google"}, payload.UTMParams)
}

func TestResend_UnknownLead(t *testing.T) {
	f := newFixture()
	f.leads.On("Get", mock.Anything, "missing").Return(nil, domain.ErrNotFound)

	_, err := f.service().Resend(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
