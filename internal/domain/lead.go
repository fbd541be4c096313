package domain

import "time"

// Lead status values. A lead only ever moves forward through these.
const (
	StatusEmailCaptured = "email_captured"
	StatusPhoneCaptured = "phone_captured"
	StatusVerified      = "verified"
)

// statusRank orders lead statuses so updates never downgrade one.
var statusRank = map[string]int{
	StatusEmailCaptured: 0,
	StatusPhoneCaptured: 1,
	StatusVerified:      2,
}

// StatusForward returns the further-along of the two statuses.
func StatusForward(current, incoming string) string {
	if statusRank[incoming] > statusRank[current] {
		return incoming
	}
	if current == "" {
		return incoming
	}
	return current
}

// Lead tracks one contact's progress through the quiz funnel for one session.
// PK: lead_id. GSI: contact_id-session_id-index — exactly one lead per
// (contact, session) pair; later submissions update in place.
type Lead struct {
	LeadID      string           `json:"id" dynamodbav:"lead_id"`
	ContactID   string           `json:"contact_id" dynamodbav:"contact_id"`
	SessionID   string           `json:"session_id,omitempty" dynamodbav:"session_id,omitempty"`
	SiteKey     string           `json:"site_key" dynamodbav:"site_key"`
	FunnelType  string           `json:"funnel_type" dynamodbav:"funnel_type"`
	Status      string           `json:"status" dynamodbav:"status"`
	IsVerified  bool             `json:"is_verified" dynamodbav:"is_verified"`
	VerifiedAt  *time.Time       `json:"verified_at,omitempty" dynamodbav:"verified_at"`
	ZipCode     string           `json:"zip_code,omitempty" dynamodbav:"zip_code"`
	State       string           `json:"state,omitempty" dynamodbav:"state"`
	StateName   string           `json:"state_name,omitempty" dynamodbav:"state_name"`
	Referrer    string           `json:"referrer,omitempty" dynamodbav:"referrer"`
	LandingPage string           `json:"landing_page,omitempty" dynamodbav:"landing_page"`
	UserID      string           `json:"user_id,omitempty" dynamodbav:"user_id"`
	Contact     *ContactSnapshot `json:"contact,omitempty" dynamodbav:"contact"`
	QuizAnswers map[string]any   `json:"quiz_answers" dynamodbav:"quiz_answers"`
	UTMSource   string           `json:"utm_source,omitempty" dynamodbav:"utm_source"`
	UTMMedium   string           `json:"utm_medium,omitempty" dynamodbav:"utm_medium"`
	UTMCampaign string           `json:"utm_campaign,omitempty" dynamodbav:"utm_campaign"`
	CreatedAt   time.Time        `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" dynamodbav:"updated_at"`
}
