package domain

import "time"

// AnalyticsEvent is an append-only log record. Events are written as a side
// effect of captures and webhook dispatches and are only ever read back to
// enrich a lead with fields observed earlier in the same session.
// PK: event_id. GSI: session_id-created_at-index.
type AnalyticsEvent struct {
	EventID       string         `json:"id" dynamodbav:"event_id"`
	EventName     string         `json:"event_name" dynamodbav:"event_name"`
	EventCategory string         `json:"event_category,omitempty" dynamodbav:"event_category"`
	EventLabel    string         `json:"event_label,omitempty" dynamodbav:"event_label"`
	UserID        string         `json:"user_id,omitempty" dynamodbav:"user_id"`
	SessionID     string         `json:"session_id,omitempty" dynamodbav:"session_id,omitempty"`
	PageURL       string         `json:"page_url,omitempty" dynamodbav:"page_url"`
	Referrer      string         `json:"referrer,omitempty" dynamodbav:"referrer"`
	UserAgent     string         `json:"user_agent,omitempty" dynamodbav:"user_agent"`
	IPAddress     string         `json:"ip_address,omitempty" dynamodbav:"ip_address"`
	Properties    map[string]any `json:"properties,omitempty" dynamodbav:"properties"`
	CreatedAt     time.Time      `json:"created_at" dynamodbav:"created_at"`
}
