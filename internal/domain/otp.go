package domain

import "time"

// OTPVerification stores a phone passcode with its expiry and attempt counter.
// PK: phone_number — a new issuance for the same number supersedes the old
// record, so lookups always see the latest code.
// PurgeAt is a Unix timestamp used as DynamoDB TTL. It trails ExpiresAt by a
// day so a freshly expired record still reports "expired" rather than
// disappearing mid-check.
type OTPVerification struct {
	PhoneNumber string    `json:"phone_number" dynamodbav:"phone_number"`
	Code        string    `json:"-" dynamodbav:"otp_code"`
	ExpiresAt   time.Time `json:"expires_at" dynamodbav:"expires_at"`
	Attempts    int       `json:"attempts" dynamodbav:"attempts"`
	CreatedAt   time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" dynamodbav:"updated_at"`
	PurgeAt     int64     `json:"-" dynamodbav:"purge_at"`
}

// MaxOTPAttempts is the number of wrong codes allowed before a record
// becomes unusable and the caller must request a new one.
const MaxOTPAttempts = 3

// OTPValidity is how long an issued code is accepted.
const OTPValidity = 10 * time.Minute
