package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	// WebhookURL is the CRM endpoint verified leads are forwarded to.
	// Required — there is deliberately no embedded fallback.
	WebhookURL     string
	WebhookTimeout time.Duration

	SiteKey           string
	DefaultFunnelType string

	// SNS SMS sending is optional; when disabled the issuance path only
	// logs the would-be send.
	SNSRegion  string
	SMSEnabled bool

	// S3 archive for webhook audit bodies. Optional.
	AuditBucket string

	// SMTP ops alerting. Optional — active only when AlertEmail is set.
	SMTPHost   string
	SMTPPort   string
	SMTPFrom   string
	SMTPUser   string
	SMTPPass   string
	AlertEmail string

	// Admin surface. Optional — routes are mounted only when JWT keys and
	// admin credentials are all present.
	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration
	AdminUsername     string
	AdminPasswordHash string // bcrypt

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Contacts         string
	Leads            string
	OTPVerifications string
	AnalyticsEvents  string
}

// Load reads all configuration from environment variables. Required values
// missing at startup are returned as an error so the process fails fast
// instead of falling back to embedded defaults.
func Load() (*Config, error) {
	cfg := &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Contacts:         getEnv("DYNAMO_TABLE_CONTACTS", "contacts"),
			Leads:            getEnv("DYNAMO_TABLE_LEADS", "leads"),
			OTPVerifications: getEnv("DYNAMO_TABLE_OTP_VERIFICATIONS", "otp_verifications"),
			AnalyticsEvents:  getEnv("DYNAMO_TABLE_ANALYTICS_EVENTS", "analytics_events"),
		},

		WebhookURL:     os.Getenv("GHL_WEBHOOK_URL"),
		WebhookTimeout: 10 * time.Second,

		SiteKey:           getEnv("SITE_KEY", "smallbizsimple.org"),
		DefaultFunnelType: getEnv("DEFAULT_FUNNEL_TYPE", "business_funding"),

		SNSRegion:  getEnv("SNS_REGION", "us-east-1"),
		SMSEnabled: getEnv("SMS_ENABLED", "false") == "true",

		AuditBucket: getEnv("S3_AUDIT_BUCKET", ""),

		SMTPHost:   getEnv("SMTP_HOST", "localhost"),
		SMTPPort:   getEnv("SMTP_PORT", "1025"),
		SMTPFrom:   getEnv("SMTP_FROM", "noreply@smallbizsimple.org"),
		SMTPUser:   getEnv("SMTP_USERNAME", ""),
		SMTPPass:   getEnv("SMTP_PASSWORD", ""),
		AlertEmail: getEnv("OPS_ALERT_EMAIL", ""),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", ""),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", ""),
		JWTExpiry:         24 * time.Hour,
		AdminUsername:     getEnv("ADMIN_USERNAME", ""),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}

	if cfg.WebhookURL == "" {
		return nil, fmt.Errorf("GHL_WEBHOOK_URL is required")
	}
	return cfg, nil
}

// IsProduction reports whether the service runs with production settings.
// Non-production issuance responses echo the generated OTP for testing.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// AdminEnabled reports whether the JWT-protected admin surface can be mounted.
func (c *Config) AdminEnabled() bool {
	return c.JWTPrivateKeyPath != "" && c.JWTPublicKeyPath != "" &&
		c.AdminUsername != "" && c.AdminPasswordHash != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
