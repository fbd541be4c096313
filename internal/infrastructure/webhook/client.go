// Package webhook forwards verified leads to the external CRM endpoint.
// Delivery is best-effort: one POST, one fixed timeout, no retry. The lead
// write has already committed by the time a dispatch runs, so a failed
// delivery never rolls anything back.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/callready/funnel-api/internal/domain"
)

// maxResponseBytes caps how much of the CRM response is retained for the audit trail.
const maxResponseBytes = 64 << 10

// Payload is the fixed schema the CRM webhook expects.
type Payload struct {
	FirstName         string         `json:"firstName"`
	LastName          string         `json:"lastName"`
	Email             string         `json:"email"`
	Phone             string         `json:"phone"` // always +1XXXXXXXXXX
	ZipCode           string         `json:"zipCode,omitempty"`
	State             string         `json:"state,omitempty"`
	StateName         string         `json:"stateName,omitempty"`
	Source            string         `json:"source"`
	FunnelType        string         `json:"funnelType"`
	QuizAnswers       map[string]any `json:"quizAnswers,omitempty"`
	CalculatedResults any            `json:"calculatedResults,omitempty"`
	LicensingInfo     any            `json:"licensingInfo,omitempty"`
	LeadScore         int            `json:"leadScore"`
	Timestamp         string         `json:"timestamp"`
	UTMParams         map[string]any `json:"utmParams"`
}

// Result captures the CRM's answer for auditing, success or not.
type Result struct {
	StatusCode int
	Body       string
}

// Dispatcher posts a lead payload to the CRM.
type Dispatcher interface {
	Dispatch(ctx context.Context, p *Payload) (*Result, error)
}

type client struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient builds a Dispatcher against the given CRM URL.
func NewClient(url string, timeout time.Duration) Dispatcher {
	return &client{
		url:        url,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Dispatch issues the single POST. A timeout maps to domain.ErrUpstreamTimeout,
// any other transport error or a non-2xx status to domain.ErrUpstreamFailure.
// The Result is non-nil whenever a response was received, including failures,
// so callers can audit the raw exchange.
func (c *client) Dispatch(ctx context.Context, p *Payload) (*Result, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("webhook request timed out after %s: %w", c.timeout, domain.ErrUpstreamTimeout)
		}
		return nil, fmt.Errorf("webhook request failed: %w: %w", err, domain.ErrUpstreamFailure)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	result := &Result{StatusCode: resp.StatusCode, Body: string(respBody)}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, fmt.Errorf("webhook returned status %d: %w", resp.StatusCode, domain.ErrUpstreamFailure)
	}
	return result, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
