package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/callready/funnel-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayload() *Payload {
	return &Payload{
		FirstName:  "Alice",
		LastName:   "Smith",
		Email:      "alice@example.com",
		Phone:      "+15551234567",
		Source:     "SmallBizSimple Quiz",
		FunnelType: "business_funding",
		LeadScore:  75,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		UTMParams:  map[string]any{},
	}
}

func TestDispatch_Success(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"accepted"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	res, err := c.Dispatch(context.Background(), testPayload())

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Body, "accepted")
	assert.Equal(t, "+15551234567", received["phone"])
	assert.Equal(t, float64(75), received["leadScore"])
}

func TestDispatch_Non2xx_ReturnsUpstreamFailureWithResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream broken"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	res, err := c.Dispatch(context.Background(), testPayload())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstreamFailure))
	require.NotNil(t, res)
	assert.Equal(t, http.StatusBadGateway, res.StatusCode)
	assert.Equal(t, "upstream broken", res.Body)
}

func TestDispatch_Timeout_ReturnsUpstreamTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 50*time.Millisecond)
	res, err := c.Dispatch(context.Background(), testPayload())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstreamTimeout))
	assert.Nil(t, res)
}

func TestDispatch_ConnectionRefused_ReturnsUpstreamFailure(t *testing.T) {
	// Grab a port that is closed by the time we dial it.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, 2*time.Second)
	_, err := c.Dispatch(context.Background(), testPayload())

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstreamFailure))
}
