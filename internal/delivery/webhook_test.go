package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertpipe/internal/types"
)

// nopLogger implements types.Logger as a no-op for tests.
type nopLogger struct{}

func (nopLogger) Info(string, ...any) {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any) {}
func (nopLogger) Debug(string, ...any) {}
func (l nopLogger) With(...any) types.Logger { return l }

func testMessage(address string) types.Message {
	return types.Message{
		ID:         "msg-1",
		ContactID:  "c1",
		MediumType: types.MediumWebhook,
		Address:    address,
		Content: map[string]any{
			"state":  "critical",
			"entity": "web01",
			"check":  "HTTP Port 80",
		},
	}
}

func webhookSink(t *testing.T) *WebhookSink {
	t.Helper()
	client := NewResilientClient(&http.Client{}, t.Name(),
		RetryPolicy{MaxRetries: 1, MinWait: time.Millisecond, MaxWait: time.Millisecond},
		"alertpipe-webhook/1.0", WithSleepFunc(noSleep))
	return NewWebhookSinkWithClient(client, nopLogger{})
}

func TestWebhookSinkDeliversPayload(t *testing.T) {
	var received webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := webhookSink(t).Deliver(context.Background(), testMessage(srv.URL))
	require.NoError(t, err)

	assert.Equal(t, "msg-1", received.MessageID)
	assert.Equal(t, "c1", received.ContactID)
	assert.Equal(t, "critical", received.Content["state"])
	assert.Equal(t, "web01", received.Content["entity"])
}

func TestWebhookSinkRejectedByEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such hook", http.StatusNotFound)
	}))
	defer srv.Close()

	err := webhookSink(t).Deliver(context.Background(), testMessage(srv.URL))
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeDeliveryFailed, appErr.Code)
	assert.Equal(t, "msg-1", appErr.Details["message_id"])
}

func TestWebhookSinkEndpointDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := webhookSink(t).Deliver(context.Background(), testMessage(srv.URL))
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeDeliveryFailed, appErr.Code)
	assert.ErrorContains(t, appErr.Err, "endpoint")
}

func TestRouterDispatchesByMedium(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	router := NewRouter(nopLogger{},
		webhookSink(t),
		NewLogSink(types.MediumEmail, nopLogger{}),
	)

	require.True(t, router.Supports(types.MediumWebhook))
	require.True(t, router.Supports(types.MediumEmail))
	require.False(t, router.Supports(types.MediumSMS))

	require.NoError(t, router.Deliver(context.Background(), testMessage(srv.URL)))

	email := testMessage("a@x.com")
	email.MediumType = types.MediumEmail
	require.NoError(t, router.Deliver(context.Background(), email))
}

func TestRouterUnsupportedMedium(t *testing.T) {
	router := NewRouter(nopLogger{})

	msg := testMessage("+1555")
	msg.MediumType = types.MediumSMS

	err := router.Deliver(context.Background(), msg)
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeDeliveryUnsupported, appErr.Code)
	assert.Equal(t, "sms", appErr.Details["medium"])
}
