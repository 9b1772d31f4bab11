package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"nbrunner/pkg/models"
)

type captured struct {
	calls   int
	auth    string
	ctype   string
	payload Payload
}

func captureServer(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.calls++
		c.auth = r.Header.Get("Authorization")
		c.ctype = r.Header.Get("Content-Type")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&c.payload))
		w.WriteHeader(status)
		w.Write([]byte(`{"received": true}`))
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func TestNotify_PostsPayloadWithBearer(t *testing.T) {
	srv, c := captureServer(t, http.StatusOK)
	w := NewWebhook(srv.URL, "s3cret", time.Second, zaptest.NewLogger(t))

	w.Notify(context.Background(), models.Succeeded(models.SuccessMessage))

	assert.Equal(t, 1, c.calls)
	assert.Equal(t, "Bearer s3cret", c.auth)
	assert.Equal(t, "application/json", c.ctype)
	assert.Equal(t, Payload{Status: "success", Message: "Notebook execution completed successfully"}, c.payload)
}

func TestNotify_NoSecretNoAuthorization(t *testing.T) {
	srv, c := captureServer(t, http.StatusAccepted)
	w := NewWebhook(srv.URL, "", time.Second, zaptest.NewLogger(t))

	w.Notify(context.Background(), models.Outcome{Status: models.OutcomeFailed, Message: "document source not specified"})

	assert.Equal(t, 1, c.calls)
	assert.Empty(t, c.auth)
	assert.Equal(t, models.OutcomeFailed, c.payload.Status)
	assert.Equal(t, "document source not specified", c.payload.Message)
}

func TestNotify_EmptyURLIsNoop(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	w := NewWebhook("", "s3cret", time.Second, zap.New(core))

	w.Notify(context.Background(), models.Succeeded("ok"))

	assert.Zero(t, logs.Len())
}

func TestNotify_ServerErrorIsLoggedAndSwallowed(t *testing.T) {
	srv, c := captureServer(t, http.StatusInternalServerError)
	core, logs := observer.New(zap.WarnLevel)
	w := NewWebhook(srv.URL, "", time.Second, zap.New(core))

	assert.NotPanics(t, func() {
		w.Notify(context.Background(), models.Succeeded("ok"))
	})

	assert.Equal(t, 1, c.calls)
	require.Equal(t, 1, logs.FilterMessage("Failed to send webhook").Len())
	assert.Equal(t, zap.WarnLevel, logs.All()[0].Level)
}

func TestNotify_UnreachableIsLoggedAndSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	core, logs := observer.New(zap.WarnLevel)
	w := NewWebhook(url, "", time.Second, zap.New(core))

	w.Notify(context.Background(), models.Succeeded("ok"))

	assert.Equal(t, 1, logs.FilterMessage("Failed to send webhook").Len())
}
