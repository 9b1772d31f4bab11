// Package notify reports a job's outcome to a webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"nbrunner/pkg/metrics"
	"nbrunner/pkg/models"
)

// maxResponseLog caps how much of the webhook response is logged.
const maxResponseLog = 4 << 10

// Payload is the JSON body POSTed to the webhook.
type Payload struct {
	Status  models.OutcomeStatus `json:"status"`
	Message string               `json:"message"`
}

// Webhook delivers outcomes. A zero URL turns it into a no-op.
type Webhook struct {
	URL        string
	Secret     string
	HttpClient *http.Client
	log        *zap.Logger
}

func NewWebhook(url, secret string, timeout time.Duration, log *zap.Logger) *Webhook {
	if log == nil {
		log = zap.NewNop()
	}
	return &Webhook{
		URL:    url,
		Secret: secret,
		HttpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// Notify posts the outcome. Delivery problems are logged and dropped;
// they never change the job's result.
func (w *Webhook) Notify(ctx context.Context, outcome models.Outcome) {
	if w.URL == "" {
		return
	}
	if err := w.send(ctx, outcome); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		w.log.Warn("Failed to send webhook", zap.String("url", w.URL), zap.Error(err))
		return
	}
	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
}

func (w *Webhook) send(ctx context.Context, outcome models.Outcome) error {
	body, err := json.Marshal(Payload{Status: outcome.Status, Message: outcome.Message})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.Secret != "" {
		req.Header.Set("Authorization", "Bearer "+w.Secret)
	}

	resp, err := w.HttpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseLog))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}

	w.log.Info("Webhook sent successfully",
		zap.Int("status_code", resp.StatusCode),
		zap.String("response", strings.TrimSpace(string(respBody))),
	)
	return nil
}
