package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/oshokin/usage-alarms/internal/domain/alarm"
	"github.com/oshokin/usage-alarms/internal/logger"
	"github.com/oshokin/usage-alarms/internal/version"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body.
const SignatureHeader = "X-HUB-SIGNATURE-256"

// maxErrorBody limits how much of a failed response is kept.
const maxErrorBody = 4 << 10

var (
	// ErrEmptyURL is returned when a notifier is created without a target.
	ErrEmptyURL = errors.New("empty notification url")
	// ErrEmptySecret is returned when a webhook is created without a signing secret.
	ErrEmptySecret = errors.New("empty webhook secret")
)

// StatusError is returned when a receiver answers with an unexpected status.
type StatusError struct {
	URL  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s answered with status %d: %s", e.URL, e.Code, e.Body)
}

// webhookPayload is the JSON document posted to the webhook.
type webhookPayload struct {
	ID        string        `json:"id"`
	Alarms    []alarm.State `json:"alarms"`
	ServiceID string        `json:"serviceId"`
}

// Webhook posts signed batches to a URL.
type Webhook struct {
	url    string
	secret []byte
	client *http.Client
}

// WebhookOption configures a Webhook.
type WebhookOption func(*Webhook)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(w *Webhook) {
		if client != nil {
			w.client = client
		}
	}
}

// NewWebhook creates a webhook notifier signing bodies with secret.
func NewWebhook(url, secret string, opts ...WebhookOption) (*Webhook, error) {
	if url == "" {
		return nil, ErrEmptyURL
	}

	if secret == "" {
		return nil, ErrEmptySecret
	}

	w := &Webhook{
		url:    url,
		secret: []byte(secret),
		client: new(http.Client),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)

	return hex.EncodeToString(mac.Sum(nil))
}

// Notify posts the changed alarms merged with every active alarm.
func (w *Webhook) Notify(ctx context.Context, batch Batch) error {
	body, err := json.Marshal(webhookPayload{
		ID:        batch.ID.String(),
		Alarms:    batch.Merged(),
		ServiceID: batch.ServiceID,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(w.secret, body))

	logger.InfoKV(ctx, "Sending alarms to webhook", "url", w.url)

	return send(w.client, req, http.StatusOK)
}

// send performs req and checks the answer against the accepted statuses.
func send(client *http.Client, req *http.Request, accepted ...int) error {
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send to %s: %w", req.URL.Redacted(), err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	for _, code := range accepted {
		if resp.StatusCode == code {
			_, _ = io.Copy(io.Discard, resp.Body)

			return nil
		}
	}

	text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	return &StatusError{URL: req.URL.Redacted(), Code: resp.StatusCode, Body: string(text)}
}
