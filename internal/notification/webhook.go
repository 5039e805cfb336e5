package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// WebhookNotifier posts fired signals to a generic HTTP endpoint as
// structured JSON, so downstream consumers get the trigger context
// (symbol, price, policy, bar time) without parsing the message text.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

type webhookPayload struct {
	Level   string  `json:"level"`
	Symbol  string  `json:"symbol,omitempty"`
	Price   float64 `json:"price,omitempty"`
	Policy  string  `json:"policy,omitempty"`
	BarTime string  `json:"bar_time,omitempty"`
	Message string  `json:"message"`
	SentAt  string  `json:"sent_at"`
}

// NewWebhookNotifier creates a webhook notifier posting to url.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	payload := webhookPayload{
		Level:   string(alert.Level),
		Symbol:  alert.Symbol,
		Price:   alert.Price,
		Policy:  alert.Policy,
		Message: alert.Message,
		SentAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	if !alert.BarTime.IsZero() {
		payload.BarTime = alert.BarTime.UTC().Format(time.RFC3339)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}

	log.Printf("[webhook] sent %s alert to %s", alert.Symbol, w.url)
	return nil
}
