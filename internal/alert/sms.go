package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"bird_alerts/internal/domain"
)

// Config holds SMS transport configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Sender  string
	Timeout time.Duration
}

// SMSDispatcher sends sighting alerts over an HTTP SMS gateway. One call
// sends exactly one message; delivery receipts are the gateway's concern.
type SMSDispatcher struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	sender     string
	logger     *slog.Logger
}

// NewSMSDispatcher creates an SMS dispatcher.
func NewSMSDispatcher(cfg Config, logger *slog.Logger) *SMSDispatcher {
	return &SMSDispatcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		sender:  cfg.Sender,
		logger:  logger.With("component", "sms"),
	}
}

// Dispatch formats and sends exactly one message summarizing the batch,
// regardless of how many sightings it contains.
func (d *SMSDispatcher) Dispatch(ctx context.Context, sub *domain.Subscription, sightings []domain.Observation) error {
	return d.Send(ctx, sub.Phone, FormatMessage(sub, sightings))
}

type smsRequest struct {
	To   string `json:"to"`
	From string `json:"from,omitempty"`
	Body string `json:"body"`
}

// Send delivers one message to the given phone number. It does not retry;
// the caller re-dispatches on its next cycle if the send fails.
func (d *SMSDispatcher) Send(ctx context.Context, to, body string) error {
	payload, err := json.Marshal(smsRequest{To: to, From: d.sender, Body: body})
	if err != nil {
		return fmt.Errorf("marshal sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", d.apiKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway status %d: %s", resp.StatusCode, respBody)
	}

	d.logger.Debug("sms sent", "to", to, "bytes", len(body))
	return nil
}
