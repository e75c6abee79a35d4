// Package crm pushes finished purchase applications into Bitrix24 as leads
// through the inbound webhook API. CRM failures are reported to the caller
// but are expected to be treated as non-fatal: the application row is the
// source of truth.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/japanlife/assistbot/core/logger"
	"github.com/japanlife/assistbot/internal/domain"
)

// Config holds the Bitrix24 connection settings.
type Config struct {
	// WebhookURL is the inbound webhook base, e.g.
	// https://example.bitrix24.ru/rest/1/token
	WebhookURL string        `yaml:"webhook_url" envconfig:"BITRIX_WEBHOOK_URL"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"BITRIX_TIMEOUT" default:"10s"`
}

// Enabled reports whether the integration is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.WebhookURL) != ""
}

// Client talks to the Bitrix24 REST API.
type Client struct {
	base string
	http *http.Client
}

// NewClient builds a Bitrix24 client. Returns nil when the integration is
// not configured; callers must tolerate a nil client.
func NewClient(cfg Config) *Client {
	if !cfg.Enabled() {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base: strings.TrimRight(strings.TrimSpace(cfg.WebhookURL), "/"),
		http: &http.Client{Timeout: timeout},
	}
}

type leadRequest struct {
	Fields map[string]any `json:"fields"`
}

type leadResponse struct {
	Result           json.Number `json:"result"`
	ErrorCode        string      `json:"error"`
	ErrorDescription string      `json:"error_description"`
}

// CreateLead registers a new lead for the application and returns its id.
func (c *Client) CreateLead(ctx context.Context, user *domain.User, app *domain.Application) (int64, error) {
	start := time.Now()
	payload := leadRequest{Fields: map[string]any{
		"TITLE":     fmt.Sprintf("Заявка на авто: %s", app.CarModel),
		"NAME":      user.FirstName,
		"LAST_NAME": user.LastName,
		"COMMENTS":  app.Comments,
		"PHONE":     []map[string]string{{"VALUE": app.Phone, "VALUE_TYPE": "WORK"}},
		"SOURCE_ID": "TELEGRAM",
	}}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal lead: %w", err)
	}

	url := c.base + "/crm.lead.add.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build lead request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send lead request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("read lead response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("lead request status %d", resp.StatusCode)
	}

	var parsed leadResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return 0, fmt.Errorf("decode lead response: %w", err)
	}
	if parsed.ErrorCode != "" {
		return 0, fmt.Errorf("bitrix error %s: %s", parsed.ErrorCode, parsed.ErrorDescription)
	}
	leadID, err := parsed.Result.Int64()
	if err != nil {
		return 0, fmt.Errorf("parse lead id %q: %w", parsed.Result.String(), err)
	}

	logger.Info(ctx, "crm.bitrix", "crm.lead.created",
		slog.Int64("lead_id", leadID),
		slog.Int64("application_id", app.ID),
		slog.Duration("took", logger.Took(start)),
	)
	return leadID, nil
}
