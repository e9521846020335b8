package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/main4/cmms/pkg/config"
)

const defaultBaseURL = "https://api.resend.com"

// Message is a single transactional email
type Message struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Mailer sends transactional email through the Resend REST API
type Mailer struct {
	apiKey  string
	from    string
	baseURL string
	client  *http.Client
}

// New creates a Mailer from configuration. An empty API key yields a mailer
// whose sends fail with an explicit error; callers log and move on, sends
// are never retried.
func New(conf *config.MailConfig) *Mailer {
	return &Mailer{
		apiKey:  conf.APIKey,
		from:    conf.From,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// WithBaseURL overrides the API endpoint
func (m *Mailer) WithBaseURL(url string) *Mailer {
	m.baseURL = url
	return m
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// Send delivers one message and returns the provider-assigned message id.
func (m *Mailer) Send(ctx context.Context, msg Message) (string, error) {
	if m.apiKey == "" {
		return "", fmt.Errorf("mailer not configured: missing API key")
	}

	body, err := json.Marshal(sendRequest{
		From:    m.from,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("email send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("email API returned %d: %s", resp.StatusCode, string(data))
	}

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode email response: %w", err)
	}
	return out.ID, nil
}
