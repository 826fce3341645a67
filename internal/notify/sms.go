package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultSMSBaseURL = "https://api.telnyx.com/v2"

// SMSSender sends a text message to a phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, to, text string) error
}

// SMSConfig controls the SMS gateway client.
type SMSConfig struct {
	BaseURL    string
	APIKey     string
	From       string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// SMSClient talks to a Telnyx-compatible messaging API.
type SMSClient struct {
	baseURL    string
	apiKey     string
	from       string
	httpClient *http.Client
}

func NewSMSClient(cfg SMSConfig) (*SMSClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("notify: SMS API key is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("notify: SMS sender number is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultSMSBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &SMSClient{baseURL: baseURL, apiKey: cfg.APIKey, from: cfg.From, httpClient: httpClient}, nil
}

func (c *SMSClient) SendSMS(ctx context.Context, to, text string) error {
	if strings.TrimSpace(to) == "" {
		return errors.New("notify: SMS recipient required")
	}
	body, err := json.Marshal(struct {
		From string `json:"from"`
		To   string `json:"to"`
		Text string `json:"text"`
	}{From: c.from, To: to, Text: text})
	if err != nil {
		return fmt.Errorf("notify: marshal sms body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build sms request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: sms request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notify: sms gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}

// StubSMSSender logs instead of sending.
type StubSMSSender struct {
	logger zerolog.Logger
}

func NewStubSMSSender(logger zerolog.Logger) *StubSMSSender {
	return &StubSMSSender{logger: logger}
}

func (s *StubSMSSender) SendSMS(_ context.Context, to, text string) error {
	s.logger.Info().Str("to", to).Int("length", len(text)).Msg("stub sms sender: would send sms")
	return nil
}
