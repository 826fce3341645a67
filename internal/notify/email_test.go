package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

func newTestSendGrid(t *testing.T, status int, capture *map[string]any) *SendGridSender {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer sg-key", r.Header.Get("Authorization"))
		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	req := sendgrid.GetRequest("sg-key", "/v3/mail/send", srv.URL)
	req.Method = "POST"
	return &SendGridSender{
		client:    &sendgrid.Client{Request: req},
		fromEmail: "clinic@example.com",
		fromName:  "Smart Health",
		logger:    zerolog.Nop(),
	}
}

func TestSendGridSenderSendsDynamicTemplate(t *testing.T) {
	var payload map[string]any
	s := newTestSendGrid(t, http.StatusAccepted, &payload)

	err := s.SendTemplate(context.Background(), TemplateEmail{
		To:         "alice@example.com",
		ToName:     "Alice",
		TemplateID: "d-booked",
		Data:       map[string]any{"date": "2026-03-02"},
	})
	require.NoError(t, err)

	assert.Equal(t, "d-booked", payload["template_id"])
	personalizations := payload["personalizations"].([]any)
	require.Len(t, personalizations, 1)
	p := personalizations[0].(map[string]any)
	assert.Equal(t, map[string]any{"date": "2026-03-02"}, p["dynamic_template_data"])
}

func TestSendGridSenderErrorStatus(t *testing.T) {
	s := newTestSendGrid(t, http.StatusBadRequest, nil)
	err := s.SendTemplate(context.Background(), TemplateEmail{To: "a@example.com", TemplateID: "d-x"})
	assert.ErrorContains(t, err, "status 400")
}

func TestSendGridSenderRequiresTemplate(t *testing.T) {
	s := newTestSendGrid(t, http.StatusAccepted, nil)
	err := s.SendTemplate(context.Background(), TemplateEmail{To: "a@example.com"})
	assert.Error(t, err)
}

func TestNewSendGridSenderDisabledWithoutKey(t *testing.T) {
	assert.Nil(t, NewSendGridSender(SendGridConfig{}, zerolog.Nop()))
}

func TestSMTPMailerAttachesDocument(t *testing.T) {
	var raw bytes.Buffer
	m := NewSMTPMailer(SMTPConfig{Host: "localhost", Port: 587, From: "reports@example.com"})
	m.send = func(msg *gomail.Message) error {
		_, err := msg.WriteTo(&raw)
		return err
	}

	err := m.SendAttachment(context.Background(), "admin@example.com", "Your Report Is Ready",
		"Please find your generated report attached.", "finance_report.pdf", []byte("%PDF-1.3"))
	require.NoError(t, err)

	out := raw.String()
	assert.Contains(t, out, "Subject: Your Report Is Ready")
	assert.Contains(t, out, "To: admin@example.com")
	assert.Contains(t, out, `filename="finance_report.pdf"`)
	assert.Contains(t, out, "application/pdf")
}

func TestSMTPMailerWrapsSendError(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "localhost", Port: 25})
	m.send = func(*gomail.Message) error { return errors.New("dial tcp: connection refused") }

	err := m.SendAttachment(context.Background(), "a@example.com", "s", "b", "x.pdf", nil)
	assert.ErrorContains(t, err, "connection refused")
}
