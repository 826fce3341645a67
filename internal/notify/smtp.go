package notify

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"

	"gopkg.in/gomail.v2"
)

// SMTPConfig holds the outgoing mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends emails with attachments over SMTP.
type SMTPMailer struct {
	from string
	send func(m *gomail.Message) error
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.SSL = cfg.Port == 465
	return &SMTPMailer{from: cfg.From, send: func(m *gomail.Message) error { return dialer.DialAndSend(m) }}
}

// SendAttachment emails body as plain text with data attached as fileName.
func (s *SMTPMailer) SendAttachment(ctx context.Context, to, subject, body, fileName string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	contentType := mime.TypeByExtension(filepath.Ext(fileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	m.Attach(fileName,
		gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}),
		gomail.SetHeader(map[string][]string{"Content-Type": {contentType}}),
	)

	if err := s.send(m); err != nil {
		return fmt.Errorf("notify: smtp send to %s: %w", to, err)
	}
	return nil
}
