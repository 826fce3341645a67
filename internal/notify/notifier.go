package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"smart-health-server/internal/metrics"
)

// Templates holds the SendGrid dynamic template ids per event.
type Templates struct {
	Booked    string
	Cancelled string
}

// Party is a patient or doctor as seen by notifications.
type Party struct {
	FullName string
	LastName string
	Email    string
	Phone    string
}

// AppointmentNotice describes the appointment a notification is about.
type AppointmentNotice struct {
	AppointmentID string
	Patient       Party
	Doctor        Party
	Date          string
	Time          string
}

// Result reports which channels delivered. Failures never surface as errors.
type Result struct {
	EmailSent bool `json:"sg_email_sent"`
	SMSSent   bool `json:"sms_sent"`
}

// Notifier fans appointment events out to email and SMS.
type Notifier struct {
	email     TemplateSender
	sms       SMSSender
	templates Templates
	metrics   *metrics.NotificationMetrics
	logger    zerolog.Logger
}

func NewNotifier(email TemplateSender, sms SMSSender, templates Templates, m *metrics.NotificationMetrics, logger zerolog.Logger) *Notifier {
	if email == nil {
		email = NewStubEmailSender(logger)
	}
	if sms == nil {
		sms = NewStubSMSSender(logger)
	}
	return &Notifier{email: email, sms: sms, templates: templates, metrics: m, logger: logger}
}

func (n *Notifier) NotifyBooked(ctx context.Context, a AppointmentNotice) Result {
	return n.fanOut(ctx, "booked", a,
		TemplateEmail{
			To:         a.Patient.Email,
			ToName:     a.Patient.FullName,
			TemplateID: n.templates.Booked,
			Data: map[string]any{
				"patient_name": a.Patient.FullName,
				"doctor_name":  a.Doctor.FullName,
				"date":         a.Date,
				"time":         a.Time,
			},
		},
		fmt.Sprintf("Your appointment with Dr. %s is booked for %s at %s.", a.Doctor.LastName, a.Date, a.Time),
	)
}

func (n *Notifier) NotifyCancelled(ctx context.Context, a AppointmentNotice) Result {
	return n.fanOut(ctx, "cancelled", a,
		TemplateEmail{
			To:         a.Patient.Email,
			ToName:     a.Patient.FullName,
			TemplateID: n.templates.Cancelled,
			Data: map[string]any{
				"patient_name": a.Patient.FullName,
				"date":         a.Date,
				"time":         a.Time,
			},
		},
		fmt.Sprintf("Your appointment scheduled on %s at %s has been cancelled.", a.Date, a.Time),
	)
}

func (n *Notifier) fanOut(ctx context.Context, event string, a AppointmentNotice, email TemplateEmail, text string) Result {
	log := n.logger.With().Str("event", event).Str("appointment_id", a.AppointmentID).Logger()
	var res Result

	if email.To == "" {
		log.Warn().Msg("patient has no email address, skipping email")
	} else if err := n.email.SendTemplate(ctx, email); err != nil {
		log.Error().Err(err).Str("to", email.To).Str("template_id", email.TemplateID).Msg("email notification failed")
	} else {
		res.EmailSent = true
	}
	if email.To != "" {
		n.metrics.ObserveSend("email", res.EmailSent)
	}

	if a.Patient.Phone == "" {
		log.Warn().Msg("patient has no phone number, skipping sms")
	} else if err := n.sms.SendSMS(ctx, a.Patient.Phone, text); err != nil {
		log.Error().Err(err).Str("to", a.Patient.Phone).Msg("sms notification failed")
	} else {
		res.SMSSent = true
	}
	if a.Patient.Phone != "" {
		n.metrics.ObserveSend("sms", res.SMSSent)
	}

	log.Info().Bool("sg_email_sent", res.EmailSent).Bool("sms_sent", res.SMSSent).Msg("appointment notification dispatched")
	return res
}
