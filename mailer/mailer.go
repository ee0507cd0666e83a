package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

type Message struct {
	To        string
	ToName    string
	Subject   string
	PlainText string
	HTML      string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
	log    logrus.FieldLogger
}

func NewSendGrid(apiKey, fromEmail, fromName string, log logrus.FieldLogger) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromEmail),
		log:    log.WithField("component", "mailer"),
	}
}

func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	to := mail.NewEmail(msg.ToName, msg.To)
	email := mail.NewSingleEmail(m.from, msg.Subject, to, msg.PlainText, msg.HTML)

	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		m.log.WithError(err).WithField("to", msg.To).Error("Failed to send email")
		return fmt.Errorf("send email to %s: %w", msg.To, err)
	}
	if resp.StatusCode >= 300 {
		m.log.WithFields(logrus.Fields{
			"to":     msg.To,
			"status": resp.StatusCode,
			"body":   resp.Body,
		}).Error("Email provider rejected message")
		return fmt.Errorf("send email to %s: provider returned status %d", msg.To, resp.StatusCode)
	}
	m.log.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject}).Info("Email sent")
	return nil
}

// LogMailer only logs messages. It is used when no SendGrid key is set.
type LogMailer struct {
	log logrus.FieldLogger
}

func NewLogMailer(log logrus.FieldLogger) *LogMailer {
	return &LogMailer{log: log.WithField("component", "mailer")}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.log.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("Email delivery disabled, message logged")
	m.log.Debug(msg.PlainText)
	return nil
}
