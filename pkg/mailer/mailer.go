// Package mailer sends certificate e-mails through SendGrid.
package mailer

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"certhub/config"
)

// Attachment a file attached to a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message one outgoing e-mail.
type Message struct {
	ToName      string
	ToEmail     string
	Subject     string
	PlainText   string
	HTML        string
	Attachments []Attachment
}

// Mailer SendGrid v3 mail/send client.
type Mailer struct {
	apiKey string
	host   string
	from   *mail.Email
	logger *zap.Logger
}

func New(cfg *config.MailConfig, logger *zap.Logger) *Mailer {
	host := cfg.APIHost
	if host == "" {
		host = "https://api.sendgrid.com"
	}
	return &Mailer{
		apiKey: cfg.SendGridAPIKey,
		host:   host,
		from:   mail.NewEmail(cfg.FromName, cfg.From),
		logger: logger,
	}
}

// Send delivers msg. A non-2xx answer from SendGrid is an error.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if m.apiKey == "" {
		return fmt.Errorf("mailer: sendgrid api key not configured")
	}

	v3 := mail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.Subject = msg.Subject
	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(msg.ToName, msg.ToEmail))
	v3.AddPersonalizations(p)
	v3.AddContent(mail.NewContent("text/plain", msg.PlainText))
	if msg.HTML != "" {
		v3.AddContent(mail.NewContent("text/html", msg.HTML))
	}
	for _, a := range msg.Attachments {
		att := mail.NewAttachment()
		att.SetContent(base64.StdEncoding.EncodeToString(a.Data))
		att.SetType(a.ContentType)
		att.SetFilename(a.Filename)
		att.SetDisposition("attachment")
		v3.AddAttachment(att)
	}

	req := sendgrid.GetRequest(m.apiKey, "/v3/mail/send", m.host)
	req.Method = rest.Post
	req.Body = mail.GetRequestBody(v3)

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("mailer: send to %s: %w", msg.ToEmail, err)
	}
	if resp.StatusCode >= 300 {
		m.logger.Warn("sendgrid rejected message",
			zap.Int("status", resp.StatusCode),
			zap.String("to", msg.ToEmail),
			zap.String("body", resp.Body),
		)
		return fmt.Errorf("mailer: send to %s: status %d", msg.ToEmail, resp.StatusCode)
	}
	return nil
}
