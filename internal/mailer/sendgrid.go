package mailer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mhorbach/weather-reminder/internal/config"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridMailer sends transactional email through the SendGrid v3 API.
type SendGridMailer struct {
	apiKey    string
	host      string
	fromEmail string
	timeout   time.Duration
}

func NewSendGridMailer(cfg *config.Config) *SendGridMailer {
	return &SendGridMailer{
		apiKey:    cfg.SendGridAPIKey,
		host:      "https://api.sendgrid.com",
		fromEmail: cfg.FromEmail,
		timeout:   cfg.EmailTimeout,
	}
}

// Send dispatches one HTML email. The request is bounded by the configured
// timeout so a hung provider cannot stall a scheduled firing.
func (m *SendGridMailer) Send(ctx context.Context, toEmail, subject, htmlBody string) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	from := mail.NewEmail("", m.fromEmail)
	to := mail.NewEmail("", toEmail)
	message := mail.NewSingleEmail(from, subject, to, "", htmlBody)

	req := sendgrid.GetRequest(m.apiKey, "/v3/mail/send", m.host)
	req.Method = http.MethodPost
	req.Body = mail.GetRequestBody(message)

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
