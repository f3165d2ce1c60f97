package messaging

import (
	"context"
	"fmt"
	"net/smtp"
)

// EmailProvider sends transactional email over SMTP.
type EmailProvider struct {
	addr string // host:port
	from string
	auth smtp.Auth
}

// NewEmailProvider creates an EmailProvider. auth may be nil for local/dev
// SMTP relays that don't require authentication.
func NewEmailProvider(addr, from, username, password, host string) *EmailProvider {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &EmailProvider{addr: addr, from: from, auth: auth}
}

// Name identifies this provider.
func (p *EmailProvider) Name() string { return "email" }

// Send delivers msg via SMTP and returns an empty reference (SMTP has no
// durable message ID on the basic send path).
func (p *EmailProvider) Send(ctx context.Context, msg Message) (string, error) {
	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		p.from, msg.ToEmail, msg.Subject, msg.BodyText)

	if err := smtp.SendMail(p.addr, p.auth, p.from, []string{msg.ToEmail}, []byte(body)); err != nil {
		return "", fmt.Errorf("sending email to %s: %w", msg.ToEmail, err)
	}
	return "", nil
}
