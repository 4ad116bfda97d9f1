// Package email delivers account notices. Delivery is always best effort
// from the caller's point of view.
package email

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// Message carries both renderings; providers that only take one use HTML.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes the plain-text rendering to the log.
type LogSender struct {
	logger *slog.Logger
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "email not delivered (log sender)",
		"to", msg.To, "subject", msg.Subject, "text", msg.Text)
	return nil
}

type ResendSender struct {
	client *resend.Client
	from   string
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	_, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("resend %q to %s: %w", msg.Subject, msg.To, err)
	}
	return nil
}

// NewSender picks Resend when an API key is configured outside local
// development and falls back to logging otherwise.
func NewSender(env, apiKey, from string, logger *slog.Logger) Sender {
	if env == "local" || apiKey == "" {
		return &LogSender{logger: logger.With("component", "email")}
	}
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

// RegistrationNotice is sent to a newly registered admin.
func RegistrationNotice(addr string) Message {
	const subject = "Your blog admin account is ready"
	return Message{
		To:      addr,
		Subject: subject,
		HTML: fmt.Sprintf(
			`<p>An admin account was created for <strong>%s</strong>.</p><p>If this wasn't you, rotate the registration secret.</p>`,
			html.EscapeString(addr),
		),
		Text: fmt.Sprintf("An admin account was created for %s.\nIf this wasn't you, rotate the registration secret.\n", addr),
	}
}
