// Package mailer delivers transactional email over SMTP.
package mailer

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/wneessen/go-mail"
)

//go:embed templates/reset_password.html.tmpl
var resetPasswordTmpl string

// Config carries the SMTP connection and sender settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends the service's outbound mail. One client is shared across
// sends; go-mail dials per delivery.
type Mailer struct {
	client *mail.Client
	from   string
	logger *slog.Logger
	reset  *template.Template
}

func New(cfg Config, logger *slog.Logger) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mailer: %w", err)
	}

	reset, err := template.New("reset_password").Parse(resetPasswordTmpl)
	if err != nil {
		return nil, fmt.Errorf("mailer: %w", err)
	}

	return &Mailer{
		client: client,
		from:   cfg.From,
		logger: logger,
		reset:  reset,
	}, nil
}

// SendPasswordReset mails the single-use reset link to the account address.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	var body bytes.Buffer
	if err := m.reset.Execute(&body, struct{ ResetURL string }{ResetURL: resetURL}); err != nil {
		return fmt.Errorf("mailer: render: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("mailer: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mailer: %w", err)
	}
	msg.Subject("Reset your password")
	msg.SetBodyString(mail.TypeTextHTML, body.String())

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}

	m.logger.InfoContext(ctx, "password reset mail sent")
	return nil
}
