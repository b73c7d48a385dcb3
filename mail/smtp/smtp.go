// Package smtp delivers rendered mail over SMTP.
package smtp

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// Config holds the SMTP server settings.
type Config struct {
	Host string
	Port int

	// Secure selects implicit TLS (usually port 465). Otherwise STARTTLS is
	// used when the server offers it.
	Secure bool

	Username string
	Password string

	// From is the sender address, e.g. "Ninja <no-reply@ninja.example>".
	From string
}

// Transport implements ninjaauth.MailTransport.
type Transport struct {
	config  Config
	options []mail.Option
}

func New(config Config) (*Transport, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if config.From == "" {
		return nil, fmt.Errorf("smtp sender address is required")
	}

	var options []mail.Option
	if config.Port > 0 {
		options = append(options, mail.WithPort(config.Port))
	}
	if config.Secure {
		options = append(options, mail.WithSSLPort(false))
	} else {
		options = append(options, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}
	if config.Username != "" {
		options = append(options,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}
	return &Transport{config: config, options: options}, nil
}

func (t *Transport) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(t.config.From); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(t.config.Host, t.options...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to deliver mail: %w", err)
	}
	return nil
}
