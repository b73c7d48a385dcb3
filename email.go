package ninjaauth

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
)

//go:embed templates/mail/*.html
var mailTemplateFS embed.FS

// MailTransport delivers an already rendered message.
type MailTransport interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// MailMessage references a template by name (without extension) and the
// data it is rendered with.
type MailMessage struct {
	To       string
	Subject  string
	Template string
	Data     any
}

// MailDispatcher renders and delivers a MailMessage.
type MailDispatcher interface {
	Dispatch(ctx context.Context, msg MailMessage) error
}

// Mailer renders MailMessages from html templates and hands them to a
// MailTransport.
type Mailer struct {
	Transport MailTransport
	Templates *template.Template
}

// NewMailer returns a Mailer using the bundled templates.
func NewMailer(transport MailTransport) *Mailer {
	return &Mailer{
		Transport: transport,
		Templates: template.Must(template.ParseFS(mailTemplateFS, "templates/mail/*.html")),
	}
}

func (m *Mailer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := m.Templates.ExecuteTemplate(&buf, name+".html", data); err != nil {
		return "", fmt.Errorf("failed to render mail template %q: %w", name, err)
	}
	return buf.String(), nil
}

func (m *Mailer) Dispatch(ctx context.Context, msg MailMessage) error {
	body, err := m.Render(msg.Template, msg.Data)
	if err != nil {
		return err
	}
	if err := m.Transport.Send(ctx, msg.To, msg.Subject, body); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", msg.To, err)
	}
	return nil
}

// ConsoleTransport is a development transport that logs messages instead
// of delivering them.
type ConsoleTransport struct {
	Logger *slog.Logger
}

func (c *ConsoleTransport) Send(ctx context.Context, to, subject, htmlBody string) error {
	loggerOr(c.Logger).InfoContext(ctx, "email", "to", to, "subject", subject, "body", htmlBody)
	return nil
}
