package accounts

import (
	"context"
	"fmt"
	"strings"

	"github.com/flosch/pongo2/v6"
	goerrors "github.com/goliatone/go-errors"
	"github.com/wneessen/go-mail"
)

// Email is a rendered message ready for delivery.
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// TemplateRenderer renders email bodies from django-style templates.
type TemplateRenderer struct {
	set *pongo2.TemplateSet
}

func NewTemplateRenderer() *TemplateRenderer {
	loader := pongo2.NewFSLoader(templatesFS)
	return &TemplateRenderer{
		set: pongo2.NewSet("emails", loader),
	}
}

func (r *TemplateRenderer) Render(name string, data map[string]any) (string, error) {
	tpl, err := r.set.FromFile(name)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load email template").
			WithMetadata(map[string]any{
				"template": name,
			})
	}

	out, err := tpl.Execute(pongo2.Context(data))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render email template").
			WithMetadata(map[string]any{
				"template": name,
			})
	}

	return out, nil
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPMailer struct {
	client *mail.Client
	from   string
	logger Logger
}

func NewSMTPMailer(cfg SMTPConfig, logger Logger) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
	}

	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create SMTP client")
	}

	if logger == nil {
		logger = defLogger{}
	}

	return &SMTPMailer{
		client: client,
		from:   cfg.From,
		logger: logger,
	}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, email Email) error {
	msg := mail.NewMsg()

	if err := msg.From(m.from); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid sender address")
	}

	if err := msg.To(email.To); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid recipient address").
			WithMetadata(map[string]any{
				"to": email.To,
			})
	}

	msg.Subject(email.Subject)

	if email.Text != "" {
		msg.SetBodyString(mail.TypeTextPlain, email.Text)
		if email.HTML != "" {
			msg.AddAlternativeString(mail.TypeTextHTML, email.HTML)
		}
	} else {
		msg.SetBodyString(mail.TypeTextHTML, email.HTML)
	}

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to deliver email").
			WithMetadata(map[string]any{
				"to":      email.To,
				"subject": email.Subject,
			})
	}

	m.logger.Info("email delivered", "to", email.To, "subject", email.Subject)

	return nil
}

// ConsoleMailer logs messages instead of delivering them. Meant for
// development setups without an SMTP server.
type ConsoleMailer struct {
	logger Logger
}

func NewConsoleMailer(logger Logger) *ConsoleMailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &ConsoleMailer{logger: logger}
}

func (m *ConsoleMailer) Send(_ context.Context, email Email) error {
	body := email.Text
	if body == "" {
		body = email.HTML
	}

	var sb strings.Builder
	sb.WriteString("\n---------- EMAIL ----------\n")
	fmt.Fprintf(&sb, "To: %s\nSubject: %s\n\n%s\n", email.To, email.Subject, body)
	sb.WriteString("---------------------------")

	m.logger.Info(sb.String())

	return nil
}
