package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

// SMTPMailer sends email through a plain-auth SMTP relay. The verification
// link points at the client application, which calls the API back with the
// token.
type SMTPMailer struct {
	host         string
	port         int
	username     string
	password     string
	from         string
	clientOrigin string
}

func NewSMTPMailer(host string, port int, username, password, from, clientOrigin string) *SMTPMailer {
	return &SMTPMailer{
		host:         host,
		port:         port,
		username:     username,
		password:     password,
		from:         from,
		clientOrigin: clientOrigin,
	}
}

func (m *SMTPMailer) SendVerificationEmail(ctx context.Context, to, fullname, token string) error {
	verificationURL := fmt.Sprintf("%s/verify-email/%s", m.clientOrigin, token)

	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail to: %w", err)
	}
	msg.Subject("Verify your email")
	msg.SetBodyString(gomail.TypeTextHTML, fmt.Sprintf(
		`<h2>Welcome %s</h2>
<p>Please verify your email by clicking the link below:</p>
<a href="%s">%s</a>`,
		fullname, verificationURL, verificationURL))

	client, err := gomail.NewClient(m.host,
		gomail.WithPort(m.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(m.username),
		gomail.WithPassword(m.password),
	)
	if err != nil {
		return fmt.Errorf("mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mail send: %w", err)
	}
	return nil
}
