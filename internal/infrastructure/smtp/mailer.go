package smtp

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"github.com/go-chat-realtime/internal/config"
)

// Mailer sends emails.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

type mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

func (m *mailer) SendEmail(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg))
}

const codeSubject = "Your verification code"

// CodeNotifier delivers verification codes by email.
type CodeNotifier struct {
	mailer Mailer
	ttl    time.Duration
}

// NewCodeNotifier uses ttl only for the wording of the message.
func NewCodeNotifier(m Mailer, ttl time.Duration) *CodeNotifier {
	return &CodeNotifier{mailer: m, ttl: ttl}
}

// NotifyCode sends the code and gives up when ctx ends. net/smtp has no
// context support, so an abandoned send finishes in the background.
func (n *CodeNotifier) NotifyCode(ctx context.Context, email, code string) error {
	body := fmt.Sprintf("Your verification code is %s. It expires in %s.", code, n.ttl)
	done := make(chan error, 1)
	go func() { done <- n.mailer.SendEmail(email, codeSubject, body) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send email: %w", ctx.Err())
	}
}
