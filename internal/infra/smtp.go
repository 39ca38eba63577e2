package infra

import (
	"errors"
	"fmt"
	"net/smtp"

	"akppos/internal/config"

	"github.com/jordan-wright/email"
)

// ErrMailerNotConfigured is returned when no SMTP host is set. Callers treat
// it as terminal rather than retrying.
var ErrMailerNotConfigured = errors.New("mailer: SMTP host not configured")

// Mailer sends invoice PDFs over SMTP.
type Mailer struct {
	host     string
	user     string
	password string
	from     string
	addr     string
}

func NewMailer(cfg *config.Config) *Mailer {
	from := cfg.SMTPFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     from,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	}
}

// Configured reports whether an SMTP host is set.
func (m *Mailer) Configured() bool { return m != nil && m.host != "" }

// SendInvoice mails body to a single recipient with the PDF attached.
func (m *Mailer) SendInvoice(to, subject, body, pdfPath string) error {
	if !m.Configured() {
		return ErrMailerNotConfigured
	}
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if pdfPath != "" {
		if _, err := e.AttachFile(pdfPath); err != nil {
			return fmt.Errorf("mailer: attach PDF: %w", err)
		}
	}

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return e.Send(m.addr, auth)
}
