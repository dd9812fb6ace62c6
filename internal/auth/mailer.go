package auth

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer sends transactional mail.
type Mailer interface {
	Send(to, subject, body string) error
	IsConfigured() bool
}

// SMTPMailer delivers mail through a plain SMTP relay.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPMailer constructs an SMTPMailer. An empty host leaves the mailer
// unconfigured; Send then becomes a no-op for callers that check
// IsConfigured first.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, username: username, password: password, from: from}
}

// IsConfigured reports whether an SMTP relay has been set up.
func (m *SMTPMailer) IsConfigured() bool {
	return m.host != "" && m.from != ""
}

// Send delivers one plain-text message.
func (m *SMTPMailer) Send(to, subject, body string) error {
	if !m.IsConfigured() {
		return fmt.Errorf("smtp mailer not configured")
	}
	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	return smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg.String()))
}

var _ Mailer = (*SMTPMailer)(nil)
