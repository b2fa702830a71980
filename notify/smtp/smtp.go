// Package smtp implements the Email trigger sink via net/smtp, the same
// stdlib-based approach the teacher's own communications/smtpservice
// uses (no third-party SMTP client exists anywhere in the pack).
package smtp

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/thrasher-corp/chainmonitor/models"
	"github.com/thrasher-corp/chainmonitor/notify"
)

// sendMailFunc is indirected so tests can substitute a fake SMTP dialer.
var sendMailFunc = smtp.SendMail

// Sink delivers notifications via SMTP.
type Sink struct {
	cfg models.EmailConfig
}

func New(cfg models.EmailConfig) (*Sink, error) {
	if cfg.Host == "" || cfg.Port == 0 || len(cfg.Recipients) == 0 {
		return nil, notify.ConfigError("email", "missing host, port, or recipients")
	}
	return &Sink{cfg: cfg}, nil
}

func (s *Sink) Send(title, body string) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	msg := buildMessage(s.cfg.From, s.cfg.Recipients, title, body)

	if err := sendMailFunc(addr, auth, s.cfg.From, s.cfg.Recipients, msg); err != nil {
		return notify.DeliveryError("email", "sending mail", err)
	}
	return nil
}

func buildMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ","))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
