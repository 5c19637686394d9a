package mail

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"leadflow/internal/platform/config"
	"leadflow/internal/platform/models"
)

// SMTPMailer delivers automation notification mail through the configured
// relay. Single attempt, no queue; callers isolate failures.
type SMTPMailer struct {
	cfg config.MailConfig
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(to, templateID string, lead *models.Lead) error {
	if m.cfg.Host == "" || m.cfg.Username == "" || m.cfg.Password == "" {
		return errors.New("mail relay not configured")
	}
	if to == "" {
		return errors.New("lead has no email address")
	}

	from := m.cfg.FromAddress
	if from == "" {
		from = m.cfg.Username
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", m.cfg.FromName, from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subjectFor(templateID))
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(renderBody(templateID, lead))

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	return smtp.SendMail(addr, auth, from, []string{to}, []byte(b.String()))
}

func subjectFor(templateID string) string {
	switch templateID {
	case "welcome":
		return "Thanks for your interest"
	case "follow_up":
		return "Following up on your request"
	default:
		return "We received your information"
	}
}

func renderBody(templateID string, lead *models.Lead) string {
	name := "there"
	if lead.FullName != nil && *lead.FullName != "" {
		name = *lead.FullName
	}
	return fmt.Sprintf("Hi %s,\r\n\r\nWe received your details and will be in touch shortly.\r\n", name)
}
