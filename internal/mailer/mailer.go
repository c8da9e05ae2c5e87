// Package mailer composes and delivers advisory mails to branch
// contacts over SMTP.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Compose builds the advisory mail for a branch contact:
// greeting + advisory content + role/SLA footer + signature. A contact
// without an email address is unusable for dispatch.
func Compose(branch string, contact domain.BranchContact, content string) (*domain.MailMessage, error) {
	if !contact.Usable() {
		return nil, fmt.Errorf("%w: no contact email for branch %s", domain.ErrConfigurationMissing, branch)
	}

	name := contact.Name
	if name == "" {
		name = "Branch Head"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", name)
	b.WriteString(content)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Role: %s\n", orNA(contact.Role))
	fmt.Fprintf(&b, "SLA: %s\n\n", orNA(contact.SLA))
	b.WriteString("Regards,\nFraud Intelligence Team")

	return &domain.MailMessage{
		Recipient: contact.Email,
		Subject:   fmt.Sprintf("Fraud Advisory for Branch %s", branch),
		Body:      b.String(),
	}, nil
}

// SMTPSender delivers composed messages over SMTP with STARTTLS.
type SMTPSender struct {
	cfg domain.MailConfig
}

// NewSMTPSender creates a sender. Missing sender credentials are
// ErrConfigurationMissing, reported before any network call.
func NewSMTPSender(cfg domain.MailConfig) (*SMTPSender, error) {
	if cfg.SenderEmail == "" || cfg.SenderPassword == "" {
		return nil, fmt.Errorf("%w: sender email or password", domain.ErrConfigurationMissing)
	}
	if cfg.SMTPHost == "" {
		cfg.SMTPHost = "smtp.gmail.com"
	}
	if cfg.SMTPPort == 0 {
		cfg.SMTPPort = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &SMTPSender{cfg: cfg}, nil
}

// Send delivers one message. Transport failures come back wrapped in
// ErrExternalService; the caller reports them, it does not crash.
func (s *SMTPSender) Send(ctx context.Context, msg *domain.MailMessage) error {
	if msg == nil || msg.Recipient == "" {
		return fmt.Errorf("%w: message has no recipient", domain.ErrConfigurationMissing)
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	dialer := &net.Dialer{Timeout: s.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", domain.ErrExternalService, addr, err)
	}
	deadline := time.Now().Add(s.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("%w: smtp handshake: %v", domain.ErrExternalService, err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: s.cfg.SMTPHost}); err != nil {
		return fmt.Errorf("%w: starttls: %v", domain.ErrExternalService, err)
	}

	auth := smtp.PlainAuth("", s.cfg.SenderEmail, s.cfg.SenderPassword, s.cfg.SMTPHost)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("%w: smtp auth: %v", domain.ErrExternalService, err)
	}

	if err := client.Mail(s.cfg.SenderEmail); err != nil {
		return fmt.Errorf("%w: smtp mail from: %v", domain.ErrExternalService, err)
	}
	if err := client.Rcpt(msg.Recipient); err != nil {
		return fmt.Errorf("%w: smtp rcpt to: %v", domain.ErrExternalService, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("%w: smtp data: %v", domain.ErrExternalService, err)
	}
	if _, err := w.Write([]byte(encodeMessage(s.cfg.SenderEmail, msg))); err != nil {
		w.Close()
		return fmt.Errorf("%w: smtp write: %v", domain.ErrExternalService, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: smtp close data: %v", domain.ErrExternalService, err)
	}

	return client.Quit()
}

func encodeMessage(from string, msg *domain.MailMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.Recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
