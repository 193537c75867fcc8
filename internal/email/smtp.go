package email

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"time"
)

// SMTPEmailService sends emails via SMTP.
//
// This implementation works with:
// - Mailhog (development): No authentication required
// - Any standard SMTP server (production): Uses username/password authentication
type SMTPEmailService struct {
	config SMTPConfig
	logger *slog.Logger
}

// NewSMTPEmailService creates a new SMTP-based email service.
func NewSMTPEmailService(config SMTPConfig, logger *slog.Logger) *SMTPEmailService {
	return &SMTPEmailService{
		config: config,
		logger: logger,
	}
}

// SendRuleChangeNotice notifies administrators that a pricing rule changed.
func (s *SMTPEmailService) SendRuleChangeNotice(ctx context.Context, to []string, category, action, changedBy string) error {
	body := fmt.Sprintf(`A pricing rule was changed.

Category:   %s
Action:     %s
Changed by: %s
At:         %s

Review the change history in the admin API:
GET /api/v1/admin/rules/%s/history
`, category, action, changedBy, time.Now().UTC().Format(time.RFC3339), category)

	subject := fmt.Sprintf("Pricing rule %sd: %s", action, category)

	for _, recipient := range to {
		err := s.send(ctx, Email{
			To:       recipient,
			Subject:  subject,
			TextBody: body,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// send sends an email via SMTP.
func (s *SMTPEmailService) send(ctx context.Context, email Email) error {
	msg := s.buildMessage(email)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	// Auth only when credentials are provided (not needed for Mailhog)
	var auth smtp.Auth
	if s.config.Username != "" && s.config.Password != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	err := smtp.SendMail(addr, auth, s.config.From, []string{email.To}, msg)
	if err != nil {
		s.logger.Error("failed to send email",
			"to", email.To,
			"subject", email.Subject,
			"error", err,
		)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent",
		"to", email.To,
		"subject", email.Subject,
	)

	return nil
}

// buildMessage constructs the raw email message with headers.
func (s *SMTPEmailService) buildMessage(email Email) []byte {
	var buf bytes.Buffer

	fromHeader := fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)

	buf.WriteString(fmt.Sprintf("From: %s\r\n", fromHeader))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", email.To))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", email.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(email.TextBody)
	buf.WriteString("\r\n")

	return buf.Bytes()
}

// Compile-time interface check
var _ EmailService = (*SMTPEmailService)(nil)
