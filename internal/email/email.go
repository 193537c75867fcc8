// Package email sends transactional notifications for the concierge
// platform.
//
// The only notification currently sent is the pricing-rule change notice
// delivered to the administrator distribution list after a successful rule
// mutation. Delivery is best-effort: the caller logs failures but does not
// surface them.
package email

import (
	"context"
)

// EmailService defines the interface for sending transactional emails.
//
// Implementations:
// - SMTPEmailService: Uses SMTP protocol (Mailhog for dev, a hosted SMTP relay for prod)
//
// All methods are context-aware for timeout and cancellation support.
type EmailService interface {
	// SendRuleChangeNotice notifies administrators that a pricing rule was
	// created, updated, or deleted.
	// Parameters:
	// - to: Recipient email addresses
	// - category: Service category of the changed rule
	// - action: One of "create", "update", "delete"
	// - changedBy: Identity of the acting administrator
	SendRuleChangeNotice(ctx context.Context, to []string, category, action, changedBy string) error
}

// Email represents a single email message.
type Email struct {
	To       string // Recipient email address
	Subject  string // Email subject line
	TextBody string // Plain text content
}

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string // SMTP server hostname (e.g., "localhost" for Mailhog)
	Port     int    // SMTP server port (e.g., 1025 for Mailhog)
	Username string // SMTP authentication username (empty for Mailhog)
	Password string // SMTP authentication password (empty for Mailhog)
	From     string // Default sender email address
	FromName string // Default sender display name
}
