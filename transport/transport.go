// Package transport defines the boundary to the external mail providers
// and ships one concrete adapter over gopkg.in/gomail.v2. Every worker
// depends on the Transport interface, never on gomail directly, so a real
// deployment can swap in Gmail or Microsoft Graph API clients.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"

	"gopkg.in/gomail.v2"
)

// Message is everything a Transport needs to hand one rendered email to a
// provider.
type Message struct {
	FromEmail        string
	FromName         string
	ToEmail          string
	Subject          string
	BodyHTML         string
	MessageID        string
	InReplyTo        string
	ReferencesHeader string
}

// SMTPCredentials are the per-inbox connection details stored on
// models.Inbox.
type SMTPCredentials struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Transport sends one rendered message through an external provider and
// reports the outcome. SendResult carries only the acceptance time; a
// failure comes back as the returned error, and callers detect
// provider-auth failures by passing its text to IsAuthFailure.
type Transport interface {
	Send(ctx context.Context, creds SMTPCredentials, msg Message) (SendResult, error)
}

// SendResult is the outcome of a successful provider handoff (the message
// was accepted for delivery — bounces arrive later via a separate
// feedback channel, not as a Send error).
type SendResult struct {
	AcceptedAt time.Time
}

// SMTPTransport is the default adapter: a gomail dialer per send, with a
// bounded retry loop for temporary errors.
type SMTPTransport struct {
	MaxRetries int
}

// NewSMTPTransport constructs the default transport with a three-attempt
// retry budget.
func NewSMTPTransport() *SMTPTransport {
	return &SMTPTransport{MaxRetries: 3}
}

func (t *SMTPTransport) Send(ctx context.Context, creds SMTPCredentials, msg Message) (SendResult, error) {
	dialer := gomail.NewDialer(creds.Host, creds.Port, creds.Username, creds.Password)
	dialer.TLSConfig = &tls.Config{ServerName: creds.Host}

	m := gomail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", msg.FromName, msg.FromEmail))
	m.SetHeader("To", msg.ToEmail)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.BodyHTML)
	if msg.MessageID != "" {
		m.SetHeader("Message-ID", msg.MessageID)
	}
	if msg.InReplyTo != "" {
		m.SetHeader("In-Reply-To", msg.InReplyTo)
	}
	if msg.ReferencesHeader != "" {
		m.SetHeader("References", msg.ReferencesHeader)
	}

	maxRetries := t.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= maxRetries; attempt++ {
		attempts = attempt
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return SendResult{}, ctx.Err()
			case <-time.After(time.Duration(attempt*attempt) * time.Second):
			}
		}

		if err := dialer.DialAndSend(m); err != nil {
			lastErr = err
			if !isTemporaryError(err) {
				break
			}
			continue
		}
		return SendResult{AcceptedAt: time.Now()}, nil
	}

	return SendResult{}, fmt.Errorf("transport: send failed after %d attempts: %w", attempts, lastErr)
}

// isTemporaryError: network-layer temporary errors and SMTP 4xx codes are
// retryable; anything else is permanent.
func isTemporaryError(err error) bool {
	if err == nil {
		return false
	}
	if netErr, ok := err.(net.Error); ok && netErr.Temporary() {
		return true
	}
	errStr := strings.ToLower(err.Error())
	for _, marker := range []string{"try again", "temporary", "421", "450", "451", "452"} {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}
