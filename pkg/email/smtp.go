// pkg/email/smtp.go
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SMTPSender implements Sender using SMTP
type SMTPSender struct {
	config *Config
	auth   smtp.Auth
}

// NewSMTPSender creates a new SMTP sender
func NewSMTPSender(config *Config) *SMTPSender {
	auth := smtp.PlainAuth("", config.SMTPUsername, config.SMTPPassword, config.SMTPHost)

	return &SMTPSender{
		config: config,
		auth:   auth,
	}
}

// Send delivers one plain-text message over SMTP.
func (s *SMTPSender) Send(ctx context.Context, recipient, subject, body string) (*Receipt, error) {
	messageID := uuid.New().String()
	message := s.buildMessage(recipient, subject, body, messageID)

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	if err := smtp.SendMail(addr, s.auth, s.config.FromEmail, []string{recipient}, message); err != nil {
		return nil, fmt.Errorf("send email: %w", err)
	}

	return &Receipt{
		MessageID:   messageID,
		Recipient:   recipient,
		DeliveredAt: time.Now().UTC(),
	}, nil
}

// buildMessage assembles the raw message headers and body.
func (s *SMTPSender) buildMessage(to, subject, body, messageID string) []byte {
	message := fmt.Sprintf(`From: %s <%s>
To: %s
Subject: %s
Message-ID: <%s@%s>
MIME-Version: 1.0
Content-Type: text/plain; charset=UTF-8
Content-Transfer-Encoding: 7bit

%s
`, s.config.FromName, s.config.FromEmail, to, subject, messageID, s.config.SMTPHost, body)

	return []byte(message)
}

// TestConnection tests the SMTP connection
func (s *SMTPSender) TestConnection(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("dial SMTP server: %w", err)
	}
	defer client.Close()

	if err := client.Auth(s.auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}

	return nil
}

// MockSender implements Sender for testing
type MockSender struct {
	mu         sync.Mutex
	SentEmails []SentEmail

	// FailTimes makes the next N sends fail, for exercising retry paths.
	FailTimes int
}

// SentEmail represents an email that was sent via MockSender
type SentEmail struct {
	To      string
	Subject string
	Body    string
	SentAt  time.Time
}

// NewMockSender creates a new mock sender
func NewMockSender() *MockSender {
	return &MockSender{
		SentEmails: make([]SentEmail, 0),
	}
}

// Send mock implementation
func (m *MockSender) Send(ctx context.Context, recipient, subject, body string) (*Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailTimes > 0 {
		m.FailTimes--
		return nil, fmt.Errorf("mock transport failure")
	}

	m.SentEmails = append(m.SentEmails, SentEmail{
		To:      recipient,
		Subject: subject,
		Body:    body,
		SentAt:  time.Now(),
	})
	return &Receipt{
		MessageID:   uuid.New().String(),
		Recipient:   recipient,
		DeliveredAt: time.Now().UTC(),
	}, nil
}

// GetSentEmails returns all sent emails (for testing)
func (m *MockSender) GetSentEmails() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentEmail(nil), m.SentEmails...)
}

// GetLastSentEmail returns the last sent email (for testing)
func (m *MockSender) GetLastSentEmail() *SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.SentEmails) == 0 {
		return nil
	}
	last := m.SentEmails[len(m.SentEmails)-1]
	return &last
}

// Clear clears all sent emails (for testing)
func (m *MockSender) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentEmails = make([]SentEmail, 0)
}
