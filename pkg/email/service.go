// pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"github.com/gurkanbulca/taskflow/internal/models"
)

// Sender is the outbound delivery transport. Implementations must be safe for
// concurrent use; the dispatcher retries failed sends.
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) (*Receipt, error)
}

// Receipt acknowledges one accepted delivery.
type Receipt struct {
	MessageID   string
	Recipient   string
	DeliveredAt time.Time
}

// Config holds SMTP transport configuration.
type Config struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
	AppName      string
}

// Template represents a notification message template.
type Template struct {
	Subject string
	Body    string
}

// MessageData contains data for template rendering.
type MessageData struct {
	Task      models.Task
	AppName   string
	Threshold string
}

// Templates holds the notification templates for each lifecycle event.
type Templates struct {
	TaskAssigned    Template
	StatusUpdated   Template
	DeadlineWarning Template
}

// NewTemplates creates the default notification templates.
func NewTemplates() *Templates {
	return &Templates{
		TaskAssigned: Template{
			Subject: "New Task Assigned: {{.Task.Title}}",
			Body: `You have been assigned a new task:

Title: {{.Task.Title}}
Description: {{.Task.Description}}
Deadline: {{.Task.Deadline.Format "January 2, 2006 at 3:04 PM"}}

Please review the task and update its status once you start working on it.

This is an automated message from {{.AppName}}.`,
		},

		StatusUpdated: Template{
			Subject: "Task Status Updated: {{.Task.Title}}",
			Body: `Task status has been updated:

Title: {{.Task.Title}}
New Status: {{.Task.Status}}
Updated At: {{.Task.UpdatedAt.Format "January 2, 2006 at 3:04 PM"}}

This is an automated message from {{.AppName}}.`,
		},

		DeadlineWarning: Template{
			Subject: "Task Deadline Approaching: {{.Task.Title}}",
			Body: `Task Deadline Reminder

Task: {{.Task.Title}}
Deadline: {{.Task.Deadline.Format "January 2, 2006 at 3:04 PM"}}

This is an automated reminder. Please ensure to complete the task before the deadline.

This is an automated message from {{.AppName}}.`,
		},
	}
}

// Render executes the subject and body templates against data.
func (t Template) Render(data *MessageData) (subject, body string, err error) {
	subject, err = renderTemplate(t.Subject, data)
	if err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	body, err = renderTemplate(t.Body, data)
	if err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}
	return subject, body, nil
}

func renderTemplate(templateStr string, data *MessageData) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}
