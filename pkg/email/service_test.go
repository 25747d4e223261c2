package email

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/taskflow/internal/models"
)

func TestTemplatesRender(t *testing.T) {
	templates := NewTemplates()
	data := &MessageData{
		Task: models.Task{
			Title:       "Write report",
			Description: "Quarterly report",
			Status:      models.StatusInProgress,
			Deadline:    time.Date(2026, time.October, 1, 17, 0, 0, 0, time.UTC),
			UpdatedAt:   time.Date(2026, time.September, 1, 9, 30, 0, 0, time.UTC),
		},
		AppName: "TaskFlow",
	}

	t.Run("task assigned", func(t *testing.T) {
		subject, body, err := templates.TaskAssigned.Render(data)
		require.NoError(t, err)
		assert.Equal(t, "New Task Assigned: Write report", subject)
		assert.Contains(t, body, "Quarterly report")
		assert.Contains(t, body, "October 1, 2026")
	})

	t.Run("status updated", func(t *testing.T) {
		subject, body, err := templates.StatusUpdated.Render(data)
		require.NoError(t, err)
		assert.Equal(t, "Task Status Updated: Write report", subject)
		assert.Contains(t, body, "IN_PROGRESS")
		assert.Contains(t, body, "September 1, 2026")
	})

	t.Run("deadline warning", func(t *testing.T) {
		subject, body, err := templates.DeadlineWarning.Render(data)
		require.NoError(t, err)
		assert.Equal(t, "Task Deadline Approaching: Write report", subject)
		assert.Contains(t, body, "complete the task before the deadline")
	})
}

func TestMockSender(t *testing.T) {
	sender := NewMockSender()
	ctx := context.Background()

	receipt, err := sender.Send(ctx, "alice@example.com", "Hello", "Body")
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.MessageID)
	assert.Equal(t, "alice@example.com", receipt.Recipient)

	last := sender.GetLastSentEmail()
	require.NotNil(t, last)
	assert.Equal(t, "Hello", last.Subject)

	sender.FailTimes = 1
	_, err = sender.Send(ctx, "alice@example.com", "Hello", "Body")
	assert.Error(t, err)

	// The failure budget is consumed; the next send succeeds.
	_, err = sender.Send(ctx, "alice@example.com", "Hello", "Body")
	assert.NoError(t, err)

	sender.Clear()
	assert.Empty(t, sender.GetSentEmails())
}
