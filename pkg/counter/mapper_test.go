package counter

import (
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thangchung/coffeeshop-agent/pkg/auth"
	"github.com/thangchung/coffeeshop-agent/pkg/order"
)

func TestMapTaskReply(t *testing.T) {
	mapper := ResponseMapper{}

	t.Run("completed_task_with_artifact", func(t *testing.T) {
		task := &a2a.Task{
			ID:     a2a.TaskID("t1"),
			Status: a2a.TaskStatus{State: a2a.TaskStateCompleted},
			Artifacts: []*a2a.Artifact{
				{Parts: []a2a.Part{a2a.TextPart{Text: "coffee is brewing"}}},
			},
		}

		outcome, err := mapper.Map(order.CategoryBarista, task)
		require.NoError(t, err)
		assert.True(t, outcome.Success)
		assert.Equal(t, order.CategoryBarista, outcome.Category)
		assert.Equal(t, "coffee is brewing", outcome.Message)
	})

	t.Run("task_without_artifact_uses_status_message", func(t *testing.T) {
		task := &a2a.Task{
			ID: a2a.TaskID("t2"),
			Status: a2a.TaskStatus{
				State:   a2a.TaskStateWorking,
				Message: a2a.NewMessage(a2a.MessageRoleAgent, a2a.TextPart{Text: "queued"}),
			},
		}

		outcome, err := mapper.Map(order.CategoryKitchen, task)
		require.NoError(t, err)
		assert.True(t, outcome.Success)
		assert.Equal(t, "queued", outcome.Message)
	})

	t.Run("bare_task_falls_back_to_state", func(t *testing.T) {
		task := &a2a.Task{
			ID:     a2a.TaskID("t3"),
			Status: a2a.TaskStatus{State: a2a.TaskStateSubmitted},
		}

		outcome, err := mapper.Map(order.CategoryBarista, task)
		require.NoError(t, err)
		assert.True(t, outcome.Success)
		assert.NotEmpty(t, outcome.Message)
	})

	t.Run("auth_required_raises", func(t *testing.T) {
		task := &a2a.Task{
			ID:     a2a.TaskID("t4"),
			Status: a2a.TaskStatus{State: a2a.TaskStateAuthRequired},
		}

		_, err := mapper.Map(order.CategoryBarista, task)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrUnauthorized)
	})
}

func TestMapMessageReply(t *testing.T) {
	mapper := ResponseMapper{}

	t.Run("text_message", func(t *testing.T) {
		msg := a2a.NewMessage(a2a.MessageRoleAgent, a2a.TextPart{Text: "order received"})
		outcome, err := mapper.Map(order.CategoryKitchen, msg)
		require.NoError(t, err)
		assert.True(t, outcome.Success)
		assert.Equal(t, "order received", outcome.Message)
	})

	t.Run("empty_message_defaults", func(t *testing.T) {
		msg := a2a.NewMessage(a2a.MessageRoleAgent)
		outcome, err := mapper.Map(order.CategoryKitchen, msg)
		require.NoError(t, err)
		assert.True(t, outcome.Success)
		assert.Equal(t, "No response content", outcome.Message)
	})
}

func TestMapUnrecognizedReply(t *testing.T) {
	mapper := ResponseMapper{}

	outcome, err := mapper.Map(order.CategoryBarista, 42)
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.ErrorDetail, "int")
}

func TestOutcomeSummary(t *testing.T) {
	ok := DispatchOutcome{Category: order.CategoryBarista, Success: true, Message: "done"}
	assert.Equal(t, "[BARISTA] done", ok.Summary())

	bad := DispatchOutcome{Category: order.CategoryKitchen, Success: false, ErrorDetail: "boom"}
	assert.Equal(t, "[KITCHEN] dispatch failed: boom", bad.Summary())
}
