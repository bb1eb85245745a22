package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskMessageValidate(t *testing.T) {
	valid := TaskMessage{
		JobID:       "job-1",
		UserID:      "user-1",
		PredictorID: "formula-ocr",
		Payload:     "aGVsbG8=",
		Filename:    "eq.png",
		SubmittedAt: time.Now().UTC(),
	}

	t.Run("complete message passes", func(t *testing.T) {
		assert.NoError(t, valid.Validate())
	})

	t.Run("missing fields fail", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*TaskMessage)
		}{
			{"no job_id", func(m *TaskMessage) { m.JobID = "" }},
			{"no user_id", func(m *TaskMessage) { m.UserID = "" }},
			{"no payload", func(m *TaskMessage) { m.Payload = "" }},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				msg := valid
				tt.mutate(&msg)
				assert.Error(t, msg.Validate())
			})
		}
	})
}

func TestDecodeResultMessage(t *testing.T) {
	t.Run("valid envelope decodes", func(t *testing.T) {
		body := []byte(`{"job_id":"job-1","user_id":"user-1","worker_id":"w-1","success":true,"output":"42","confidence":0.9}`)

		msg, err := DecodeResultMessage(body)
		require.NoError(t, err)
		assert.Equal(t, "job-1", msg.JobID)
		assert.True(t, msg.Success)
		require.NotNil(t, msg.Output)
		assert.Equal(t, "42", *msg.Output)
	})

	t.Run("missing job_id is rejected", func(t *testing.T) {
		_, err := DecodeResultMessage([]byte(`{"success":true}`))
		assert.Error(t, err)
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		_, err := DecodeResultMessage([]byte(`{broken`))
		assert.Error(t, err)
	})
}
