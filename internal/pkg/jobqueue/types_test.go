package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStateTransitions(t *testing.T) {
	job := &Job{
		ID:         "job-1",
		Type:       JobTypePurchaseReconcile,
		Status:     JobStatusPending,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
		MaxRetries: DefaultMaxRetries,
	}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	assert.NotNil(t, job.ProcessedAt)

	job.MarkAsFailed("boom")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "boom", job.ErrorMsg)
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.NotNil(t, job.CompletedAt)
	assert.Empty(t, job.ErrorMsg)
}

func TestJobIsRetryableExhausted(t *testing.T) {
	job := &Job{
		Status:     JobStatusFailed,
		RetryCount: DefaultMaxRetries,
		MaxRetries: DefaultMaxRetries,
	}
	assert.False(t, job.IsRetryable())

	// Only failed jobs retry
	job.Status = JobStatusCompleted
	job.RetryCount = 0
	assert.False(t, job.IsRetryable())
}

func TestPurchaseReconcilePayloadRoundTrip(t *testing.T) {
	payload := PurchaseReconcileJobPayload{Limit: 250}

	decoded, err := PurchaseReconcileJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, 250, decoded.Limit)
}

func TestLedgerArchivePayloadRoundTrip(t *testing.T) {
	payload := LedgerArchiveJobPayload{CutoffDays: 30, MaxRows: 5000}

	decoded, err := LedgerArchiveJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, 30, decoded.CutoffDays)
	assert.Equal(t, 5000, decoded.MaxRows)
}

func TestProWelcomeMailPayloadRoundTrip(t *testing.T) {
	payload := ProWelcomeMailJobPayload{Email: "tipper@example.com", Plan: "yearly"}

	decoded, err := ProWelcomeMailJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, "tipper@example.com", decoded.Email)
	assert.Equal(t, "yearly", decoded.Plan)
}
