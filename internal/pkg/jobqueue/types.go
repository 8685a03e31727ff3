package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypePurchaseReconcile JobType = "purchase_reconcile"
	JobTypeLedgerArchive     JobType = "ledger_archive"
	JobTypeProWelcomeMail    JobType = "pro_welcome_mail"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// PurchaseReconcileJobPayload contains the payload for orphan-purchase
// reconcile jobs
type PurchaseReconcileJobPayload struct {
	Limit int `json:"limit"` // max rows to link in one run; 0 = default
}

// ToMap converts the payload to a map for storage
func (p PurchaseReconcileJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"limit": p.Limit,
	}
}

// FromMap creates a payload from a map
func PurchaseReconcileJobPayloadFromMap(data map[string]interface{}) (*PurchaseReconcileJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload PurchaseReconcileJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// LedgerArchiveJobPayload contains the payload for ledger snapshot jobs
type LedgerArchiveJobPayload struct {
	CutoffDays int `json:"cutoff_days"` // snapshot rows older than N days; 0 = all rows
	MaxRows    int `json:"max_rows"`    // cap per snapshot; 0 = default
}

// ToMap converts the payload to a map for storage
func (p LedgerArchiveJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"cutoff_days": p.CutoffDays,
		"max_rows":    p.MaxRows,
	}
}

// FromMap creates a payload from a map
func LedgerArchiveJobPayloadFromMap(data map[string]interface{}) (*LedgerArchiveJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload LedgerArchiveJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// ProWelcomeMailJobPayload contains the payload for pro welcome mails
type ProWelcomeMailJobPayload struct {
	Email string `json:"email"`
	Plan  string `json:"plan"`
}

// ToMap converts the payload to a map for storage
func (p ProWelcomeMailJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"email": p.Email,
		"plan":  p.Plan,
	}
}

// FromMap creates a payload from a map
func ProWelcomeMailJobPayloadFromMap(data map[string]interface{}) (*ProWelcomeMailJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload ProWelcomeMailJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
