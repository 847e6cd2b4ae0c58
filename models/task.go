package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// TaskStatus represents the status of an async lookup task
type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// LookupTask represents an async product lookup task
type LookupTask struct {
	ID          string          `json:"id"`
	ProductName string          `json:"product_name"`
	Status      TaskStatus      `json:"status"`
	Message     string          `json:"message"`
	Result      *ProductModel   `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// NewLookupTask creates a new queued lookup task
func NewLookupTask(productName string) *LookupTask {
	return &LookupTask{
		ID:          generateTaskID(),
		ProductName: productName,
		Status:      TaskStatusQueued,
		Message:     "Task queued for processing",
		CreatedAt:   time.Now(),
	}
}

// Start marks the task as processing
func (t *LookupTask) Start() {
	t.Status = TaskStatusProcessing
	t.Message = "Looking up product model..."
	now := time.Now()
	t.StartedAt = &now
}

// Complete marks the task as completed with a stored model. A nil model
// is a valid completion: the search produced no acceptable candidate.
func (t *LookupTask) Complete(result *ProductModel) {
	t.Status = TaskStatusCompleted
	if result == nil {
		t.Message = "No matching product model found"
	} else {
		t.Message = "Product model created"
	}
	t.Result = result
	now := time.Now()
	t.CompletedAt = &now
}

// Fail marks the task as failed with an error message
func (t *LookupTask) Fail(errMsg string) {
	t.Status = TaskStatusFailed
	t.Message = "Lookup failed"
	t.Error = errMsg
	now := time.Now()
	t.CompletedAt = &now
}

// IsCompleted returns true if the task is in a final state
func (t *LookupTask) IsCompleted() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// IsActive returns true if the task is still queued or running
func (t *LookupTask) IsActive() bool {
	return t.Status == TaskStatusQueued || t.Status == TaskStatusProcessing
}

// Duration returns how long the task has been (or was) running
func (t *LookupTask) Duration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}

	endTime := time.Now()
	if t.CompletedAt != nil {
		endTime = *t.CompletedAt
	}

	return endTime.Sub(*t.StartedAt)
}

// generateTaskID generates a unique task ID
func generateTaskID() string {
	b := make([]byte, 6)
	rand.Read(b)
	return "task_" + time.Now().Format("20060102150405") + "_" + hex.EncodeToString(b)
}
