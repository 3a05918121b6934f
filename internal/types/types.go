// Package types provides common type definitions for the liveness broker system.
package types

import "time"

// Status represents the verification status of a submission
type Status string

const (
	// StatusPending represents a submission awaiting provider pickup
	StatusPending Status = "pending"
	// StatusProcessing represents a submission the provider is working on
	StatusProcessing Status = "processing"
	// StatusReady represents a submission whose verification finished but
	// whose result has not yet been collected
	StatusReady Status = "ready"
	// StatusCompleted represents a terminal successful verification
	StatusCompleted Status = "completed"
	// StatusFailed represents a terminal failed verification
	StatusFailed Status = "failed"

	// StatusNotFound is a query-only sentinel for unknown or expired codes.
	// It is never stored on a record.
	StatusNotFound Status = "not_found"
)

// IsValid reports whether s is a member of the storable status enumeration
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusReady, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether s permits no further transitions
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Submission represents a single liveness verification submission
type Submission struct {
	ID            string    `json:"id"`
	SelfieCode    string    `json:"selfieCode"`
	ClientName    string    `json:"clientName,omitempty"`
	EncryptedCode string    `json:"encryptedCode"`
	Source        string    `json:"source,omitempty"`
	Status        Status    `json:"status"`
	ResultCode    string    `json:"resultCode,omitempty"`
	Attempts      int       `json:"attempts"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	LastChecked   time.Time `json:"lastChecked,omitempty"`
	IPAddress     string    `json:"ipAddress,omitempty"`
	UserAgent     string    `json:"userAgent,omitempty"`
}

// CallbackOutcome represents the verdict reported by the verification provider
type CallbackOutcome string

const (
	// OutcomeSuccess means the provider verified a live human
	OutcomeSuccess CallbackOutcome = "success"
	// OutcomeFailure means the provider rejected the verification
	OutcomeFailure CallbackOutcome = "failure"
)

// CallbackEvent represents an inbound report from the verification provider
type CallbackEvent struct {
	SubmissionID string          `json:"submissionId"`
	Outcome      CallbackOutcome `json:"outcome"`
	ResultCode   string          `json:"resultCode,omitempty"`
	ReceivedAt   time.Time       `json:"receivedAt"`
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
