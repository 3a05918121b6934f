// Package events publishes submission lifecycle events over NATS so other
// services can react without polling the broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/liveness-broker/internal/logging"
	"github.com/liveness-broker/internal/types"
	"github.com/nats-io/nats.go"
)

// Subjects for submission lifecycle events
const (
	SubjectCreated   = "liveness.submission.created"
	SubjectUpdated   = "liveness.submission.updated"
	SubjectCompleted = "liveness.submission.completed"
)

// SubmissionEvent is the wire payload for lifecycle events
type SubmissionEvent struct {
	RecordID       string       `json:"recordId"`
	SelfieCode     string       `json:"selfieCode"`
	ClientName     string       `json:"clientName,omitempty"`
	Status         types.Status `json:"status"`
	PreviousStatus types.Status `json:"previousStatus,omitempty"`
	ResultCode     string       `json:"resultCode,omitempty"`
	OccurredAt     time.Time    `json:"occurredAt"`
}

// Publisher publishes submission lifecycle events to NATS
type Publisher struct {
	conn *nats.Conn
}

// NewPublisher connects to NATS and returns a publisher
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &Publisher{conn: conn}, nil
}

// Close drains and closes the NATS connection
func (p *Publisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}

// OnCreated implements verification.Hook
func (p *Publisher) OnCreated(ctx context.Context, sub *types.Submission) {
	p.publish(ctx, SubjectCreated, &SubmissionEvent{
		RecordID:   sub.ID,
		SelfieCode: sub.SelfieCode,
		ClientName: sub.ClientName,
		Status:     sub.Status,
		OccurredAt: sub.CreatedAt,
	})
}

// OnStatusChanged implements verification.Hook
func (p *Publisher) OnStatusChanged(ctx context.Context, sub *types.Submission, previous types.Status) {
	subject := SubjectUpdated
	if sub.Status == types.StatusCompleted {
		subject = SubjectCompleted
	}

	p.publish(ctx, subject, &SubmissionEvent{
		RecordID:       sub.ID,
		SelfieCode:     sub.SelfieCode,
		ClientName:     sub.ClientName,
		Status:         sub.Status,
		PreviousStatus: previous,
		ResultCode:     sub.ResultCode,
		OccurredAt:     time.Now(),
	})
}

func (p *Publisher) publish(ctx context.Context, subject string, event *SubmissionEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Failed to encode submission event")
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		logging.FromContext(ctx).WithError(err).WithFields(map[string]interface{}{
			"subject": subject,
		}).Warn("Failed to publish submission event")
	}
}
