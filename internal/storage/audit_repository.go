package storage

import (
	"context"
	"fmt"

	"github.com/liveness-broker/internal/logging"
	"github.com/liveness-broker/internal/types"
)

// AuditRepository records submission lifecycle facts durably. The live
// submission state stays in the injected store; this table is append-only.
type AuditRepository struct {
	db *PostgresDB
}

// NewAuditRepository creates an audit repository
func NewAuditRepository(db *PostgresDB) *AuditRepository {
	return &AuditRepository{db: db}
}

// RecordCreated appends a creation row for a submission
func (r *AuditRepository) RecordCreated(ctx context.Context, sub *types.Submission) error {
	query := `
		INSERT INTO submission_audit (
			record_id, selfie_code, client_name, source, event, status,
			result_code, ip_address, user_agent, occurred_at
		) VALUES ($1, $2, $3, $4, 'created', $5, $6, $7, $8, $9)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		sub.ID,
		sub.SelfieCode,
		sub.ClientName,
		sub.Source,
		string(sub.Status),
		sub.ResultCode,
		sub.IPAddress,
		sub.UserAgent,
		sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit row: %w", err)
	}
	return nil
}

// RecordTransition appends a status transition row for a submission
func (r *AuditRepository) RecordTransition(ctx context.Context, sub *types.Submission, previous types.Status) error {
	query := `
		INSERT INTO submission_audit (
			record_id, selfie_code, client_name, source, event, status,
			previous_status, result_code, ip_address, user_agent, occurred_at
		) VALUES ($1, $2, $3, $4, 'status_changed', $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		sub.ID,
		sub.SelfieCode,
		sub.ClientName,
		sub.Source,
		string(sub.Status),
		string(previous),
		sub.ResultCode,
		sub.IPAddress,
		sub.UserAgent,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit row: %w", err)
	}
	return nil
}

// AuditHook adapts the repository to the verification service's hook
// surface. Audit failures are logged, never surfaced to the request.
type AuditHook struct {
	repo *AuditRepository
}

// NewAuditHook creates an audit hook over the repository
func NewAuditHook(repo *AuditRepository) *AuditHook {
	return &AuditHook{repo: repo}
}

// OnCreated records submission creation
func (h *AuditHook) OnCreated(ctx context.Context, sub *types.Submission) {
	if err := h.repo.RecordCreated(ctx, sub); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Failed to audit submission creation")
	}
}

// OnStatusChanged records status transitions
func (h *AuditHook) OnStatusChanged(ctx context.Context, sub *types.Submission, previous types.Status) {
	if err := h.repo.RecordTransition(ctx, sub, previous); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Failed to audit status transition")
	}
}
