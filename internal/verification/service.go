// Package verification owns the submission lifecycle: creation, status
// polling, and the state machine driven by verification provider callbacks.
package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/liveness-broker/internal/logging"
	"github.com/liveness-broker/internal/store"
	"github.com/liveness-broker/internal/types"
)

// ErrNotFound is returned when a selfie code has no live submission
var ErrNotFound = errors.New("submission not found")

// ProgressSource supplies a status for a submission when no provider
// callback has arrived. Production deployments run without one; the
// simulated source exists for demos and tests.
type ProgressSource interface {
	Progress(sub *types.Submission, now time.Time) types.Status
}

// Hook observes submission lifecycle events. Hook failures are logged and
// never fail the triggering request.
type Hook interface {
	OnCreated(ctx context.Context, sub *types.Submission)
	OnStatusChanged(ctx context.Context, sub *types.Submission, previous types.Status)
}

// Service coordinates submission state
type Service struct {
	store     store.SubmissionStore
	progress  ProgressSource
	statusTTL time.Duration
	nowFunc   func() time.Time
	hooks     []Hook
}

// Config configures the verification service
type Config struct {
	// Store holds submissions; required.
	Store store.SubmissionStore

	// Progress is consulted on polls for non-terminal submissions when no
	// callback has arrived. Nil disables simulated progression entirely.
	Progress ProgressSource

	// StatusTTL expires submissions on next access. Zero means no expiry.
	StatusTTL time.Duration

	// NowFunc overrides the clock for tests.
	NowFunc func() time.Time
}

// NewService creates a verification service
func NewService(cfg *Config, hooks ...Hook) (*Service, error) {
	if cfg == nil || cfg.Store == nil {
		return nil, errors.New("submission store is required")
	}

	nowFunc := cfg.NowFunc
	if nowFunc == nil {
		nowFunc = time.Now
	}

	return &Service{
		store:     cfg.Store,
		progress:  cfg.Progress,
		statusTTL: cfg.StatusTTL,
		nowFunc:   nowFunc,
		hooks:     hooks,
	}, nil
}

// CreateSubmissionInput holds the fields of a new submission
type CreateSubmissionInput struct {
	SelfieCode    string
	EncryptedCode string
	ClientName    string
	Source        string
	IPAddress     string
	UserAgent     string
}

// Validate checks required fields
func (in *CreateSubmissionInput) Validate() error {
	if in.SelfieCode == "" {
		return &types.ServiceError{Code: "MISSING_FIELD", Message: "selfie_code is required"}
	}
	if in.EncryptedCode == "" {
		return &types.ServiceError{Code: "MISSING_FIELD", Message: "encrypted_code is required"}
	}
	return nil
}

// CreateSubmission stores a new pending submission and returns it. A repeated
// selfie code shadows the previous submission; callers own key uniqueness.
func (s *Service) CreateSubmission(ctx context.Context, input *CreateSubmissionInput) (*types.Submission, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	sub := &types.Submission{
		SelfieCode:    input.SelfieCode,
		EncryptedCode: input.EncryptedCode,
		ClientName:    input.ClientName,
		Source:        input.Source,
		IPAddress:     input.IPAddress,
		UserAgent:     input.UserAgent,
		Status:        types.StatusPending,
		CreatedAt:     s.nowFunc(),
	}

	id, err := s.store.Create(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}
	sub.ID = id

	for _, hook := range s.hooks {
		hook.OnCreated(ctx, sub)
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"recordId":   sub.ID,
		"selfieCode": sub.SelfieCode,
	}).Info("Submission created")

	return sub, nil
}

// StatusView is the answer to a status poll
type StatusView struct {
	Status     types.Status
	Attempts   int
	ResultCode string
}

// CheckStatus answers a status poll. Every poll increments the attempt
// counter and stamps the check time. Status transitions come only from
// provider callbacks, or from the injected progress source when one is
// configured and the submission is not yet terminal.
func (s *Service) CheckStatus(ctx context.Context, selfieCode string) (*StatusView, error) {
	sub, err := s.lookup(ctx, selfieCode)
	if err != nil {
		return nil, err
	}

	now := s.nowFunc()
	sub.Attempts++
	sub.LastChecked = now

	if s.progress != nil && !sub.Status.IsTerminal() {
		next := s.progress.Progress(sub, now)
		if next.IsValid() && next != sub.Status {
			s.transition(ctx, sub, next, now)
		}
	}

	if err := s.store.Update(ctx, sub); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("update submission: %w", err)
	}

	return &StatusView{
		Status:     sub.Status,
		Attempts:   sub.Attempts,
		ResultCode: sub.ResultCode,
	}, nil
}

// ResultView is the answer to a result fetch
type ResultView struct {
	Completed  bool
	Status     types.Status
	ResultCode string
}

// GetResult returns the minted result code once a submission completed. For
// non-completed submissions it reports the current status instead.
func (s *Service) GetResult(ctx context.Context, selfieCode string) (*ResultView, error) {
	sub, err := s.lookup(ctx, selfieCode)
	if err != nil {
		return nil, err
	}

	if sub.Status != types.StatusCompleted {
		return &ResultView{Completed: false, Status: sub.Status}, nil
	}

	return &ResultView{
		Completed:  true,
		Status:     sub.Status,
		ResultCode: sub.ResultCode,
	}, nil
}

// ApplyCallback applies a provider verdict to a submission. Terminal states
// are sticky: a second callback for the same submission is a no-op and the
// stored record is returned unchanged. The event is stamped with the
// submission id and receipt time so hooks and logs see a complete report.
func (s *Service) ApplyCallback(ctx context.Context, selfieCode string, event *types.CallbackEvent) (*types.Submission, error) {
	if event == nil {
		return nil, &types.ServiceError{Code: "MISSING_FIELD", Message: "callback event is required"}
	}

	sub, err := s.lookup(ctx, selfieCode)
	if err != nil {
		return nil, err
	}

	event.SubmissionID = sub.ID
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = s.nowFunc()
	}

	if sub.Status.IsTerminal() {
		return sub, nil
	}

	switch event.Outcome {
	case types.OutcomeSuccess:
		if event.ResultCode != "" {
			sub.ResultCode = event.ResultCode
		}
		s.transition(ctx, sub, types.StatusCompleted, event.ReceivedAt)
	case types.OutcomeFailure:
		s.transition(ctx, sub, types.StatusFailed, event.ReceivedAt)
	default:
		return nil, &types.ServiceError{
			Code:    "INVALID_OUTCOME",
			Message: fmt.Sprintf("unknown callback outcome: %s", event.Outcome),
		}
	}

	if err := s.store.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("update submission: %w", err)
	}

	return sub, nil
}

// lookup fetches a submission and enforces the status TTL: expired
// submissions are deleted on access and reported as not found.
func (s *Service) lookup(ctx context.Context, selfieCode string) (*types.Submission, error) {
	if selfieCode == "" {
		return nil, &types.ServiceError{Code: "MISSING_FIELD", Message: "selfie_code is required"}
	}

	sub, err := s.store.GetByCode(ctx, selfieCode)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}

	if s.statusTTL > 0 && s.nowFunc().Sub(sub.CreatedAt) > s.statusTTL {
		if err := s.store.DeleteByCode(ctx, selfieCode); err != nil {
			logging.FromContext(ctx).WithError(err).Warn("Failed to delete expired submission")
		}
		return nil, ErrNotFound
	}

	return sub, nil
}

// transition moves a submission to a new status, minting a result code on
// completion, and notifies hooks.
func (s *Service) transition(ctx context.Context, sub *types.Submission, next types.Status, now time.Time) {
	previous := sub.Status
	sub.Status = next

	if next == types.StatusCompleted && sub.ResultCode == "" {
		sub.ResultCode = MintResultCode(now)
	}

	for _, hook := range s.hooks {
		hook.OnStatusChanged(ctx, sub, previous)
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"recordId": sub.ID,
		"from":     previous,
		"to":       next,
	}).Info("Submission status changed")
}

const resultCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// MintResultCode mints an opaque result token of the form
// RESULT_<12 uppercase alphanumerics>_<unix seconds>.
func MintResultCode(now time.Time) string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is unrecoverable for token minting
		panic(fmt.Sprintf("result code entropy unavailable: %v", err))
	}
	for i, b := range buf {
		buf[i] = resultCodeAlphabet[int(b)%len(resultCodeAlphabet)]
	}
	return "RESULT_" + string(buf) + "_" + strconv.FormatInt(now.Unix(), 10)
}
