package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the engine.
var (
	// ErrSubmissionInFlight is returned when a second submission is started
	// for a session that already has one running.
	ErrSubmissionInFlight = errors.New("a submission is already in flight for this session")

	// ErrNotFound is returned by repositories when a row does not exist.
	ErrNotFound = errors.New("not found")
)

// RejectionCode identifies the validator rule that rejected a submission.
type RejectionCode string

const (
	RejectInvalidAmount       RejectionCode = "invalid_amount"
	RejectUnknownKind         RejectionCode = "unknown_kind"
	RejectNothingPayable      RejectionCode = "nothing_payable"
	RejectExceedsPayable      RejectionCode = "exceeds_payable"
	RejectInsufficientCash    RejectionCode = "insufficient_cash"
	RejectNothingCollectible  RejectionCode = "nothing_collectible"
	RejectExceedsCollectible  RejectionCode = "exceeds_collectible"
	RejectThirdPartyDisabled  RejectionCode = "third_party_disabled"
	RejectNoAvailableCredit   RejectionCode = "no_available_credit"
	RejectExceedsCredit       RejectionCode = "exceeds_available_credit"
	RejectExceedsTillCapacity RejectionCode = "exceeds_till_capacity"
)

// RejectionError is a local validation rejection. Nothing was submitted and
// no state moved. When the violated rule has a numeric threshold, Limit
// carries it so the caller can render an actionable message.
type RejectionError struct {
	Code   RejectionCode
	Reason string
	Limit  *int64
}

func (e *RejectionError) Error() string {
	if e.Limit != nil {
		return fmt.Sprintf("%s (limit: %d)", e.Reason, *e.Limit)
	}
	return e.Reason
}

// NewRejection builds a rejection without a numeric limit.
func NewRejection(code RejectionCode, reason string) *RejectionError {
	return &RejectionError{Code: code, Reason: reason}
}

// NewRejectionWithLimit builds a rejection carrying the violated threshold.
func NewRejectionWithLimit(code RejectionCode, reason string, limit int64) *RejectionError {
	return &RejectionError{Code: code, Reason: reason, Limit: &limit}
}

// IsRejection reports whether err is a validation rejection and returns it.
func IsRejection(err error) (*RejectionError, bool) {
	var re *RejectionError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// UpstreamError wraps a failed collaborator read. The attempt is aborted and
// reported; nothing was committed.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream read failed: %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// SubmissionError means the data layer did not accept the record. No ledger
// side effects follow it.
type SubmissionError struct {
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("submission failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("submission failed: %s", e.Message)
}

func (e *SubmissionError) Unwrap() error { return e.Err }
