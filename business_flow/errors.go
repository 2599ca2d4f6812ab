// Package businessflow contains the core business logic and use cases for outage campaign workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Outage-related errors
	ErrOutageNotFound    = errors.New("outage not found")
	ErrOutageIDRequired  = errors.New("outage id is required")
	ErrSnapshotNil       = errors.New("snapshot must not be nil; skip the cycle on fetch failure")
	ErrReconcileInFlight = errors.New("a reconciliation pass is already in flight")

	// Campaign-related errors
	ErrCampaignNotFound       = errors.New("campaign not found")
	ErrPlatformInvalid        = errors.New("platform is invalid")
	ErrCampaignNotCreated     = errors.New("platform client did not create the campaign")
	ErrCampaignNotPaused      = errors.New("platform client did not pause the campaign")
	ErrBudgetCeilingExceeded  = errors.New("budget ceiling exceeded for platform")
	ErrReservationNotAdmitted = errors.New("budget reservation was not admitted")

	// Persistence-related errors
	ErrStateNotPersisted = errors.New("state could not be persisted")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsOutageNotFound(err error) bool {
	return errors.Is(err, ErrOutageNotFound)
}

func IsSnapshotNil(err error) bool {
	return errors.Is(err, ErrSnapshotNil)
}

func IsReconcileInFlight(err error) bool {
	return errors.Is(err, ErrReconcileInFlight)
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsPlatformInvalid(err error) bool {
	return errors.Is(err, ErrPlatformInvalid)
}

func IsCampaignNotCreated(err error) bool {
	return errors.Is(err, ErrCampaignNotCreated)
}

func IsCampaignNotPaused(err error) bool {
	return errors.Is(err, ErrCampaignNotPaused)
}

func IsBudgetCeilingExceeded(err error) bool {
	return errors.Is(err, ErrBudgetCeilingExceeded)
}

func IsStateNotPersisted(err error) bool {
	return errors.Is(err, ErrStateNotPersisted)
}
