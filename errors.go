package authflow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation is the root of every locally detected input error. It is
	// resolved before any network call is made.
	ErrValidation = errors.New("validation failed")
	// ErrRateLimited is returned while an identifier is locked out.
	ErrRateLimited = errors.New("rate limited")
	// ErrStaleCode is returned when a one-time code was superseded by a more
	// recently requested one; only the latest issued code is valid.
	ErrStaleCode = errors.New("one-time code superseded")
	// ErrFlowState is returned when an operation is invoked from a state that
	// does not permit it.
	ErrFlowState = errors.New("operation not valid in current flow state")
	// ErrFlowBusy is returned when a flow call overlaps a still in-flight
	// call on the same instance.
	ErrFlowBusy = errors.New("flow call already in flight")
	// ErrNoSession is returned by session-scoped operations when the device
	// holds no live session.
	ErrNoSession = errors.New("no active session")
	// ErrSessionExpired is returned when the stored session token has passed
	// its expiry.
	ErrSessionExpired = errors.New("session expired")
	// ErrBiometricReplay is returned when an assertion carries a counter not
	// strictly greater than the last one seen for the credential.
	ErrBiometricReplay = errors.New("biometric assertion counter replayed")
	// ErrBiometricState is returned when a biometric flow step is invoked
	// out of order.
	ErrBiometricState = errors.New("biometric flow step out of order")
	// ErrNotReady is returned when the orchestrator was not built completely.
	ErrNotReady = errors.New("orchestrator not initialized")
)

// Validation sentinels. Each unwraps to [ErrValidation].
var (
	// ErrInvalidIdentifier rejects a value that is neither email nor phone.
	ErrInvalidIdentifier = fmt.Errorf("%w: invalid identifier", ErrValidation)
	// ErrInvalidDraft rejects a registration draft that fails preconditions,
	// most importantly the email-XOR-phone rule.
	ErrInvalidDraft = fmt.Errorf("%w: invalid registration draft", ErrValidation)
	// ErrInvalidPasscode rejects anything but a 4-digit passcode.
	ErrInvalidPasscode = fmt.Errorf("%w: passcode must be 4 digits", ErrValidation)
	// ErrInvalidPIN rejects anything but a 4-digit transaction PIN.
	ErrInvalidPIN = fmt.Errorf("%w: transaction PIN must be 4 digits", ErrValidation)
	// ErrInvalidCode rejects an empty one-time code.
	ErrInvalidCode = fmt.Errorf("%w: invalid one-time code", ErrValidation)
	// ErrPasswordMismatch rejects a password/confirmation pair that differs.
	ErrPasswordMismatch = fmt.Errorf("%w: password confirmation does not match", ErrValidation)
	// ErrEmptyPassword rejects an empty password before it reaches the wire.
	ErrEmptyPassword = fmt.Errorf("%w: password must not be empty", ErrValidation)
)

// RateLimitError reports a local lockout with the caller-facing numbers:
// how many attempts remain (zero while locked) and how many minutes until
// the lock releases, rounded up.
type RateLimitError struct {
	RemainingAttempts int
	LockoutMinutes    int
}

func (e *RateLimitError) Error() string {
	if e.LockoutMinutes > 0 {
		return fmt.Sprintf("rate limited: locked for %d more minute(s)", e.LockoutMinutes)
	}
	return "rate limited"
}

// Is makes errors.Is(err, ErrRateLimited) hold for *RateLimitError.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// BackendRejection is any non-success backend response. Messages carries
// the backend's human-readable reason(s) verbatim; the orchestrator never
// rewrites or swallows them.
type BackendRejection struct {
	Status   int
	Messages []string
	// Stale marks a rejection caused by a superseded one-time code.
	Stale bool
}

func (e *BackendRejection) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("backend rejected request (status %d)", e.Status)
	}
	return "backend rejected request: " + strings.Join(e.Messages, "; ")
}

// Is makes errors.Is(err, ErrStaleCode) hold for stale-code rejections.
func (e *BackendRejection) Is(target error) bool {
	return e.Stale && target == ErrStaleCode
}

// NetworkError wraps a request that could not complete. Always recoverable
// by a user-initiated retry; never retried automatically.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
