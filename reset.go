package authflow

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nimbuspay/authflow/identifier"
	"github.com/nimbuspay/authflow/internal/countdown"
)

// ResetState is the lifecycle of one password reset attempt.
type ResetState uint8

const (
	// ResetStarted is the initial state; no code has been requested.
	ResetStarted ResetState = iota
	// ResetAwaitingCode waits for the emailed reset code.
	ResetAwaitingCode
	// ResetCodeVerified holds a backend-confirmed code; the new password
	// may now be set.
	ResetCodeVerified
	// ResetCompleted is terminal: the password was changed.
	ResetCompleted
)

// String returns the canonical state name.
func (s ResetState) String() string {
	switch s {
	case ResetStarted:
		return "started"
	case ResetAwaitingCode:
		return "awaiting_code"
	case ResetCodeVerified:
		return "code_verified"
	case ResetCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// PasswordResetFlow drives one forgot-password recovery. Completing the
// flow is a security-sensitive mutation: any live session on this device
// is revoked and every enrolled biometric credential is disabled, so the
// user must log in again with the new password.
type PasswordResetFlow struct {
	orch   *Orchestrator
	flowID string

	mu       sync.Mutex
	state    ResetState
	epoch    uint64
	inFlight bool
	email    identifier.Identifier
	cooldown *countdown.Timer
	onTick   func(remaining int)
}

// NewPasswordReset creates a fresh reset flow.
func (o *Orchestrator) NewPasswordReset() *PasswordResetFlow {
	return &PasswordResetFlow{
		orch:     o,
		flowID:   uuid.NewString(),
		state:    ResetStarted,
		cooldown: countdown.New(),
	}
}

// SetCooldownListener registers a per-second callback for the resend
// countdown. Must be set before Request.
func (f *PasswordResetFlow) SetCooldownListener(fn func(remaining int)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onTick = fn
}

// State returns the current flow state.
func (f *PasswordResetFlow) State() ResetState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// CanResend reports whether calling Request again would dispatch a new
// code rather than being suppressed by the cooldown.
func (f *PasswordResetFlow) CanResend() bool {
	f.mu.Lock()
	state := f.state
	f.mu.Unlock()

	return state == ResetAwaitingCode && !f.cooldown.Active()
}

// CooldownRemaining returns the seconds until another code request is
// allowed.
func (f *PasswordResetFlow) CooldownRemaining() int {
	return f.cooldown.Remaining()
}

// Request asks the backend to email a reset code. The first call moves
// the flow to awaiting-code; subsequent calls are the resend path and are
// suppressed to a no-op while the cooldown runs. Reset codes go to email
// only, so the address must parse as one.
func (f *PasswordResetFlow) Request(ctx context.Context, email string) error {
	if f.orch == nil || f.orch.gateway == nil {
		return ErrNotReady
	}

	id, err := identifier.Parse(email)
	if err != nil || id.Kind != identifier.KindEmail {
		return ErrInvalidIdentifier
	}

	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return ErrFlowBusy
	}
	switch f.state {
	case ResetStarted:
	case ResetAwaitingCode:
		if !f.email.IsZero() && f.email.Value != id.Value {
			f.mu.Unlock()
			return fmt.Errorf("%w: reset already in progress for another address", ErrFlowState)
		}
	default:
		state := f.state
		f.mu.Unlock()
		return fmt.Errorf("%w: request requires started or awaiting_code, flow is %s", ErrFlowState, state)
	}
	resend := f.state == ResetAwaitingCode
	onTick := f.onTick
	f.mu.Unlock()

	if resend && f.cooldown.Active() {
		f.orch.metricInc(MetricResendSuppressed)
		f.orch.emitAudit(ctx, auditEventResetRequest, id, f.flowID, "", true, nil, func() map[string]string {
			return map[string]string{"suppressed": "cooldown_active"}
		})
		return nil
	}

	f.mu.Lock()
	f.inFlight = true
	epoch := f.epoch
	f.mu.Unlock()

	err = f.orch.gateway.ForgotPassword(ctx, id.Value)

	f.mu.Lock()
	if f.epoch != epoch {
		f.mu.Unlock()
		return err
	}
	f.inFlight = false
	if err != nil {
		f.mu.Unlock()
		f.orch.emitAudit(ctx, auditEventResetRequest, id, f.flowID, "", false, err, nil)
		return err
	}
	f.state = ResetAwaitingCode
	f.email = id
	f.mu.Unlock()

	f.cooldown.Start(f.orch.config.Cooldown.ResetResend, onTick)

	f.orch.metricInc(MetricResetRequested)
	f.orch.emitAudit(ctx, auditEventResetRequest, id, f.flowID, "", true, nil, func() map[string]string {
		if resend {
			return map[string]string{"resend": "true"}
		}
		return nil
	})
	return nil
}

// VerifyCode confirms the emailed code with the backend. A failure leaves
// the flow awaiting a code so the user can retry or request another.
func (f *PasswordResetFlow) VerifyCode(ctx context.Context, code string) error {
	if f.orch == nil || f.orch.gateway == nil {
		return ErrNotReady
	}
	if strings.TrimSpace(code) == "" {
		return ErrInvalidCode
	}

	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return ErrFlowBusy
	}
	if f.state != ResetAwaitingCode {
		state := f.state
		f.mu.Unlock()
		return fmt.Errorf("%w: verify requires awaiting_code, flow is %s", ErrFlowState, state)
	}
	f.inFlight = true
	epoch := f.epoch
	id := f.email
	f.mu.Unlock()

	err := f.orch.gateway.VerifyResetCode(ctx, id.Value, strings.TrimSpace(code))

	f.mu.Lock()
	if f.epoch != epoch {
		f.mu.Unlock()
		return err
	}
	f.inFlight = false
	if err != nil {
		f.mu.Unlock()
		f.orch.emitAudit(ctx, auditEventResetVerify, id, f.flowID, "", false, err, nil)
		return err
	}
	f.state = ResetCodeVerified
	f.mu.Unlock()

	f.cooldown.Clear()
	f.orch.emitAudit(ctx, auditEventResetVerify, id, f.flowID, "", true, nil, nil)
	return nil
}

// SetNewPassword completes the reset. The two password fields must match
// and be non-empty; the comparison happens locally so a typo never reaches
// the wire. On success the device's session and biometric credentials are
// revoked before the flow reports completion.
func (f *PasswordResetFlow) SetNewPassword(ctx context.Context, password, confirm string) error {
	if f.orch == nil || f.orch.gateway == nil {
		return ErrNotReady
	}
	if password == "" {
		return ErrEmptyPassword
	}
	if password != confirm {
		return ErrPasswordMismatch
	}

	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return ErrFlowBusy
	}
	if f.state != ResetCodeVerified {
		state := f.state
		f.mu.Unlock()
		return fmt.Errorf("%w: new password requires a verified code, flow is %s", ErrFlowState, state)
	}
	f.inFlight = true
	epoch := f.epoch
	id := f.email
	f.mu.Unlock()

	err := f.orch.gateway.ResetPassword(ctx, id.Value, password, confirm)

	f.mu.Lock()
	if f.epoch != epoch {
		f.mu.Unlock()
		return err
	}
	f.inFlight = false
	if err != nil {
		f.mu.Unlock()
		f.orch.emitAudit(ctx, auditEventResetComplete, id, f.flowID, "", false, err, nil)
		return err
	}
	f.state = ResetCompleted
	f.mu.Unlock()

	f.orch.revokeBiometrics(ctx, "password_reset")
	f.orch.revokeSession(ctx, "password_reset")

	f.orch.metricInc(MetricResetCompleted)
	f.orch.emitAudit(ctx, auditEventResetComplete, id, f.flowID, "", true, nil, nil)
	return nil
}

// Cancel abandons the flow and discards any in-flight response.
func (f *PasswordResetFlow) Cancel() {
	f.mu.Lock()
	f.epoch++
	f.inFlight = false
	f.state = ResetStarted
	f.email = identifier.Identifier{}
	f.mu.Unlock()

	f.cooldown.Clear()
}
