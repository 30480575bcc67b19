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

// RegistrationState is the client-observable lifecycle of a new account.
type RegistrationState uint8

const (
	// RegistrationDrafted is the initial state; nothing has been sent.
	RegistrationDrafted RegistrationState = iota
	// RegistrationSubmitted is transient: the draft is on the wire.
	RegistrationSubmitted
	// RegistrationAwaitingCode waits for the contact one-time code.
	RegistrationAwaitingCode
	// RegistrationVerified holds a verified contact without a session; the
	// caller must route to explicit login before the PIN step.
	RegistrationVerified
	// RegistrationAwaitingPIN holds a verified contact with a live session;
	// only the transaction PIN is missing.
	RegistrationAwaitingPIN
	// RegistrationActive is terminal: verified contact and PIN set.
	RegistrationActive
)

// String returns the canonical state name.
func (s RegistrationState) String() string {
	switch s {
	case RegistrationDrafted:
		return "drafted"
	case RegistrationSubmitted:
		return "submitted"
	case RegistrationAwaitingCode:
		return "awaiting_code"
	case RegistrationVerified:
		return "verified"
	case RegistrationAwaitingPIN:
		return "awaiting_pin"
	case RegistrationActive:
		return "active"
	default:
		return "unknown"
	}
}

// RegistrationFlow drives one registration attempt from draft to active
// account. State is scoped to the instance; abandoning the flow and
// starting a new one cannot observe leftovers.
type RegistrationFlow struct {
	orch   *Orchestrator
	flowID string

	mu       sync.Mutex
	state    RegistrationState
	epoch    uint64
	inFlight bool
	identity Identity
	cooldown *countdown.Timer
	onTick   func(remaining int)
}

// NewRegistration creates a fresh registration flow in the drafted state.
func (o *Orchestrator) NewRegistration() *RegistrationFlow {
	return &RegistrationFlow{
		orch:     o,
		flowID:   uuid.NewString(),
		state:    RegistrationDrafted,
		cooldown: countdown.New(),
	}
}

// SetCooldownListener registers a per-second callback for the resend
// countdown, for rendering. Must be set before Submit.
func (f *RegistrationFlow) SetCooldownListener(fn func(remaining int)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onTick = fn
}

// State returns the current flow state.
func (f *RegistrationFlow) State() RegistrationState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Identity returns the contact identity the flow is verifying.
func (f *RegistrationFlow) Identity() Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identity
}

// CanResend reports whether a resend would be dispatched right now:
// awaiting a code and no active cooldown. The cooldown's absence is the
// boolean; there is no separate flag to fall out of sync.
func (f *RegistrationFlow) CanResend() bool {
	f.mu.Lock()
	state := f.state
	f.mu.Unlock()

	return state == RegistrationAwaitingCode && !f.cooldown.Active()
}

// CooldownRemaining returns the seconds until resend is allowed again.
func (f *RegistrationFlow) CooldownRemaining() int {
	return f.cooldown.Remaining()
}

// Submit validates the draft locally and sends it. On backend acceptance
// the flow moves to awaiting-code and the resend cooldown starts. On any
// failure the flow returns to drafted and is cleanly re-enterable.
func (f *RegistrationFlow) Submit(ctx context.Context, draft RegistrationDraft) error {
	if f.orch == nil || f.orch.gateway == nil {
		return ErrNotReady
	}

	id, err := validateDraft(draft)
	if err != nil {
		f.orch.metricInc(MetricRegistrationRejected)
		f.orch.emitAudit(ctx, auditEventRegistrationSubmit, id, f.flowID, "", false, err, nil)
		return err
	}

	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return ErrFlowBusy
	}
	if f.state != RegistrationDrafted {
		state := f.state
		f.mu.Unlock()
		return fmt.Errorf("%w: submit requires drafted, flow is %s", ErrFlowState, state)
	}
	f.inFlight = true
	f.state = RegistrationSubmitted
	epoch := f.epoch
	onTick := f.onTick
	f.mu.Unlock()

	err = f.orch.gateway.Register(ctx, registerRequest(draft))

	f.mu.Lock()
	if f.epoch != epoch {
		// Canceled while in flight; the flow was already reset.
		f.mu.Unlock()
		return err
	}
	f.inFlight = false
	if err != nil {
		f.state = RegistrationDrafted
		f.mu.Unlock()
		f.orch.metricInc(MetricRegistrationRejected)
		f.orch.emitAudit(ctx, auditEventRegistrationSubmit, id, f.flowID, "", false, err, nil)
		return err
	}
	f.state = RegistrationAwaitingCode
	f.identity = Identity{Identifier: id}
	f.mu.Unlock()

	// The draft is not retained; only the identifier survives into the
	// verification step.
	f.cooldown.Start(f.orch.config.Cooldown.VerificationResend, onTick)

	f.orch.metricInc(MetricRegistrationSubmitted)
	f.orch.emitAudit(ctx, auditEventRegistrationSubmit, id, f.flowID, "", true, nil, func() map[string]string {
		return map[string]string{"channel": id.Kind.String()}
	})
	return nil
}

// VerifyCode submits the one-time code. On success the identity is marked
// verified exactly once; when the backend returns a session token the
// session is auto-established and the flow skips straight to the PIN step.
// Failure leaves the state unchanged and surfaces the backend reason.
func (f *RegistrationFlow) VerifyCode(ctx context.Context, code string) (VerifyResult, error) {
	if f.orch == nil || f.orch.gateway == nil {
		return VerifyResult{}, ErrNotReady
	}
	if strings.TrimSpace(code) == "" {
		return VerifyResult{}, ErrInvalidCode
	}

	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return VerifyResult{}, ErrFlowBusy
	}
	if f.state != RegistrationAwaitingCode {
		state := f.state
		f.mu.Unlock()
		return VerifyResult{}, fmt.Errorf("%w: verify requires awaiting_code, flow is %s", ErrFlowState, state)
	}
	f.inFlight = true
	epoch := f.epoch
	id := f.identity.Identifier
	f.mu.Unlock()

	resp, err := f.orch.gateway.VerifyContact(ctx, id.Value, strings.TrimSpace(code))

	f.mu.Lock()
	if f.epoch != epoch {
		f.mu.Unlock()
		return VerifyResult{}, err
	}
	f.inFlight = false
	if err != nil {
		// State intentionally unchanged; the user may retry or resend.
		f.mu.Unlock()
		f.orch.metricInc(MetricVerificationFailure)
		f.orch.emitAudit(ctx, auditEventVerifyContact, id, f.flowID, "", false, err, nil)
		return VerifyResult{}, err
	}

	f.identity.Verified = true
	result := VerifyResult{}
	if resp.Token != "" {
		f.state = RegistrationAwaitingPIN
	} else {
		f.state = RegistrationVerified
	}
	f.mu.Unlock()

	f.cooldown.Clear()

	if resp.Token != "" {
		established, saveErr := f.orch.establishSession(ctx, id, resp.Token, resp.ExpiresAt, resp.UserID, true)
		result.SessionEstablished = true
		result.Session = established
		if saveErr != nil {
			f.orch.metricInc(MetricVerificationSuccess)
			f.orch.emitAudit(ctx, auditEventVerifyContact, id, f.flowID, "", true, saveErr, nil)
			return result, saveErr
		}
	}

	f.orch.metricInc(MetricVerificationSuccess)
	f.orch.emitAudit(ctx, auditEventVerifyContact, id, f.flowID, "", true, nil, func() map[string]string {
		return map[string]string{"session_established": fmt.Sprintf("%t", result.SessionEstablished)}
	})
	return result, nil
}

// ResendCode requests a fresh one-time code. With an active cooldown the
// call is a no-op: the UI should have disabled the control, but the flow
// re-validates because client timers can be stale or tampered with. A
// resend invalidates the previously issued code server-side.
func (f *RegistrationFlow) ResendCode(ctx context.Context) error {
	if f.orch == nil || f.orch.gateway == nil {
		return ErrNotReady
	}

	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return ErrFlowBusy
	}
	if f.state != RegistrationAwaitingCode {
		state := f.state
		f.mu.Unlock()
		return fmt.Errorf("%w: resend requires awaiting_code, flow is %s", ErrFlowState, state)
	}
	id := f.identity.Identifier
	onTick := f.onTick
	f.mu.Unlock()

	if f.cooldown.Active() {
		f.orch.metricInc(MetricResendSuppressed)
		f.orch.emitAudit(ctx, auditEventResendCode, id, f.flowID, "", true, nil, func() map[string]string {
			return map[string]string{"suppressed": "cooldown_active"}
		})
		return nil
	}

	f.mu.Lock()
	f.inFlight = true
	epoch := f.epoch
	f.mu.Unlock()

	err := f.orch.gateway.ResendContactCode(ctx, id.Value)

	f.mu.Lock()
	if f.epoch != epoch {
		f.mu.Unlock()
		return err
	}
	f.inFlight = false
	f.mu.Unlock()

	if err != nil {
		f.orch.emitAudit(ctx, auditEventResendCode, id, f.flowID, "", false, err, nil)
		return err
	}

	f.cooldown.Start(f.orch.config.Cooldown.VerificationResend, onTick)
	f.orch.metricInc(MetricResendIssued)
	f.orch.emitAudit(ctx, auditEventResendCode, id, f.flowID, "", true, nil, nil)
	return nil
}

// CreatePIN sets the transaction PIN, completing activation. It requires a
// verified contact and a live session (either auto-established by
// verification or obtained through explicit login).
func (f *RegistrationFlow) CreatePIN(ctx context.Context, pin string) error {
	if f.orch == nil || f.orch.gateway == nil {
		return ErrNotReady
	}
	if !isFourDigits(pin) {
		return ErrInvalidPIN
	}

	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return ErrFlowBusy
	}
	if f.state != RegistrationVerified && f.state != RegistrationAwaitingPIN {
		state := f.state
		f.mu.Unlock()
		return fmt.Errorf("%w: pin setup requires a verified contact, flow is %s", ErrFlowState, state)
	}
	id := f.identity.Identifier
	f.inFlight = true
	epoch := f.epoch
	f.mu.Unlock()

	if !f.orch.IsAuthenticated() {
		f.mu.Lock()
		f.inFlight = false
		f.mu.Unlock()
		return ErrNoSession
	}

	err := f.orch.gateway.CreateTransactionPIN(ctx, pin)

	f.mu.Lock()
	if f.epoch != epoch {
		f.mu.Unlock()
		return err
	}
	f.inFlight = false
	if err != nil {
		f.mu.Unlock()
		f.orch.emitAudit(ctx, auditEventPINCreate, id, f.flowID, "", false, err, nil)
		return err
	}
	f.state = RegistrationActive
	f.mu.Unlock()

	f.orch.metricInc(MetricPINCreated)
	f.orch.invalidateProfile()
	f.orch.emitAudit(ctx, auditEventPINCreate, id, f.flowID, "", true, nil, nil)
	return nil
}

// Cancel abandons the flow: the cooldown stops, the identity is wiped, and
// the state returns to drafted. A response from a call that was in flight
// when Cancel ran is discarded rather than applied.
func (f *RegistrationFlow) Cancel() {
	f.mu.Lock()
	f.epoch++
	f.inFlight = false
	f.state = RegistrationDrafted
	f.identity = Identity{}
	f.mu.Unlock()

	f.cooldown.Clear()
}

func validateDraft(draft RegistrationDraft) (identifier.Identifier, error) {
	hasEmail := strings.TrimSpace(draft.Email) != ""
	hasPhone := strings.TrimSpace(draft.Phone) != ""
	if hasEmail == hasPhone {
		// Both or neither: the draft must carry exactly one channel.
		return identifier.Identifier{}, ErrInvalidDraft
	}

	if strings.TrimSpace(draft.Username) == "" ||
		strings.TrimSpace(draft.FullName) == "" ||
		strings.TrimSpace(draft.DateOfBirth) == "" ||
		strings.TrimSpace(draft.Currency) == "" {
		return identifier.Identifier{}, ErrInvalidDraft
	}
	if draft.Password == "" {
		return identifier.Identifier{}, ErrEmptyPassword
	}
	if draft.AccountType == AccountBusiness && strings.TrimSpace(draft.CompanyRegistrationNumber) == "" {
		return identifier.Identifier{}, ErrInvalidDraft
	}

	raw := draft.Email
	if hasPhone {
		raw = draft.Phone
	}
	id, err := identifier.Parse(raw)
	if err != nil {
		return identifier.Identifier{}, ErrInvalidIdentifier
	}
	if hasEmail && id.Kind != identifier.KindEmail {
		return identifier.Identifier{}, ErrInvalidIdentifier
	}
	if hasPhone && id.Kind != identifier.KindPhone {
		return identifier.Identifier{}, ErrInvalidIdentifier
	}
	return id, nil
}

func registerRequest(draft RegistrationDraft) RegisterRequest {
	return RegisterRequest{
		Username:                  strings.TrimSpace(draft.Username),
		FullName:                  strings.TrimSpace(draft.FullName),
		Email:                     strings.TrimSpace(draft.Email),
		PhoneNumber:               strings.TrimSpace(draft.Phone),
		Password:                  draft.Password,
		DateOfBirth:               strings.TrimSpace(draft.DateOfBirth),
		Currency:                  strings.TrimSpace(draft.Currency),
		AccountType:               draft.AccountType,
		CompanyRegistrationNumber: strings.TrimSpace(draft.CompanyRegistrationNumber),
	}
}
