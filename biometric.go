package authflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nimbuspay/authflow/identifier"
)

// BiometricState is the lifecycle of one biometric login attempt.
type BiometricState uint8

const (
	// BiometricIdle is the initial state.
	BiometricIdle BiometricState = iota
	// BiometricChallengeRequested is transient: the challenge request is on
	// the wire.
	BiometricChallengeRequested
	// BiometricChallengeReceived holds a server challenge awaiting the
	// authenticator's assertion.
	BiometricChallengeReceived
	// BiometricAsserted holds a signed assertion ready to submit.
	BiometricAsserted
	// BiometricLoggedIn is terminal: the assertion was accepted and a
	// session established.
	BiometricLoggedIn
	// BiometricFailed is terminal for the attempt; start a new flow.
	BiometricFailed
)

// String returns the canonical state name.
func (s BiometricState) String() string {
	switch s {
	case BiometricIdle:
		return "idle"
	case BiometricChallengeRequested:
		return "challenge_requested"
	case BiometricChallengeReceived:
		return "challenge_received"
	case BiometricAsserted:
		return "asserted"
	case BiometricLoggedIn:
		return "logged_in"
	case BiometricFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// BiometricFlow drives one challenge/assert/login round trip against a
// previously enrolled credential. The orchestrator tracks the highest
// signature counter it has seen per credential and rejects non-increasing
// counters locally before they reach the backend; the backend's own
// counter check remains the authority.
type BiometricFlow struct {
	orch   *Orchestrator
	flowID string

	mu           sync.Mutex
	state        BiometricState
	epoch        uint64
	credentialID string
	challenge    string
	assertion    BiometricAssertion
}

// NewBiometricLogin creates a flow for the given enrolled credential.
func (o *Orchestrator) NewBiometricLogin(credentialID string) *BiometricFlow {
	return &BiometricFlow{
		orch:         o,
		flowID:       uuid.NewString(),
		state:        BiometricIdle,
		credentialID: strings.TrimSpace(credentialID),
	}
}

// State returns the current flow state.
func (f *BiometricFlow) State() BiometricState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Challenge returns the server challenge once one has been received.
func (f *BiometricFlow) Challenge() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.challenge
}

// RequestChallenge fetches a fresh server challenge for the credential.
func (f *BiometricFlow) RequestChallenge(ctx context.Context) (string, error) {
	if f.orch == nil || f.orch.gateway == nil {
		return "", ErrNotReady
	}
	if !f.orch.config.Biometric.Enabled {
		return "", fmt.Errorf("%w: biometric login is disabled", ErrBiometricState)
	}
	if f.credentialID == "" {
		return "", fmt.Errorf("%w: credential id is empty", ErrBiometricState)
	}

	f.mu.Lock()
	if f.state != BiometricIdle && f.state != BiometricFailed {
		state := f.state
		f.mu.Unlock()
		return "", fmt.Errorf("%w: challenge requires idle, flow is %s", ErrFlowState, state)
	}
	f.state = BiometricChallengeRequested
	epoch := f.epoch
	f.mu.Unlock()

	challenge, err := f.orch.gateway.BiometricChallenge(ctx, f.credentialID)

	f.mu.Lock()
	if f.epoch != epoch {
		f.mu.Unlock()
		return "", err
	}
	if err != nil {
		f.state = BiometricFailed
		f.mu.Unlock()
		f.orch.emitAudit(ctx, auditEventLoginBiometric, identifier.Identifier{}, f.flowID, "", false, err, nil)
		return "", err
	}
	f.state = BiometricChallengeReceived
	f.challenge = challenge
	f.mu.Unlock()

	return challenge, nil
}

// Assert runs the platform authenticator over the held challenge. The
// resulting assertion's counter is checked against the highest value this
// device has recorded for the credential; an assertion that does not
// advance it is rejected as a replay without touching the network.
func (f *BiometricFlow) Assert(ctx context.Context, asserter Asserter) error {
	if asserter == nil {
		return fmt.Errorf("%w: asserter is nil", ErrBiometricState)
	}

	f.mu.Lock()
	if f.state != BiometricChallengeReceived {
		state := f.state
		f.mu.Unlock()
		return fmt.Errorf("%w: assert requires a received challenge, flow is %s", ErrFlowState, state)
	}
	challenge := f.challenge
	epoch := f.epoch
	f.mu.Unlock()

	assertion, err := asserter.Assert(ctx, challenge)

	f.mu.Lock()
	if f.epoch != epoch {
		f.mu.Unlock()
		return err
	}
	if err != nil {
		f.state = BiometricFailed
		f.mu.Unlock()
		f.orch.emitAudit(ctx, auditEventLoginBiometric, identifier.Identifier{}, f.flowID, "", false, err, nil)
		return err
	}
	if assertion.CredentialID == "" {
		assertion.CredentialID = f.credentialID
	}
	f.mu.Unlock()

	if last, known := f.orch.lastCounter(assertion.CredentialID); known && assertion.Counter <= last {
		f.mu.Lock()
		f.state = BiometricFailed
		f.mu.Unlock()
		f.orch.metricInc(MetricBiometricReplayRejected)
		err := fmt.Errorf("%w: counter %d does not advance past %d", ErrBiometricReplay, assertion.Counter, last)
		f.orch.emitAudit(ctx, auditEventLoginBiometric, identifier.Identifier{}, f.flowID, "", false, err, func() map[string]string {
			return map[string]string{"credential_id": assertion.CredentialID}
		})
		return err
	}

	f.mu.Lock()
	f.assertion = assertion
	f.state = BiometricAsserted
	f.mu.Unlock()
	return nil
}

// Login submits the held assertion. On acceptance the session is
// established and the credential's counter watermark advances; the backend
// decides whether a biometric session still needs a second factor.
func (f *BiometricFlow) Login(ctx context.Context, device DeviceMetadata) (LoginResult, error) {
	if f.orch == nil || f.orch.gateway == nil {
		return LoginResult{}, ErrNotReady
	}

	f.mu.Lock()
	if f.state != BiometricAsserted {
		state := f.state
		f.mu.Unlock()
		return LoginResult{}, fmt.Errorf("%w: login requires a signed assertion, flow is %s", ErrFlowState, state)
	}
	assertion := f.assertion
	epoch := f.epoch
	f.mu.Unlock()

	device = f.orch.fillDevice(device)
	resp, err := f.orch.gateway.BiometricLogin(ctx, assertion, device)

	f.mu.Lock()
	if f.epoch != epoch {
		f.mu.Unlock()
		return LoginResult{}, err
	}
	if err != nil {
		f.state = BiometricFailed
		f.mu.Unlock()
		f.orch.metricInc(MetricBiometricLoginFailure)
		f.orch.emitAudit(ctx, auditEventLoginBiometric, identifier.Identifier{}, f.flowID, device.IPAddress, false, err, nil)
		return LoginResult{}, err
	}
	f.state = BiometricLoggedIn
	f.mu.Unlock()

	f.orch.noteCredential(assertion.CredentialID, assertion.Counter)

	established, saveErr := f.orch.establishSession(
		ctx, identifier.Identifier{}, resp.Token, resp.ExpiresAt, resp.UserID, !resp.TwoFactorRequired,
	)
	result := LoginResult{TwoFactorRequired: resp.TwoFactorRequired, Session: established}
	if saveErr != nil {
		return result, saveErr
	}

	f.orch.metricInc(MetricBiometricLoginSuccess)
	f.orch.emitAudit(ctx, auditEventLoginBiometric, identifier.Identifier{}, f.flowID, device.IPAddress, true, nil, func() map[string]string {
		return map[string]string{
			"credential_id":       assertion.CredentialID,
			"two_factor_required": fmt.Sprintf("%t", resp.TwoFactorRequired),
		}
	})
	return result, nil
}

// Cancel abandons the attempt and discards any in-flight response.
func (f *BiometricFlow) Cancel() {
	f.mu.Lock()
	f.epoch++
	f.state = BiometricIdle
	f.challenge = ""
	f.assertion = BiometricAssertion{}
	f.mu.Unlock()
}

// EnrollBiometric registers a credential for the authenticated user and
// starts counter tracking at the credential's initial value.
func (o *Orchestrator) EnrollBiometric(ctx context.Context, credential BiometricCredential) error {
	if o == nil || o.gateway == nil {
		return ErrNotReady
	}
	if !o.config.Biometric.Enabled {
		return fmt.Errorf("%w: biometric enrollment is disabled", ErrBiometricState)
	}
	if strings.TrimSpace(credential.CredentialID) == "" || len(credential.PublicKey) == 0 {
		return fmt.Errorf("%w: credential id and public key are required", ErrBiometricState)
	}
	if max := o.config.Biometric.MaxCredentials; max > 0 && len(o.EnrolledCredentials()) >= max {
		return fmt.Errorf("%w: credential limit reached", ErrBiometricState)
	}

	current, ok := o.CurrentSession()
	if !ok {
		return ErrNoSession
	}
	if credential.DeviceID == "" {
		credential.DeviceID = o.deviceID
	}

	if err := o.gateway.BiometricEnroll(ctx, current.UserID, credential); err != nil {
		o.emitAudit(ctx, auditEventBiometricEnroll, identifier.Identifier{}, "", "", false, err, nil)
		return err
	}

	o.noteCredential(credential.CredentialID, credential.Counter)
	o.metricInc(MetricBiometricEnrolled)
	o.emitAudit(ctx, auditEventBiometricEnroll, identifier.Identifier{}, "", "", true, nil, func() map[string]string {
		return map[string]string{"credential_id": credential.CredentialID}
	})
	return nil
}

// DisableBiometric revokes one credential on the backend and stops
// tracking its counter locally.
func (o *Orchestrator) DisableBiometric(ctx context.Context, credentialID string) error {
	if o == nil || o.gateway == nil {
		return ErrNotReady
	}
	credentialID = strings.TrimSpace(credentialID)
	if credentialID == "" {
		return fmt.Errorf("%w: credential id is empty", ErrBiometricState)
	}

	if err := o.gateway.BiometricDisable(ctx, credentialID); err != nil {
		o.emitAudit(ctx, auditEventBiometricDisable, identifier.Identifier{}, "", "", false, err, nil)
		return err
	}

	o.forgetCredential(credentialID)
	o.metricInc(MetricBiometricDisabled)
	o.emitAudit(ctx, auditEventBiometricDisable, identifier.Identifier{}, "", "", true, nil, func() map[string]string {
		return map[string]string{"credential_id": credentialID}
	})
	return nil
}

// revokeBiometrics disables every tracked credential after a
// security-sensitive mutation. Individual failures do not stop the sweep;
// they are joined and reported once.
func (o *Orchestrator) revokeBiometrics(ctx context.Context, reason string) {
	var errs []error
	for _, credentialID := range o.EnrolledCredentials() {
		if err := o.gateway.BiometricDisable(ctx, credentialID); err != nil {
			errs = append(errs, fmt.Errorf("disable %s: %w", credentialID, err))
		}
		// Local tracking stops either way; the backend sweep is best effort
		// and the credential must not survive on this device.
		o.forgetCredential(credentialID)
		o.metricInc(MetricBiometricDisabled)
	}

	err := errors.Join(errs...)
	o.emitAudit(ctx, auditEventBiometricDisable, identifier.Identifier{}, "", "", err == nil, err, func() map[string]string {
		return map[string]string{"reason": reason}
	})
}
