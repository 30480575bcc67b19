package authflow

import (
	"context"

	"github.com/nimbuspay/authflow/identifier"
)

// SetPasscode sets or replaces the quick-login passcode for the
// authenticated user. The passcode is a convenience factor, not a
// security-sensitive mutation: the session survives.
func (o *Orchestrator) SetPasscode(ctx context.Context, passcode string) error {
	if o == nil || o.gateway == nil {
		return ErrNotReady
	}
	if !isFourDigits(passcode) {
		return ErrInvalidPasscode
	}
	if !o.IsAuthenticated() {
		return ErrNoSession
	}

	if err := o.gateway.SetPasscode(ctx, passcode); err != nil {
		o.emitAudit(ctx, auditEventPasscodeSet, identifier.Identifier{}, "", "", false, err, nil)
		return err
	}

	o.emitAudit(ctx, auditEventPasscodeSet, identifier.Identifier{}, "", "", true, nil, nil)
	return nil
}

// ChangePassword replaces the password of the authenticated user. It is a
// security-sensitive mutation: on success the device's session is revoked
// and every biometric credential is disabled, forcing a fresh login with
// the new password.
func (o *Orchestrator) ChangePassword(ctx context.Context, newPassword, confirm string) error {
	if o == nil || o.gateway == nil {
		return ErrNotReady
	}
	if newPassword == "" {
		return ErrEmptyPassword
	}
	if newPassword != confirm {
		return ErrPasswordMismatch
	}

	current, ok := o.CurrentSession()
	if !ok {
		return ErrNoSession
	}

	id, parseErr := identifier.Parse(current.Identifier)
	if parseErr != nil {
		id = identifier.Identifier{}
	}

	if err := o.gateway.ResetPassword(ctx, current.Identifier, newPassword, confirm); err != nil {
		o.emitAudit(ctx, auditEventPasswordChange, id, "", "", false, err, nil)
		return err
	}

	o.revokeBiometrics(ctx, "password_change")
	o.revokeSession(ctx, "password_change")

	o.emitAudit(ctx, auditEventPasswordChange, id, "", "", true, nil, nil)
	return nil
}

// CreateTransactionPIN sets the transaction PIN outside a registration
// flow, for accounts that skipped the step. First-time setup is not a
// security-sensitive mutation.
func (o *Orchestrator) CreateTransactionPIN(ctx context.Context, pin string) error {
	if o == nil || o.gateway == nil {
		return ErrNotReady
	}
	if !isFourDigits(pin) {
		return ErrInvalidPIN
	}
	if !o.IsAuthenticated() {
		return ErrNoSession
	}

	if err := o.gateway.CreateTransactionPIN(ctx, pin); err != nil {
		o.emitAudit(ctx, auditEventPINCreate, identifier.Identifier{}, "", "", false, err, nil)
		return err
	}

	o.metricInc(MetricPINCreated)
	o.invalidateProfile()
	o.emitAudit(ctx, auditEventPINCreate, identifier.Identifier{}, "", "", true, nil, nil)
	return nil
}

// ResetTransactionPIN replaces an existing transaction PIN. Unlike
// first-time setup this is a security-sensitive mutation: the session is
// revoked and biometric credentials are disabled on success.
func (o *Orchestrator) ResetTransactionPIN(ctx context.Context, pin string) error {
	if o == nil || o.gateway == nil {
		return ErrNotReady
	}
	if !isFourDigits(pin) {
		return ErrInvalidPIN
	}
	if !o.IsAuthenticated() {
		return ErrNoSession
	}

	if err := o.gateway.CreateTransactionPIN(ctx, pin); err != nil {
		o.emitAudit(ctx, auditEventPINReset, identifier.Identifier{}, "", "", false, err, nil)
		return err
	}

	o.revokeBiometrics(ctx, "pin_reset")
	o.revokeSession(ctx, "pin_reset")

	o.emitAudit(ctx, auditEventPINReset, identifier.Identifier{}, "", "", true, nil, nil)
	return nil
}
