package authflow

import (
	"context"
	"errors"
	"strconv"

	"github.com/nimbuspay/authflow/identifier"
)

// LoginWithPassword authenticates with identifier + password. On backend
// rejection the local rate limiter records the attempt; once the budget is
// exhausted further calls fail locally with *RateLimitError before any
// network traffic.
func (o *Orchestrator) LoginWithPassword(
	ctx context.Context,
	rawIdentifier, password string,
	device DeviceMetadata,
) (LoginResult, error) {
	if o == nil || o.gateway == nil {
		return LoginResult{}, ErrNotReady
	}

	id, err := identifier.Parse(rawIdentifier)
	if err != nil {
		return LoginResult{}, ErrInvalidIdentifier
	}
	if password == "" {
		return LoginResult{}, ErrEmptyPassword
	}

	return o.login(ctx, auditEventLoginPassword, id, device, func(ctx context.Context, device DeviceMetadata) (LoginResponse, error) {
		return o.gateway.LoginPassword(ctx, id.Value, password, device)
	})
}

// LoginWithPasscode authenticates with identifier + 4-digit passcode. It
// converges on the same session-issuance step as password login and shares
// its attempt budget.
func (o *Orchestrator) LoginWithPasscode(
	ctx context.Context,
	rawIdentifier, passcode string,
	device DeviceMetadata,
) (LoginResult, error) {
	if o == nil || o.gateway == nil {
		return LoginResult{}, ErrNotReady
	}

	id, err := identifier.Parse(rawIdentifier)
	if err != nil {
		return LoginResult{}, ErrInvalidIdentifier
	}
	if !isFourDigits(passcode) {
		return LoginResult{}, ErrInvalidPasscode
	}

	return o.login(ctx, auditEventLoginPasscode, id, device, func(ctx context.Context, device DeviceMetadata) (LoginResponse, error) {
		return o.gateway.LoginPasscode(ctx, id.Value, passcode, device)
	})
}

// login is the convergence point for the factor-specific entry points.
func (o *Orchestrator) login(
	ctx context.Context,
	event string,
	id identifier.Identifier,
	device DeviceMetadata,
	call func(ctx context.Context, device DeviceMetadata) (LoginResponse, error),
) (LoginResult, error) {
	status := o.limiter.Check(id.Value)
	if !status.Allowed {
		o.metricInc(MetricLoginRateLimited)
		limitErr := &RateLimitError{LockoutMinutes: status.LockoutMinutes}
		o.emitAudit(ctx, auditEventRateLimited, id, "", device.IPAddress, false, limitErr, func() map[string]string {
			return map[string]string{"entry_point": event}
		})
		return LoginResult{}, limitErr
	}

	resp, err := call(ctx, o.fillDevice(device))
	if err != nil {
		var rejection *BackendRejection
		if errors.As(err, &rejection) {
			// Only rejected credentials consume budget; transport failures
			// do not.
			o.limiter.RecordFailure(id.Value)
		}
		o.metricInc(MetricLoginFailure)
		o.emitAudit(ctx, event, id, "", device.IPAddress, false, err, func() map[string]string {
			return map[string]string{
				"remaining_attempts": strconv.Itoa(o.limiter.Check(id.Value).RemainingAttempts),
			}
		})
		return LoginResult{}, err
	}

	o.limiter.Clear(id.Value)

	established, saveErr := o.establishSession(ctx, id, resp.Token, resp.ExpiresAt, resp.UserID, !resp.TwoFactorRequired)
	if saveErr != nil {
		// The session is live in memory; persistence failed. Surface it
		// without undoing the login.
		o.emitAudit(ctx, event, id, "", device.IPAddress, true, saveErr, nil)
		return LoginResult{TwoFactorRequired: resp.TwoFactorRequired, Session: established}, saveErr
	}

	if resp.TwoFactorRequired {
		o.metricInc(MetricTwoFactorRequired)
	} else {
		o.metricInc(MetricLoginSuccess)
	}
	o.emitAudit(ctx, event, id, "", device.IPAddress, true, nil, func() map[string]string {
		return map[string]string{"two_factor_required": strconv.FormatBool(resp.TwoFactorRequired)}
	})

	return LoginResult{TwoFactorRequired: resp.TwoFactorRequired, Session: established}, nil
}

// ConfirmTwoFactor completes the second factor the backend demanded at
// login. On success the session is marked elevated and the cached profile
// is invalidated so the next read refetches with elevated trust.
func (o *Orchestrator) ConfirmTwoFactor(ctx context.Context, code string) (LoginResult, error) {
	if o == nil || o.gateway == nil {
		return LoginResult{}, ErrNotReady
	}
	if code == "" {
		return LoginResult{}, ErrInvalidCode
	}

	current, ok := o.CurrentSession()
	if !ok {
		return LoginResult{}, ErrNoSession
	}

	resp, err := o.gateway.VerifyTwoFactor(ctx, current.Identifier, code)
	if err != nil {
		o.metricInc(MetricTwoFactorFailure)
		o.emitAudit(ctx, auditEventTwoFactor, identifier.Identifier{}, "", "", false, err, nil)
		return LoginResult{}, err
	}

	id := identifier.Identifier{Kind: kindFromChannel(current.Channel), Value: current.Identifier}
	token := resp.Token
	if token == "" {
		// Some deployments elevate the existing token in place.
		token = current.Token
	}
	expiresAt := resp.ExpiresAt
	if resp.Token == "" {
		expiresAt = current.ExpiresAt
	}
	userID := resp.UserID
	if userID == "" {
		userID = current.UserID
	}

	established, saveErr := o.establishSession(ctx, id, token, expiresAt, userID, true)
	o.invalidateProfile()
	if saveErr != nil {
		return LoginResult{Session: established}, saveErr
	}

	o.metricInc(MetricTwoFactorSuccess)
	o.emitAudit(ctx, auditEventTwoFactor, id, "", "", true, nil, nil)
	return LoginResult{Session: established}, nil
}

func isFourDigits(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func kindFromChannel(channel string) identifier.Kind {
	switch channel {
	case "email":
		return identifier.KindEmail
	case "phone":
		return identifier.KindPhone
	default:
		return identifier.KindUnknown
	}
}
