package internaldefs

import (
	"github.com/nimbuspay/authflow"
)

// CounterDef pairs a counter id with its export name and help text.
//
// CounterDef instances are configured at package init and treated as
// immutable afterwards.
type CounterDef struct {
	ID   authflow.MetricID
	Name string
	Help string
}

var counterHelp = map[authflow.MetricID]string{
	authflow.MetricRegistrationSubmitted:   "Registration drafts accepted by the backend.",
	authflow.MetricRegistrationRejected:    "Registration drafts rejected locally or by the backend.",
	authflow.MetricVerificationSuccess:     "Contact one-time codes accepted.",
	authflow.MetricVerificationFailure:     "Contact one-time codes rejected.",
	authflow.MetricResendIssued:            "One-time code resends dispatched to the backend.",
	authflow.MetricResendSuppressed:        "One-time code resends suppressed by an active cooldown.",
	authflow.MetricLoginSuccess:            "Session-issuing logins, any factor.",
	authflow.MetricLoginFailure:            "Rejected logins, any factor.",
	authflow.MetricLoginRateLimited:        "Logins refused by the local lockout.",
	authflow.MetricTwoFactorRequired:       "Logins flagged for a second factor.",
	authflow.MetricTwoFactorSuccess:        "Second-factor confirmations accepted.",
	authflow.MetricTwoFactorFailure:        "Second-factor confirmations rejected.",
	authflow.MetricResetRequested:          "Password reset codes requested.",
	authflow.MetricResetCompleted:          "Password resets completed.",
	authflow.MetricBiometricLoginSuccess:   "Biometric logins accepted.",
	authflow.MetricBiometricLoginFailure:   "Biometric logins rejected.",
	authflow.MetricBiometricReplayRejected: "Biometric assertions rejected for a non-increasing counter.",
	authflow.MetricBiometricEnrolled:       "Biometric credentials enrolled.",
	authflow.MetricBiometricDisabled:       "Biometric credentials revoked, manual or automatic.",
	authflow.MetricPINCreated:              "Transaction PINs created.",
	authflow.MetricSessionEstablished:      "Sessions stored on this device.",
	authflow.MetricSessionRevoked:          "Sessions cleared by logout or a security-sensitive mutation.",
}

// CounterDefs lists every exported counter in declaration order. Names
// carry the _total suffix Prometheus conventions expect.
var CounterDefs = buildCounterDefs()

func buildCounterDefs() []CounterDef {
	ids := authflow.MetricIDs()
	defs := make([]CounterDef, 0, len(ids))
	for _, id := range ids {
		defs = append(defs, CounterDef{
			ID:   id,
			Name: authflow.MetricName(id) + "_total",
			Help: counterHelp[id],
		})
	}
	return defs
}
