package authflow

import "sync/atomic"

// MetricID indexes one orchestrator counter.
type MetricID uint16

const (
	// MetricRegistrationSubmitted counts accepted registration submissions.
	MetricRegistrationSubmitted MetricID = iota
	// MetricRegistrationRejected counts registration submissions rejected
	// locally or by the backend.
	MetricRegistrationRejected
	// MetricVerificationSuccess counts successful contact verifications.
	MetricVerificationSuccess
	// MetricVerificationFailure counts failed contact verifications.
	MetricVerificationFailure
	// MetricResendIssued counts resend requests that reached the backend.
	MetricResendIssued
	// MetricResendSuppressed counts resends suppressed by an active cooldown.
	MetricResendSuppressed
	// MetricLoginSuccess counts session-issuing logins, any factor.
	MetricLoginSuccess
	// MetricLoginFailure counts rejected logins, any factor.
	MetricLoginFailure
	// MetricLoginRateLimited counts logins refused by the local lockout.
	MetricLoginRateLimited
	// MetricTwoFactorRequired counts logins flagged for a second factor.
	MetricTwoFactorRequired
	// MetricTwoFactorSuccess counts successful second-factor confirmations.
	MetricTwoFactorSuccess
	// MetricTwoFactorFailure counts failed second-factor confirmations.
	MetricTwoFactorFailure
	// MetricResetRequested counts password reset code requests.
	MetricResetRequested
	// MetricResetCompleted counts completed password resets.
	MetricResetCompleted
	// MetricBiometricLoginSuccess counts successful biometric logins.
	MetricBiometricLoginSuccess
	// MetricBiometricLoginFailure counts failed biometric logins.
	MetricBiometricLoginFailure
	// MetricBiometricReplayRejected counts assertions rejected for a
	// non-increasing counter.
	MetricBiometricReplayRejected
	// MetricBiometricEnrolled counts credential enrollments.
	MetricBiometricEnrolled
	// MetricBiometricDisabled counts credential revocations, manual or
	// automatic.
	MetricBiometricDisabled
	// MetricPINCreated counts transaction PIN creations.
	MetricPINCreated
	// MetricSessionEstablished counts sessions stored on this device.
	MetricSessionEstablished
	// MetricSessionRevoked counts sessions cleared by logout or a
	// security-sensitive mutation.
	MetricSessionRevoked

	metricCount
)

var metricNames = [metricCount]string{
	MetricRegistrationSubmitted:   "authflow_registration_submitted",
	MetricRegistrationRejected:    "authflow_registration_rejected",
	MetricVerificationSuccess:     "authflow_verification_success",
	MetricVerificationFailure:     "authflow_verification_failure",
	MetricResendIssued:            "authflow_resend_issued",
	MetricResendSuppressed:        "authflow_resend_suppressed",
	MetricLoginSuccess:            "authflow_login_success",
	MetricLoginFailure:            "authflow_login_failure",
	MetricLoginRateLimited:        "authflow_login_rate_limited",
	MetricTwoFactorRequired:       "authflow_two_factor_required",
	MetricTwoFactorSuccess:        "authflow_two_factor_success",
	MetricTwoFactorFailure:        "authflow_two_factor_failure",
	MetricResetRequested:          "authflow_reset_requested",
	MetricResetCompleted:          "authflow_reset_completed",
	MetricBiometricLoginSuccess:   "authflow_biometric_login_success",
	MetricBiometricLoginFailure:   "authflow_biometric_login_failure",
	MetricBiometricReplayRejected: "authflow_biometric_replay_rejected",
	MetricBiometricEnrolled:       "authflow_biometric_enrolled",
	MetricBiometricDisabled:       "authflow_biometric_disabled",
	MetricPINCreated:              "authflow_pin_created",
	MetricSessionEstablished:      "authflow_session_established",
	MetricSessionRevoked:          "authflow_session_revoked",
}

// MetricName returns the stable export name for a counter, or "" for an
// unknown id.
func MetricName(id MetricID) string {
	if id >= metricCount {
		return ""
	}
	return metricNames[id]
}

// MetricIDs lists every defined counter id in declaration order.
func MetricIDs() []MetricID {
	ids := make([]MetricID, metricCount)
	for i := range ids {
		ids[i] = MetricID(i)
	}
	return ids
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Metrics is the lock-free counter set. A nil *Metrics is a valid no-op.
type Metrics struct {
	counters [metricCount]atomic.Uint64
}

// NewMetrics returns a counter set, or nil when metrics are disabled.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return nil
	}
	return &Metrics{}
}

// Inc increments one counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= metricCount {
		return
	}
	m.counters[id].Add(1)
}

// Snapshot copies every counter into a fresh map.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snapshot := MetricsSnapshot{Counters: make(map[MetricID]uint64, metricCount)}
	if m == nil {
		return snapshot
	}
	for i := range m.counters {
		snapshot.Counters[MetricID(i)] = m.counters[i].Load()
	}
	return snapshot
}
