// Package authflow is a client-side identity verification and session
// establishment engine for the NimbusPay mobile and desktop apps: account
// registration with contact verification, multi-factor login with a local
// sliding-window lockout, password recovery, and biometric challenge
// handling, all against a REST backend reached through the [Gateway]
// interface.
//
// The package holds client state only. It never sees which one-time code
// the backend issued, never validates credentials itself, and never
// rewrites a backend rejection; its job is ordering the calls, enforcing
// the local guards (attempt budget, resend cooldown, counter watermarks),
// and keeping the device's session in sync.
//
// # Architecture boundaries
//
// authflow is the public surface. It exposes [Orchestrator], [Builder],
// [Config], the flow types ([RegistrationFlow], [PasswordResetFlow],
// [BiometricFlow]), and value types. Local coordination (the attempt
// window, the cooldown clock) lives under internal/ and is never
// exported. The session store and identifier parsing are public
// sub-packages because hosts persist sessions and render masked
// identifiers themselves.
//
// # What this package must NOT do
//
//   - Retry a failed backend call on its own. The caller decides whether
//     to try again.
//   - Rank local guards above the backend. A local allow never overrides
//     a backend reject, and local lockouts exist only to spare the
//     backend obviously futile traffic.
//   - Log or emit a raw email address or phone number. Audit events carry
//     the masked form only.
//
// An [Orchestrator] is safe for concurrent use after [Builder.Build].
// Each flow instance serializes its own transitions and rejects
// overlapping calls with [ErrFlowBusy].
package authflow
