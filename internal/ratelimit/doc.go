// Package ratelimit provides the in-process sliding-window failure counter
// that gates login attempts per identifier.
//
// # Window semantics
//
// Failed attempts are kept as timestamps. Only timestamps inside the
// trailing attempt window count toward the threshold; once the threshold is
// reached the identifier is locked until the oldest retained timestamp plus
// the lockout duration, after which the whole record is purged.
//
// This limiter is a best-effort, client-local control. The backend enforces
// the authoritative throttle; this one exists to avoid wasted round-trips.
//
// # What this package must NOT do
//
//   - Persist state anywhere. The map lives and dies with the process.
//   - Implement flow policy (which operations consume budget lives in the
//     orchestrator).
package ratelimit
