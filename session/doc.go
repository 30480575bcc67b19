// Package session holds the device's authenticated session credential: the
// token issued by the backend, who it was issued for, and when it expires.
//
// The store is the sole source of truth for "is this device currently
// authenticated". An absent or expired session is equivalent to logged out.
//
// Two stores ship: [MemoryStore] for the common single-process case and
// [RedisStore] for hosts that need the credential to survive restarts or be
// shared across workers.
//
// # What this package must NOT do
//
//   - Validate token signatures. The client holds no verification key; the
//     only claim it reads is exp, for expiry scheduling.
//   - Hold the refresh of flow state; it stores credentials, nothing else.
package session
