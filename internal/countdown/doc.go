// Package countdown implements the resend cooldown timer shared by all
// one-time-code flows.
//
// # Clock discipline
//
// The wall-clock deadline is authoritative. Each tick recomputes the
// remaining seconds from the deadline instead of decrementing a cached
// counter, so a process suspended mid-countdown self-corrects on the next
// tick. Reaching zero clears the timer entirely: "resend allowed" is
// represented as the absence of an active countdown, never as a zero held
// alongside a separate flag.
//
// # What this package must NOT do
//
//   - Gate anything itself. Callers ask Active() and decide.
//   - Touch flow state; it only owns its own deadline.
package countdown
