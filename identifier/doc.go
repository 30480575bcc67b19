// Package identifier classifies, validates, normalizes, and masks the
// user-supplied identifiers an account can be addressed by: email addresses
// and phone numbers.
//
// # Normalization rules
//
// Emails are trimmed and case-folded. Phone numbers are trimmed and stripped
// of spaces, dots, dashes, and parentheses; an international prefix written
// as 00 is rewritten to +. The normalized value is the canonical key for
// rate limiting and for every backend call.
//
// # What this package must NOT do
//
//   - Perform network I/O or carrier/MX lookups.
//   - Hold mutable state; every function is pure.
package identifier
