package identifier

import (
	"errors"
	"strings"
)

// Kind tags an identifier as one of the two supported contact channels.
type Kind uint8

const (
	// KindUnknown marks a value that could not be classified.
	KindUnknown Kind = iota
	// KindEmail marks an email address.
	KindEmail
	// KindPhone marks a phone number.
	KindPhone
)

// String returns the canonical lower-case channel name.
func (k Kind) String() string {
	switch k {
	case KindEmail:
		return "email"
	case KindPhone:
		return "phone"
	default:
		return "unknown"
	}
}

// ErrInvalid is returned by Parse when the input is neither a well-formed
// email address nor a plausible phone number.
var ErrInvalid = errors.New("invalid identifier")

// Identifier is a classified, normalized contact address. The zero value is
// not valid; construct through [Parse].
type Identifier struct {
	Kind  Kind
	Value string
}

// IsZero reports whether the identifier has not been populated.
func (id Identifier) IsZero() bool {
	return id.Kind == KindUnknown && id.Value == ""
}

// Parse classifies raw as email or phone, validates its shape, and returns
// the normalized identifier. Classification is structural: anything
// containing '@' is treated as an email candidate, everything else as a
// phone candidate.
func Parse(raw string) (Identifier, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Identifier{}, ErrInvalid
	}

	if strings.ContainsRune(trimmed, '@') {
		normalized, ok := normalizeEmail(trimmed)
		if !ok {
			return Identifier{}, ErrInvalid
		}
		return Identifier{Kind: KindEmail, Value: normalized}, nil
	}

	normalized, ok := normalizePhone(trimmed)
	if !ok {
		return Identifier{}, ErrInvalid
	}
	return Identifier{Kind: KindPhone, Value: normalized}, nil
}

// Masked returns a display-safe form of the identifier: emails keep the
// first rune of the local part and the full domain, phone numbers keep the
// last four digits. Unknown identifiers mask to "***".
func (id Identifier) Masked() string {
	switch id.Kind {
	case KindEmail:
		at := strings.IndexByte(id.Value, '@')
		if at <= 0 {
			return "***"
		}
		return id.Value[:1] + strings.Repeat("*", at-1) + id.Value[at:]
	case KindPhone:
		if len(id.Value) <= 4 {
			return strings.Repeat("*", len(id.Value))
		}
		return strings.Repeat("*", len(id.Value)-4) + id.Value[len(id.Value)-4:]
	default:
		return "***"
	}
}

func normalizeEmail(raw string) (string, bool) {
	lowered := strings.ToLower(raw)

	at := strings.IndexByte(lowered, '@')
	if at <= 0 || at != strings.LastIndexByte(lowered, '@') {
		return "", false
	}

	local, domain := lowered[:at], lowered[at+1:]
	if local == "" || domain == "" {
		return "", false
	}
	if strings.ContainsAny(lowered, " \t\r\n") {
		return "", false
	}

	// Domain needs at least one dot with a non-empty label on each side.
	dot := strings.LastIndexByte(domain, '.')
	if dot <= 0 || dot == len(domain)-1 {
		return "", false
	}
	if strings.HasPrefix(domain, ".") || strings.Contains(domain, "..") {
		return "", false
	}

	return lowered, true
}

func normalizePhone(raw string) (string, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '.', '-', '(', ')':
			return -1
		}
		return r
	}, raw)

	if strings.HasPrefix(cleaned, "00") {
		cleaned = "+" + cleaned[2:]
	}

	digits := cleaned
	if strings.HasPrefix(digits, "+") {
		digits = digits[1:]
	}
	if len(digits) < 7 || len(digits) > 15 {
		return "", false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return "", false
		}
	}

	return cleaned, true
}
