package identifier

import (
	"errors"
	"testing"
)

func TestParseEmailNormalization(t *testing.T) {
	id, err := Parse("  Alice.Smith@Example.COM ")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if id.Kind != KindEmail {
		t.Fatalf("expected email kind, got %v", id.Kind)
	}
	if id.Value != "alice.smith@example.com" {
		t.Fatalf("unexpected normalized value: %q", id.Value)
	}
}

func TestParsePhoneNormalization(t *testing.T) {
	cases := map[string]string{
		"+243 812 345 678": "+243812345678",
		"00243812345678":   "+243812345678",
		"(081) 234-5678":   "0812345678",
	}

	for raw, want := range cases {
		id, err := Parse(raw)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", raw, err)
		}
		if id.Kind != KindPhone {
			t.Fatalf("Parse(%q): expected phone kind, got %v", raw, id.Kind)
		}
		if id.Value != want {
			t.Fatalf("Parse(%q) = %q, want %q", raw, id.Value, want)
		}
	}
}

func TestParseRejectsMalformedInput(t *testing.T) {
	for _, raw := range []string{
		"",
		"   ",
		"@example.com",
		"alice@",
		"alice@@example.com",
		"alice@example",
		"alice@.com",
		"alice@example..com",
		"12345",
		"+12 34 56",
		"081234567890123456",
		"not a phone",
	} {
		if _, err := Parse(raw); !errors.Is(err, ErrInvalid) {
			t.Fatalf("Parse(%q): expected ErrInvalid, got %v", raw, err)
		}
	}
}

func TestMaskedEmail(t *testing.T) {
	id, err := Parse("alice@example.com")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := id.Masked(); got != "a****@example.com" {
		t.Fatalf("unexpected mask: %q", got)
	}
}

func TestMaskedPhone(t *testing.T) {
	id, err := Parse("+243812345678")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := id.Masked(); got != "*********5678" {
		t.Fatalf("unexpected mask: %q", got)
	}
}

func TestMaskedZeroValue(t *testing.T) {
	var id Identifier
	if got := id.Masked(); got != "***" {
		t.Fatalf("unexpected mask for zero value: %q", got)
	}
}
