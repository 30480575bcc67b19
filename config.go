package authflow

import (
	"errors"
	"time"
)

// Config defines the orchestrator's tuning knobs. Configure once through
// [Builder.WithConfig]; the built orchestrator treats it as immutable.
type Config struct {
	Security  SecurityConfig
	Cooldown  CooldownConfig
	Session   SessionConfig
	Biometric BiometricConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig tunes the client-local abuse protection. It mirrors the
// server-side throttle but never replaces it.
type SecurityConfig struct {
	AttemptWindow    time.Duration
	MaxLoginAttempts int
	LockoutDuration  time.Duration
}

/*
====================================
COOLDOWN CONFIG
====================================
*/

// CooldownConfig sets the resend cooldowns per one-time-code flow.
type CooldownConfig struct {
	VerificationResend time.Duration
	ResetResend        time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig tunes session credential handling.
type SessionConfig struct {
	// FallbackTTL applies when the backend returns an opaque token with no
	// usable expiry.
	FallbackTTL time.Duration
	// RedisPrefix namespaces keys when a Redis-backed store is used.
	RedisPrefix string
}

/*
====================================
BIOMETRIC CONFIG
====================================
*/

// BiometricConfig tunes public-key credential handling.
type BiometricConfig struct {
	Enabled bool
	// MaxCredentials caps enrollments tracked per identity; 0 means no cap.
	MaxCredentials int
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking when the buffer is full.
	DropIfFull bool
}

// MetricsConfig controls the atomic counter set.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the configuration the builder starts from.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Security: SecurityConfig{
			AttemptWindow:    5 * time.Minute,
			MaxLoginAttempts: 5,
			LockoutDuration:  15 * time.Minute,
		},
		Cooldown: CooldownConfig{
			VerificationResend: 120 * time.Second,
			ResetResend:        50 * time.Second,
		},
		Session: SessionConfig{
			FallbackTTL: 15 * time.Minute,
			RedisPrefix: "afs",
		},
		Biometric: BiometricConfig{
			Enabled: true,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate reports the first configuration contradiction found.
func (c *Config) Validate() error {
	if c.Security.MaxLoginAttempts <= 0 {
		return errors.New("Security.MaxLoginAttempts must be positive")
	}
	if c.Security.AttemptWindow <= 0 {
		return errors.New("Security.AttemptWindow must be positive")
	}
	if c.Security.LockoutDuration < c.Security.AttemptWindow {
		return errors.New("Security.LockoutDuration must not be shorter than AttemptWindow")
	}
	if c.Cooldown.VerificationResend <= 0 || c.Cooldown.ResetResend <= 0 {
		return errors.New("Cooldown durations must be positive")
	}
	if c.Session.FallbackTTL <= 0 {
		return errors.New("Session.FallbackTTL must be positive")
	}
	if c.Biometric.MaxCredentials < 0 {
		return errors.New("Biometric.MaxCredentials must not be negative")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be positive when audit is enabled")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	// All fields are value types; a shallow copy is a deep copy.
	return cfg
}
