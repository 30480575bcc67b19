package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// Config holds limiter tuning parameters.
type Config struct {
	AttemptWindow   time.Duration
	MaxAttempts     int
	LockoutDuration time.Duration
}

// Status is the result of a limit check.
type Status struct {
	Allowed           bool
	RemainingAttempts int
	LockoutMinutes    int
}

type record struct {
	attempts    []time.Time
	lockedUntil time.Time
}

// Limiter enforces a per-identifier sliding window of failed attempts with
// lockout. All state is in memory; methods are safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	config  Config
	records map[string]*record

	now func() time.Time
}

// New creates a [Limiter] with the given window configuration.
func New(cfg Config) *Limiter {
	return &Limiter{
		config:  cfg,
		records: make(map[string]*record),
		now:     time.Now,
	}
}

// Check reports whether the identifier may attempt authentication. A locked
// identifier reports the lockout time remaining, rounded up to whole
// minutes. An expired lockout purges the record so the budget resets fully.
func (l *Limiter) Check(identifier string) Status {
	key := normalizeKey(identifier)

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key]
	if !ok {
		return Status{Allowed: true, RemainingAttempts: l.config.MaxAttempts}
	}

	now := l.now()

	if !rec.lockedUntil.IsZero() {
		if now.Before(rec.lockedUntil) {
			return Status{LockoutMinutes: ceilMinutes(rec.lockedUntil.Sub(now))}
		}
		delete(l.records, key)
		return Status{Allowed: true, RemainingAttempts: l.config.MaxAttempts}
	}

	l.prune(rec, now)
	if len(rec.attempts) == 0 {
		delete(l.records, key)
		return Status{Allowed: true, RemainingAttempts: l.config.MaxAttempts}
	}

	if len(rec.attempts) >= l.config.MaxAttempts {
		// Threshold reached: latch the lockout deadline so later pruning
		// cannot shorten it.
		rec.lockedUntil = rec.attempts[0].Add(l.config.LockoutDuration)
		if now.Before(rec.lockedUntil) {
			return Status{LockoutMinutes: ceilMinutes(rec.lockedUntil.Sub(now))}
		}
		delete(l.records, key)
		return Status{Allowed: true, RemainingAttempts: l.config.MaxAttempts}
	}

	return Status{Allowed: true, RemainingAttempts: l.config.MaxAttempts - len(rec.attempts)}
}

// RecordFailure appends a failed attempt for the identifier. Failures are
// recorded even while locked, which extends the effective lockout through
// the sliding mechanism.
func (l *Limiter) RecordFailure(identifier string) {
	key := normalizeKey(identifier)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	rec, ok := l.records[key]
	if !ok {
		rec = &record{}
		l.records[key] = rec
	}
	rec.attempts = append(rec.attempts, now)

	if rec.lockedUntil.IsZero() {
		l.prune(rec, now)
		if len(rec.attempts) >= l.config.MaxAttempts {
			rec.lockedUntil = rec.attempts[0].Add(l.config.LockoutDuration)
		}
	}
}

// Clear drops all recorded attempts for the identifier. Called on any
// successful authentication.
func (l *Limiter) Clear(identifier string) {
	key := normalizeKey(identifier)

	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.records, key)
}

func (l *Limiter) prune(rec *record, now time.Time) {
	cutoff := now.Add(-l.config.AttemptWindow)
	kept := rec.attempts[:0]
	for _, at := range rec.attempts {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	rec.attempts = kept
}

func normalizeKey(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

func ceilMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	minutes := int(d / time.Minute)
	if d%time.Minute != 0 {
		minutes++
	}
	return minutes
}
