package authflow

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/nimbuspay/authflow/identifier"
	"github.com/nimbuspay/authflow/internal/ratelimit"
	"github.com/nimbuspay/authflow/session"
)

// Orchestrator coordinates every identity flow against one backend and owns
// the two pieces of process-lifetime state: the session credential and the
// rate limiter. Flow instances created through NewRegistration,
// NewPasswordReset, and NewBiometricLogin scope everything else.
//
// Orchestrator methods are safe to call from multiple goroutines after
// construction through [Builder.Build].
type Orchestrator struct {
	config   Config
	gateway  Gateway
	sessions session.Store
	limiter  *ratelimit.Limiter
	audit    *auditDispatcher
	metrics  *Metrics
	deviceID string

	mu      sync.Mutex
	current *session.Session
	profile *Profile
	// counters tracks the last authenticator counter seen per enrolled
	// credential id, for the client-side replay check.
	counters map[string]int64
}

// Close flushes and stops the audit dispatcher.
func (o *Orchestrator) Close() {
	if o == nil {
		return
	}
	if o.audit != nil {
		o.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped under pressure.
func (o *Orchestrator) AuditDropped() uint64 {
	if o == nil {
		return 0
	}
	return o.audit.Dropped()
}

// MetricsSnapshot copies all counters.
func (o *Orchestrator) MetricsSnapshot() MetricsSnapshot {
	if o == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return o.metrics.Snapshot()
}

func (o *Orchestrator) metricInc(id MetricID) {
	if o == nil {
		return
	}
	o.metrics.Inc(id)
}

func (o *Orchestrator) emitAudit(
	ctx context.Context,
	eventType string,
	id identifier.Identifier,
	flowID, ip string,
	success bool,
	failure error,
	metadata func() map[string]string,
) {
	if o == nil || o.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: eventType,
		FlowID:    flowID,
		IP:        ip,
		Success:   success,
	}
	if !id.IsZero() {
		event.Identifier = id.Masked()
	}
	if failure != nil {
		event.Error = failure.Error()
	}
	if metadata != nil {
		event.Metadata = metadata()
	}

	o.audit.Emit(ctx, event)
}

// CurrentSession returns a copy of the live session. ok is false when no
// session is held or the held one has expired.
func (o *Orchestrator) CurrentSession() (session.Session, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current == nil || o.current.Expired() {
		return session.Session{}, false
	}
	return *o.current, true
}

// IsAuthenticated reports whether the device holds a live session.
func (o *Orchestrator) IsAuthenticated() bool {
	_, ok := o.CurrentSession()
	return ok
}

// Token returns the live session token, or "" when logged out. It
// satisfies the token-source seam gateway implementations attach to.
func (o *Orchestrator) Token() string {
	s, ok := o.CurrentSession()
	if !ok {
		return ""
	}
	return s.Token
}

// RestoreSession reloads a persisted session at startup. An expired stored
// session is cleared and reported as [ErrSessionExpired].
func (o *Orchestrator) RestoreSession(ctx context.Context) error {
	if o == nil || o.sessions == nil {
		return ErrNotReady
	}

	stored, err := o.sessions.Load(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ErrNoSession
		}
		return err
	}

	if stored.Expired() {
		_ = o.sessions.Clear(ctx)
		return ErrSessionExpired
	}

	o.mu.Lock()
	o.current = stored
	o.mu.Unlock()

	o.emitAudit(ctx, auditEventSessionRestored, identifier.Identifier{}, "", "", true, nil, nil)
	return nil
}

// Logout destroys the current session locally. The backend token is not
// recalled; it simply stops being presented and expires server-side.
func (o *Orchestrator) Logout(ctx context.Context) error {
	if o == nil {
		return ErrNotReady
	}

	o.mu.Lock()
	o.current = nil
	o.profile = nil
	o.mu.Unlock()

	err := o.sessions.Clear(ctx)

	o.metricInc(MetricSessionRevoked)
	o.emitAudit(ctx, auditEventLogout, identifier.Identifier{}, "", "", err == nil, err, nil)
	return err
}

// Profile returns the backend's account view, cached until invalidated.
func (o *Orchestrator) Profile(ctx context.Context) (Profile, error) {
	if o == nil || o.gateway == nil {
		return Profile{}, ErrNotReady
	}
	if !o.IsAuthenticated() {
		return Profile{}, ErrNoSession
	}

	o.mu.Lock()
	cached := o.profile
	o.mu.Unlock()
	if cached != nil {
		return *cached, nil
	}

	fetched, err := o.gateway.FetchProfile(ctx)
	if err != nil {
		return Profile{}, err
	}

	o.mu.Lock()
	o.profile = &fetched
	o.mu.Unlock()
	return fetched, nil
}

// invalidateProfile drops the cached profile so the next read refetches.
func (o *Orchestrator) invalidateProfile() {
	o.mu.Lock()
	o.profile = nil
	o.mu.Unlock()
}

// CheckRateLimit exposes the local attempt budget for an identifier, so a
// caller can render remaining attempts or a lockout countdown.
func (o *Orchestrator) CheckRateLimit(rawIdentifier string) RateLimitStatus {
	key := rawIdentifier
	if id, err := identifier.Parse(rawIdentifier); err == nil {
		key = id.Value
	}

	status := o.limiter.Check(key)
	return RateLimitStatus{
		Allowed:           status.Allowed,
		RemainingAttempts: status.RemainingAttempts,
		LockoutMinutes:    status.LockoutMinutes,
	}
}

// establishSession records a freshly issued token as the current session
// and persists it. Expiry comes from the response when present, otherwise
// from the token's exp claim, otherwise from the configured fallback TTL.
func (o *Orchestrator) establishSession(
	ctx context.Context,
	id identifier.Identifier,
	token string,
	expiresAt time.Time,
	userID string,
	elevated bool,
) (*session.Session, error) {
	now := time.Now()
	if expiresAt.IsZero() {
		expiresAt = session.ExpiryFromToken(token, o.config.Session.FallbackTTL, now)
	}

	s := &session.Session{
		Token:      token,
		Identifier: id.Value,
		Channel:    id.Kind.String(),
		UserID:     userID,
		Elevated:   elevated,
		IssuedAt:   now,
		ExpiresAt:  expiresAt,
	}

	o.mu.Lock()
	o.current = s
	o.profile = nil
	o.mu.Unlock()

	if err := o.sessions.Save(ctx, s); err != nil {
		return s, err
	}

	o.metricInc(MetricSessionEstablished)
	copied := *s
	return &copied, nil
}

// revokeSession destroys the current session after a security-sensitive
// mutation, forcing re-entry through the login coordinator.
func (o *Orchestrator) revokeSession(ctx context.Context, reason string) {
	o.mu.Lock()
	o.current = nil
	o.profile = nil
	o.mu.Unlock()

	_ = o.sessions.Clear(ctx)

	o.metricInc(MetricSessionRevoked)
	o.emitAudit(ctx, auditEventSessionRevoked, identifier.Identifier{}, "", "", true, nil, func() map[string]string {
		return map[string]string{"reason": reason}
	})
}

func (o *Orchestrator) noteCredential(credentialID string, counter int64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.counters == nil {
		o.counters = make(map[string]int64)
	}
	if existing, ok := o.counters[credentialID]; !ok || counter > existing {
		o.counters[credentialID] = counter
	}
}

func (o *Orchestrator) lastCounter(credentialID string) (int64, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	counter, ok := o.counters[credentialID]
	return counter, ok
}

func (o *Orchestrator) forgetCredential(credentialID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	delete(o.counters, credentialID)
}

// EnrolledCredentials lists the credential ids the orchestrator tracks,
// sorted for stable output.
func (o *Orchestrator) EnrolledCredentials() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	ids := make([]string, 0, len(o.counters))
	for id := range o.counters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// fillDevice defaults an empty DeviceID to the orchestrator's stable
// per-install id so the backend can correlate risk signals.
func (o *Orchestrator) fillDevice(device DeviceMetadata) DeviceMetadata {
	if device.DeviceID == "" {
		device.DeviceID = o.deviceID
	}
	return device
}
