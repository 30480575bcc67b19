package authflow

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

const (
	auditEventRegistrationSubmit = "registration.submit"
	auditEventVerifyContact      = "registration.verify_contact"
	auditEventResendCode         = "registration.resend_code"
	auditEventPINCreate          = "registration.pin_create"
	auditEventLoginPassword      = "login.password"
	auditEventLoginPasscode      = "login.passcode"
	auditEventLoginBiometric     = "login.biometric"
	auditEventTwoFactor          = "login.two_factor"
	auditEventRateLimited        = "login.rate_limited"
	auditEventLogout             = "session.logout"
	auditEventSessionRestored    = "session.restored"
	auditEventSessionRevoked     = "session.revoked"
	auditEventResetRequest       = "reset.request"
	auditEventResetVerify        = "reset.verify_code"
	auditEventResetComplete      = "reset.complete"
	auditEventPasscodeSet        = "account.passcode_set"
	auditEventPasswordChange     = "account.password_change"
	auditEventPINReset           = "account.pin_reset"
	auditEventBiometricEnroll    = "biometric.enroll"
	auditEventBiometricDisable   = "biometric.disable"
)

// AuditEvent is one flow transition or rejection. Identifier is always the
// masked form; raw addresses never enter the audit stream.
type AuditEvent struct {
	Timestamp  time.Time         `json:"timestamp"`
	EventType  string            `json:"event_type"`
	FlowID     string            `json:"flow_id,omitempty"`
	Identifier string            `json:"identifier,omitempty"`
	IP         string            `json:"ip,omitempty"`
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards every event.
type NoOpSink struct{}

// Emit discards the event.
func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink forwards events to a buffered channel for the host to drain.
type ChannelSink struct {
	events chan AuditEvent
}

// NewChannelSink creates a [ChannelSink] with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan AuditEvent, buffer)}
}

// Emit forwards the event, giving up when ctx is done.
func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events exposes the sink's channel.
func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line to an [io.Writer].
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink creates a [JSONWriterSink] over w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

// Emit marshals and writes the event. Marshal failures are dropped.
func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
