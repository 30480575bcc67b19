package authflow

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeGateway implements Gateway with overridable behavior per call. The
// zero value accepts everything and issues the canned token.
type fakeGateway struct {
	registerFn       func(ctx context.Context, req RegisterRequest) error
	verifyContactFn  func(ctx context.Context, identifier, code string) (VerifyContactResponse, error)
	resendFn         func(ctx context.Context, identifier string) error
	loginPasswordFn  func(ctx context.Context, identifier, password string, device DeviceMetadata) (LoginResponse, error)
	loginPasscodeFn  func(ctx context.Context, identifier, passcode string, device DeviceMetadata) (LoginResponse, error)
	verifyTwoFAFn    func(ctx context.Context, email, code string) (LoginResponse, error)
	forgotPasswordFn func(ctx context.Context, email string) error
	verifyResetFn    func(ctx context.Context, email, code string) error
	resetPasswordFn  func(ctx context.Context, email, password, confirm string) error
	bioChallengeFn   func(ctx context.Context, credentialID string) (string, error)
	bioEnrollFn      func(ctx context.Context, userID string, credential BiometricCredential) error
	bioLoginFn       func(ctx context.Context, assertion BiometricAssertion, device DeviceMetadata) (LoginResponse, error)
	bioDisableFn     func(ctx context.Context, credentialID string) error
	createPINFn      func(ctx context.Context, pin string) error
	setPasscodeFn    func(ctx context.Context, passcode string) error
	fetchProfileFn   func(ctx context.Context) (Profile, error)

	mu    sync.Mutex
	calls []string
}

func (g *fakeGateway) record(name string) {
	g.mu.Lock()
	g.calls = append(g.calls, name)
	g.mu.Unlock()
}

func okLogin() LoginResponse {
	return LoginResponse{
		Token:     "tok-ok",
		ExpiresAt: time.Now().Add(time.Hour),
		UserID:    "u1",
	}
}

func (g *fakeGateway) Register(ctx context.Context, req RegisterRequest) error {
	g.record("register")
	if g.registerFn != nil {
		return g.registerFn(ctx, req)
	}
	return nil
}

func (g *fakeGateway) VerifyContact(ctx context.Context, identifier, code string) (VerifyContactResponse, error) {
	g.record("verify_contact")
	if g.verifyContactFn != nil {
		return g.verifyContactFn(ctx, identifier, code)
	}
	return VerifyContactResponse{Token: "tok-ok", ExpiresAt: time.Now().Add(time.Hour), UserID: "u1"}, nil
}

func (g *fakeGateway) ResendContactCode(ctx context.Context, identifier string) error {
	g.record("resend")
	if g.resendFn != nil {
		return g.resendFn(ctx, identifier)
	}
	return nil
}

func (g *fakeGateway) LoginPassword(ctx context.Context, identifier, password string, device DeviceMetadata) (LoginResponse, error) {
	g.record("login_password")
	if g.loginPasswordFn != nil {
		return g.loginPasswordFn(ctx, identifier, password, device)
	}
	return okLogin(), nil
}

func (g *fakeGateway) LoginPasscode(ctx context.Context, identifier, passcode string, device DeviceMetadata) (LoginResponse, error) {
	g.record("login_passcode")
	if g.loginPasscodeFn != nil {
		return g.loginPasscodeFn(ctx, identifier, passcode, device)
	}
	return okLogin(), nil
}

func (g *fakeGateway) VerifyTwoFactor(ctx context.Context, email, code string) (LoginResponse, error) {
	g.record("verify_2fa")
	if g.verifyTwoFAFn != nil {
		return g.verifyTwoFAFn(ctx, email, code)
	}
	return okLogin(), nil
}

func (g *fakeGateway) ForgotPassword(ctx context.Context, email string) error {
	g.record("forgot_password")
	if g.forgotPasswordFn != nil {
		return g.forgotPasswordFn(ctx, email)
	}
	return nil
}

func (g *fakeGateway) VerifyResetCode(ctx context.Context, email, code string) error {
	g.record("verify_reset")
	if g.verifyResetFn != nil {
		return g.verifyResetFn(ctx, email, code)
	}
	return nil
}

func (g *fakeGateway) ResetPassword(ctx context.Context, email, password, confirm string) error {
	g.record("reset_password")
	if g.resetPasswordFn != nil {
		return g.resetPasswordFn(ctx, email, password, confirm)
	}
	return nil
}

func (g *fakeGateway) BiometricChallenge(ctx context.Context, credentialID string) (string, error) {
	g.record("bio_challenge")
	if g.bioChallengeFn != nil {
		return g.bioChallengeFn(ctx, credentialID)
	}
	return "challenge-1", nil
}

func (g *fakeGateway) BiometricEnroll(ctx context.Context, userID string, credential BiometricCredential) error {
	g.record("bio_enroll")
	if g.bioEnrollFn != nil {
		return g.bioEnrollFn(ctx, userID, credential)
	}
	return nil
}

func (g *fakeGateway) BiometricLogin(ctx context.Context, assertion BiometricAssertion, device DeviceMetadata) (LoginResponse, error) {
	g.record("bio_login")
	if g.bioLoginFn != nil {
		return g.bioLoginFn(ctx, assertion, device)
	}
	return okLogin(), nil
}

func (g *fakeGateway) BiometricDisable(ctx context.Context, credentialID string) error {
	g.record("bio_disable")
	if g.bioDisableFn != nil {
		return g.bioDisableFn(ctx, credentialID)
	}
	return nil
}

func (g *fakeGateway) CreateTransactionPIN(ctx context.Context, pin string) error {
	g.record("create_pin")
	if g.createPINFn != nil {
		return g.createPINFn(ctx, pin)
	}
	return nil
}

func (g *fakeGateway) SetPasscode(ctx context.Context, passcode string) error {
	g.record("set_passcode")
	if g.setPasscodeFn != nil {
		return g.setPasscodeFn(ctx, passcode)
	}
	return nil
}

func (g *fakeGateway) FetchProfile(ctx context.Context) (Profile, error) {
	g.record("fetch_profile")
	if g.fetchProfileFn != nil {
		return g.fetchProfileFn(ctx)
	}
	return Profile{UserID: "u1", Username: "alice"}, nil
}

func (g *fakeGateway) callCount(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c == name {
			n++
		}
	}
	return n
}

func newTestOrchestrator(t *testing.T, gw *fakeGateway) *Orchestrator {
	t.Helper()

	cfg := defaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Biometric.Enabled = true

	orchestrator, err := New().
		WithConfig(cfg).
		WithGateway(gw).
		WithDeviceID("dev-test").
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(orchestrator.Close)
	return orchestrator
}

func validDraft() RegistrationDraft {
	return RegistrationDraft{
		Username:    "alice",
		FullName:    "Alice Cooper",
		Email:       "a@b.com",
		Password:    "correct-password-123",
		DateOfBirth: "1990-04-01",
		AccountType: AccountPersonal,
		Currency:    "EUR",
	}
}

func mustLogin(t *testing.T, orchestrator *Orchestrator) {
	t.Helper()
	if _, err := orchestrator.LoginWithPassword(context.Background(), "a@b.com", "correct-password-123", DeviceMetadata{}); err != nil {
		t.Fatalf("LoginWithPassword failed: %v", err)
	}
}
