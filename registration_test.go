package authflow

import (
	"context"
	"errors"
	"testing"
	"time"
)

func submittedFlow(t *testing.T, gw *fakeGateway) (*Orchestrator, *RegistrationFlow) {
	t.Helper()

	orchestrator := newTestOrchestrator(t, gw)
	flow := orchestrator.NewRegistration()
	t.Cleanup(flow.Cancel)

	if err := flow.Submit(context.Background(), validDraft()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	return orchestrator, flow
}

func TestRegistrationHappyPathToActive(t *testing.T) {
	gw := &fakeGateway{}
	orchestrator, flow := submittedFlow(t, gw)

	if got := flow.State(); got != RegistrationAwaitingCode {
		t.Fatalf("state after submit = %s", got)
	}
	if id := flow.Identity(); id.Verified || id.Identifier.Value != "a@b.com" {
		t.Fatalf("identity after submit = %+v", id)
	}

	result, err := flow.VerifyCode(context.Background(), "123456")
	if err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}
	if !result.SessionEstablished || result.Session == nil || result.Session.Token == "" {
		t.Fatalf("expected auto-established session, got %+v", result)
	}
	if got := flow.State(); got != RegistrationAwaitingPIN {
		t.Fatalf("state after verify = %s", got)
	}
	if !flow.Identity().Verified {
		t.Fatal("identity not marked verified")
	}
	if !orchestrator.IsAuthenticated() {
		t.Fatal("orchestrator holds no session after auto-establishment")
	}

	if err := flow.CreatePIN(context.Background(), "4321"); err != nil {
		t.Fatalf("CreatePIN failed: %v", err)
	}
	if got := flow.State(); got != RegistrationActive {
		t.Fatalf("final state = %s", got)
	}
}

func TestRegistrationWithoutTokenRoutesToLogin(t *testing.T) {
	gw := &fakeGateway{
		verifyContactFn: func(context.Context, string, string) (VerifyContactResponse, error) {
			return VerifyContactResponse{}, nil // no auto-session
		},
	}
	orchestrator, flow := submittedFlow(t, gw)

	result, err := flow.VerifyCode(context.Background(), "123456")
	if err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}
	if result.SessionEstablished {
		t.Fatal("expected no session without a token")
	}
	if got := flow.State(); got != RegistrationVerified {
		t.Fatalf("state = %s", got)
	}
	if orchestrator.IsAuthenticated() {
		t.Fatal("orchestrator should hold no session")
	}

	// PIN setup before login fails; after login it succeeds.
	if err := flow.CreatePIN(context.Background(), "4321"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("CreatePIN without session = %v, want ErrNoSession", err)
	}
	mustLogin(t, orchestrator)
	if err := flow.CreatePIN(context.Background(), "4321"); err != nil {
		t.Fatalf("CreatePIN after login failed: %v", err)
	}
	if got := flow.State(); got != RegistrationActive {
		t.Fatalf("final state = %s", got)
	}
}

func TestDraftRequiresExactlyOneChannel(t *testing.T) {
	orchestrator := newTestOrchestrator(t, &fakeGateway{})

	both := validDraft()
	both.Phone = "+4915123456789"
	neither := validDraft()
	neither.Email = ""

	for name, draft := range map[string]RegistrationDraft{"both": both, "neither": neither} {
		flow := orchestrator.NewRegistration()
		if err := flow.Submit(context.Background(), draft); !errors.Is(err, ErrInvalidDraft) {
			t.Errorf("%s channels: Submit = %v, want ErrInvalidDraft", name, err)
		}
		if got := flow.State(); got != RegistrationDrafted {
			t.Errorf("%s channels: state = %s, want drafted", name, got)
		}
	}
}

func TestDraftBusinessRequiresCompanyNumber(t *testing.T) {
	orchestrator := newTestOrchestrator(t, &fakeGateway{})
	flow := orchestrator.NewRegistration()

	draft := validDraft()
	draft.AccountType = AccountBusiness
	if err := flow.Submit(context.Background(), draft); !errors.Is(err, ErrInvalidDraft) {
		t.Fatalf("Submit = %v, want ErrInvalidDraft", err)
	}

	draft.CompanyRegistrationNumber = "HRB 12345"
	if err := flow.Submit(context.Background(), draft); err != nil {
		t.Fatalf("Submit with company number failed: %v", err)
	}
}

func TestSubmitFailureReturnsToDrafted(t *testing.T) {
	gw := &fakeGateway{
		registerFn: func(context.Context, RegisterRequest) error {
			return &BackendRejection{Status: 422, Messages: []string{"username already taken"}}
		},
	}
	orchestrator := newTestOrchestrator(t, gw)
	flow := orchestrator.NewRegistration()

	err := flow.Submit(context.Background(), validDraft())
	var rejection *BackendRejection
	if !errors.As(err, &rejection) {
		t.Fatalf("error type = %T", err)
	}
	if rejection.Messages[0] != "username already taken" {
		t.Fatalf("backend message rewritten: %q", rejection.Messages)
	}
	if got := flow.State(); got != RegistrationDrafted {
		t.Fatalf("state = %s, want drafted", got)
	}

	// The flow is re-enterable after the failure.
	gw.registerFn = nil
	if err := flow.Submit(context.Background(), validDraft()); err != nil {
		t.Fatalf("resubmit failed: %v", err)
	}
}

func TestResendSuppressedDuringCooldown(t *testing.T) {
	gw := &fakeGateway{}
	_, flow := submittedFlow(t, gw)

	if flow.CanResend() {
		t.Fatal("CanResend = true right after submit")
	}
	if remaining := flow.CooldownRemaining(); remaining <= 0 || remaining > 120 {
		t.Fatalf("CooldownRemaining = %d", remaining)
	}

	// Submit started the cooldown; the resend is swallowed without a call.
	if err := flow.ResendCode(context.Background()); err != nil {
		t.Fatalf("ResendCode during cooldown = %v, want nil", err)
	}
	if got := gw.callCount("resend"); got != 0 {
		t.Fatalf("resend reached the gateway %d times during cooldown", got)
	}
}

func TestResendDispatchesWhenCooldownClear(t *testing.T) {
	gw := &fakeGateway{}
	_, flow := submittedFlow(t, gw)

	flow.cooldown.Clear()

	if !flow.CanResend() {
		t.Fatal("CanResend = false with a clear cooldown")
	}
	if err := flow.ResendCode(context.Background()); err != nil {
		t.Fatalf("ResendCode failed: %v", err)
	}
	if got := gw.callCount("resend"); got != 1 {
		t.Fatalf("resend calls = %d", got)
	}
	// A dispatched resend restarts the cooldown.
	if flow.CanResend() {
		t.Fatal("cooldown not restarted after resend")
	}
}

func TestStaleCodeSurfacesAndStateHolds(t *testing.T) {
	gw := &fakeGateway{
		verifyContactFn: func(context.Context, string, string) (VerifyContactResponse, error) {
			return VerifyContactResponse{}, &BackendRejection{Status: 410, Messages: []string{"code superseded"}, Stale: true}
		},
	}
	_, flow := submittedFlow(t, gw)

	_, err := flow.VerifyCode(context.Background(), "111111")
	if !errors.Is(err, ErrStaleCode) {
		t.Fatalf("VerifyCode = %v, want ErrStaleCode", err)
	}
	if got := flow.State(); got != RegistrationAwaitingCode {
		t.Fatalf("state after stale code = %s", got)
	}
	if flow.Identity().Verified {
		t.Fatal("identity marked verified on failure")
	}
}

func TestVerifyCodeRejectsEmptyInput(t *testing.T) {
	_, flow := submittedFlow(t, &fakeGateway{})
	if _, err := flow.VerifyCode(context.Background(), "  "); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("VerifyCode = %v, want ErrInvalidCode", err)
	}
}

func TestVerifyBeforeSubmitIsFlowStateError(t *testing.T) {
	orchestrator := newTestOrchestrator(t, &fakeGateway{})
	flow := orchestrator.NewRegistration()

	if _, err := flow.VerifyCode(context.Background(), "123456"); !errors.Is(err, ErrFlowState) {
		t.Fatalf("VerifyCode from drafted = %v, want ErrFlowState", err)
	}
	if err := flow.ResendCode(context.Background()); !errors.Is(err, ErrFlowState) {
		t.Fatalf("ResendCode from drafted = %v, want ErrFlowState", err)
	}
}

func TestCancelResetsFlowAndDiscardsInFlightResult(t *testing.T) {
	release := make(chan struct{})
	gw := &fakeGateway{
		verifyContactFn: func(context.Context, string, string) (VerifyContactResponse, error) {
			<-release
			return VerifyContactResponse{Token: "tok-late", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	orchestrator, flow := submittedFlow(t, gw)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = flow.VerifyCode(context.Background(), "123456")
	}()

	// Wait for the call to be in flight, then cancel under it.
	waitFor(t, func() bool { return gw.callCount("verify_contact") == 1 })
	flow.Cancel()
	close(release)
	<-done

	if got := flow.State(); got != RegistrationDrafted {
		t.Fatalf("state after cancel = %s", got)
	}
	if orchestrator.IsAuthenticated() {
		t.Fatal("discarded in-flight response still established a session")
	}
	if !flow.Identity().Identifier.IsZero() {
		t.Fatal("identity survived cancel")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
