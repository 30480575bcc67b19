package httpgateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/nimbuspay/authflow"
)

func TestLoginPasswordDecodesSession(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != pathLoginPassword {
			t.Errorf("path = %q, want %q", r.URL.Path, pathLoginPassword)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token":"tok-1","user_id":"u1","two_factor_required":true,"expires_at":` +
			strconv.FormatInt(expiry, 10) + `}`))
	}))
	defer srv.Close()

	client := New(srv.URL)
	resp, err := client.LoginPassword(context.Background(), "a@b.com", "secret", authflow.DeviceMetadata{})
	if err != nil {
		t.Fatalf("LoginPassword: %v", err)
	}
	if resp.Token != "tok-1" || resp.UserID != "u1" || !resp.TwoFactorRequired {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.ExpiresAt.Unix() != expiry {
		t.Fatalf("ExpiresAt = %v, want unix %d", resp.ExpiresAt, expiry)
	}
}

func TestRejectionCarriesBackendMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"username already taken","errors":["password too weak"]}`))
	}))
	defer srv.Close()

	client := New(srv.URL)
	err := client.Register(context.Background(), authflow.RegisterRequest{Username: "x"})

	var rejection *authflow.BackendRejection
	if !errors.As(err, &rejection) {
		t.Fatalf("error type = %T, want *BackendRejection", err)
	}
	if rejection.Status != http.StatusUnprocessableEntity {
		t.Errorf("Status = %d", rejection.Status)
	}
	if len(rejection.Messages) != 2 ||
		rejection.Messages[0] != "username already taken" ||
		rejection.Messages[1] != "password too weak" {
		t.Errorf("Messages = %q", rejection.Messages)
	}
	if rejection.Stale {
		t.Error("Stale = true for a 422")
	}
}

func TestGoneMarksStaleCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
		w.Write([]byte(`{"message":"code superseded"}`))
	}))
	defer srv.Close()

	client := New(srv.URL)
	_, err := client.VerifyContact(context.Background(), "a@b.com", "111111")
	if !errors.Is(err, authflow.ErrStaleCode) {
		t.Fatalf("errors.Is(err, ErrStaleCode) = false, err = %v", err)
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse connections

	client := New(srv.URL)
	err := client.ForgotPassword(context.Background(), "a@b.com")

	var netErr *authflow.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("error type = %T, want *NetworkError", err)
	}
	if netErr.Op != "forgot password" {
		t.Errorf("Op = %q", netErr.Op)
	}
}

func TestAuthenticatedCallSendsBearer(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := New(srv.URL, WithTokenSource(TokenFunc(func() string { return "tok-9" })))
	if err := client.SetPasscode(context.Background(), "1234"); err != nil {
		t.Fatalf("SetPasscode: %v", err)
	}
	if got != "Bearer tok-9" {
		t.Fatalf("Authorization = %q", got)
	}
}

func TestFetchProfileMapsAccountType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s", r.Method)
		}
		w.Write([]byte(`{"user_id":"u1","username":"acme","account_type":"business","currency":"EUR","pin_set":true}`))
	}))
	defer srv.Close()

	client := New(srv.URL, WithTokenSource(TokenFunc(func() string { return "tok" })))
	profile, err := client.FetchProfile(context.Background())
	if err != nil {
		t.Fatalf("FetchProfile: %v", err)
	}
	if profile.AccountType != authflow.AccountBusiness {
		t.Errorf("AccountType = %v", profile.AccountType)
	}
	if !profile.PINSet || profile.Currency != "EUR" {
		t.Errorf("profile = %+v", profile)
	}
}

func TestNonJSONErrorBodySurvivesVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	client := New(srv.URL)
	err := client.ResendContactCode(context.Background(), "a@b.com")

	var rejection *authflow.BackendRejection
	if !errors.As(err, &rejection) {
		t.Fatalf("error type = %T", err)
	}
	if len(rejection.Messages) != 1 || rejection.Messages[0] != "upstream unavailable" {
		t.Errorf("Messages = %q", rejection.Messages)
	}
}
