package httpgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nimbuspay/authflow"
)

const (
	pathRegister       = "/v1/accounts/register"
	pathVerifyContact  = "/v1/accounts/verify-contact"
	pathResendCode     = "/v1/accounts/resend-code"
	pathLoginPassword  = "/v1/auth/login"
	pathLoginPasscode  = "/v1/auth/passcode-login"
	pathVerify2FA      = "/v1/auth/2fa/verify"
	pathForgotPassword = "/v1/auth/forgot-password"
	pathVerifyReset    = "/v1/auth/verify-reset-code"
	pathResetPassword  = "/v1/auth/reset-password"
	pathBioChallenge   = "/v1/biometrics/challenge"
	pathBioEnroll      = "/v1/biometrics/enroll"
	pathBioLogin       = "/v1/biometrics/login"
	pathBioDisable     = "/v1/biometrics/disable"
	pathTransactionPIN = "/v1/accounts/transaction-pin"
	pathPasscode       = "/v1/accounts/passcode"
	pathProfile        = "/v1/accounts/profile"
)

// TokenSource supplies the bearer token for authenticated endpoints. An
// empty token means the request goes out unauthenticated and the backend
// rejects it; [authflow.Orchestrator.Token] satisfies this interface
// through a small adapter in the host.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to [TokenSource].
type TokenFunc func() string

// Token returns f().
func (f TokenFunc) Token() string { return f() }

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the underlying [http.Client].
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTokenSource sets the bearer token source for authenticated calls.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// Client is an [authflow.Gateway] over the REST API.
type Client struct {
	baseURL   string
	http      *http.Client
	tokens    TokenSource
	userAgent string
}

var _ authflow.Gateway = (*Client)(nil)

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 30 * time.Second},
		userAgent: "nimbuspay-authflow/1",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

/* ==== wire shapes ==== */

type errorBody struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

type sessionBody struct {
	Token             string `json:"token"`
	ExpiresAt         int64  `json:"expires_at"`
	UserID            string `json:"user_id"`
	TwoFactorRequired bool   `json:"two_factor_required"`
}

type deviceBody struct {
	IPAddress       string `json:"ip_address,omitempty"`
	DeviceName      string `json:"device_name,omitempty"`
	OperatingSystem string `json:"operating_system,omitempty"`
	DeviceID        string `json:"device_id,omitempty"`
}

func deviceWire(d authflow.DeviceMetadata) deviceBody {
	return deviceBody{
		IPAddress:       d.IPAddress,
		DeviceName:      d.DeviceName,
		OperatingSystem: d.OperatingSystem,
		DeviceID:        d.DeviceID,
	}
}

func loginResponse(b sessionBody) authflow.LoginResponse {
	resp := authflow.LoginResponse{
		Token:             b.Token,
		UserID:            b.UserID,
		TwoFactorRequired: b.TwoFactorRequired,
	}
	if b.ExpiresAt > 0 {
		resp.ExpiresAt = time.Unix(b.ExpiresAt, 0)
	}
	return resp
}

/* ==== gateway ==== */

// Register submits a new account draft.
func (c *Client) Register(ctx context.Context, req authflow.RegisterRequest) error {
	accountType := "personal"
	if req.AccountType == authflow.AccountBusiness {
		accountType = "business"
	}
	body := map[string]any{
		"username":      req.Username,
		"full_name":     req.FullName,
		"password":      req.Password,
		"date_of_birth": req.DateOfBirth,
		"currency":      req.Currency,
		"account_type":  accountType,
	}
	if req.Email != "" {
		body["email"] = req.Email
	}
	if req.PhoneNumber != "" {
		body["phone_number"] = req.PhoneNumber
	}
	if req.CompanyRegistrationNumber != "" {
		body["company_registration_number"] = req.CompanyRegistrationNumber
	}
	return c.do(ctx, "register", http.MethodPost, pathRegister, body, nil, false)
}

// VerifyContact submits a contact one-time code.
func (c *Client) VerifyContact(ctx context.Context, identifier, code string) (authflow.VerifyContactResponse, error) {
	var out sessionBody
	err := c.do(ctx, "verify contact", http.MethodPost, pathVerifyContact, map[string]any{
		"identifier": identifier,
		"code":       code,
	}, &out, false)
	if err != nil {
		return authflow.VerifyContactResponse{}, err
	}
	resp := authflow.VerifyContactResponse{Token: out.Token, UserID: out.UserID}
	if out.ExpiresAt > 0 {
		resp.ExpiresAt = time.Unix(out.ExpiresAt, 0)
	}
	return resp, nil
}

// ResendContactCode requests a fresh contact code.
func (c *Client) ResendContactCode(ctx context.Context, identifier string) error {
	return c.do(ctx, "resend code", http.MethodPost, pathResendCode, map[string]any{
		"identifier": identifier,
	}, nil, false)
}

// LoginPassword performs a password login.
func (c *Client) LoginPassword(ctx context.Context, identifier, password string, device authflow.DeviceMetadata) (authflow.LoginResponse, error) {
	var out sessionBody
	err := c.do(ctx, "password login", http.MethodPost, pathLoginPassword, map[string]any{
		"identifier": identifier,
		"password":   password,
		"device":     deviceWire(device),
	}, &out, false)
	if err != nil {
		return authflow.LoginResponse{}, err
	}
	return loginResponse(out), nil
}

// LoginPasscode performs a quick passcode login.
func (c *Client) LoginPasscode(ctx context.Context, identifier, passcode string, device authflow.DeviceMetadata) (authflow.LoginResponse, error) {
	var out sessionBody
	err := c.do(ctx, "passcode login", http.MethodPost, pathLoginPasscode, map[string]any{
		"identifier": identifier,
		"passcode":   passcode,
		"device":     deviceWire(device),
	}, &out, false)
	if err != nil {
		return authflow.LoginResponse{}, err
	}
	return loginResponse(out), nil
}

// VerifyTwoFactor confirms a second-factor code.
func (c *Client) VerifyTwoFactor(ctx context.Context, email, code string) (authflow.LoginResponse, error) {
	var out sessionBody
	err := c.do(ctx, "two-factor verify", http.MethodPost, pathVerify2FA, map[string]any{
		"email": email,
		"code":  code,
	}, &out, false)
	if err != nil {
		return authflow.LoginResponse{}, err
	}
	return loginResponse(out), nil
}

// ForgotPassword requests a reset code by email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, "forgot password", http.MethodPost, pathForgotPassword, map[string]any{
		"email": email,
	}, nil, false)
}

// VerifyResetCode confirms a reset code.
func (c *Client) VerifyResetCode(ctx context.Context, email, code string) error {
	return c.do(ctx, "verify reset code", http.MethodPost, pathVerifyReset, map[string]any{
		"email": email,
		"code":  code,
	}, nil, false)
}

// ResetPassword sets a new password after code verification.
func (c *Client) ResetPassword(ctx context.Context, email, password, confirmPassword string) error {
	return c.do(ctx, "reset password", http.MethodPost, pathResetPassword, map[string]any{
		"email":            email,
		"password":         password,
		"confirm_password": confirmPassword,
	}, nil, false)
}

// BiometricChallenge fetches a server challenge for a credential.
func (c *Client) BiometricChallenge(ctx context.Context, credentialID string) (string, error) {
	var out struct {
		Challenge string `json:"challenge"`
	}
	err := c.do(ctx, "biometric challenge", http.MethodPost, pathBioChallenge, map[string]any{
		"credential_id": credentialID,
	}, &out, false)
	if err != nil {
		return "", err
	}
	return out.Challenge, nil
}

// BiometricEnroll registers a credential for a user.
func (c *Client) BiometricEnroll(ctx context.Context, userID string, credential authflow.BiometricCredential) error {
	return c.do(ctx, "biometric enroll", http.MethodPost, pathBioEnroll, map[string]any{
		"user_id":       userID,
		"credential_id": credential.CredentialID,
		"public_key":    credential.PublicKey,
		"counter":       credential.Counter,
		"device_id":     credential.DeviceID,
	}, nil, true)
}

// BiometricLogin submits a signed assertion.
func (c *Client) BiometricLogin(ctx context.Context, assertion authflow.BiometricAssertion, device authflow.DeviceMetadata) (authflow.LoginResponse, error) {
	var out sessionBody
	err := c.do(ctx, "biometric login", http.MethodPost, pathBioLogin, map[string]any{
		"credential_id":      assertion.CredentialID,
		"authenticator_data": assertion.AuthenticatorData,
		"client_data_json":   assertion.ClientDataJSON,
		"signature":          assertion.Signature,
		"user_handle":        assertion.UserHandle,
		"counter":            assertion.Counter,
		"device":             deviceWire(device),
	}, &out, false)
	if err != nil {
		return authflow.LoginResponse{}, err
	}
	return loginResponse(out), nil
}

// BiometricDisable revokes a credential.
func (c *Client) BiometricDisable(ctx context.Context, credentialID string) error {
	return c.do(ctx, "biometric disable", http.MethodPost, pathBioDisable, map[string]any{
		"credential_id": credentialID,
	}, nil, true)
}

// CreateTransactionPIN sets the transaction PIN.
func (c *Client) CreateTransactionPIN(ctx context.Context, pin string) error {
	return c.do(ctx, "transaction pin", http.MethodPost, pathTransactionPIN, map[string]any{
		"pin": pin,
	}, nil, true)
}

// SetPasscode sets the quick-login passcode.
func (c *Client) SetPasscode(ctx context.Context, passcode string) error {
	return c.do(ctx, "set passcode", http.MethodPost, pathPasscode, map[string]any{
		"passcode": passcode,
	}, nil, true)
}

// FetchProfile reads the authenticated user's profile.
func (c *Client) FetchProfile(ctx context.Context) (authflow.Profile, error) {
	var out struct {
		UserID      string `json:"user_id"`
		Username    string `json:"username"`
		FullName    string `json:"full_name"`
		Identifier  string `json:"identifier"`
		AccountType string `json:"account_type"`
		Currency    string `json:"currency"`
		PINSet      bool   `json:"pin_set"`
	}
	if err := c.do(ctx, "fetch profile", http.MethodGet, pathProfile, nil, &out, true); err != nil {
		return authflow.Profile{}, err
	}
	profile := authflow.Profile{
		UserID:     out.UserID,
		Username:   out.Username,
		FullName:   out.FullName,
		Identifier: out.Identifier,
		Currency:   out.Currency,
		PINSet:     out.PINSet,
	}
	if out.AccountType == "business" {
		profile.AccountType = authflow.AccountBusiness
	}
	return profile, nil
}

/* ==== transport ==== */

func (c *Client) do(ctx context.Context, op, method, path string, body any, out any, authed bool) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed && c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &authflow.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &authflow.NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return rejection(resp.StatusCode, payload)
	}

	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return &authflow.NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

// rejection maps a non-success response to a BackendRejection, preserving
// the backend's own messages. 410 Gone marks a superseded one-time code.
func rejection(status int, payload []byte) *authflow.BackendRejection {
	r := &authflow.BackendRejection{
		Status: status,
		Stale:  status == http.StatusGone,
	}

	var body errorBody
	if err := json.Unmarshal(payload, &body); err == nil {
		if body.Message != "" {
			r.Messages = append(r.Messages, body.Message)
		}
		r.Messages = append(r.Messages, body.Errors...)
	}
	if len(r.Messages) == 0 && len(bytes.TrimSpace(payload)) > 0 {
		r.Messages = []string{string(bytes.TrimSpace(payload))}
	}
	return r
}
