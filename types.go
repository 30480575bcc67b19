package authflow

import (
	"context"
	"time"

	"github.com/nimbuspay/authflow/identifier"
	"github.com/nimbuspay/authflow/session"
)

// AccountType selects the registration shape.
type AccountType uint8

const (
	// AccountPersonal is a personal account.
	AccountPersonal AccountType = iota
	// AccountBusiness is a business account; it additionally requires a
	// company registration number.
	AccountBusiness
)

// Identity is a verified-or-not contact address for an account. Verified
// flips exactly once, on successful code verification, and never reverts.
type Identity struct {
	Identifier identifier.Identifier
	Verified   bool
}

// RegistrationDraft is the transient input for account creation. It lives
// only between submit and contact verification; exactly one of Email or
// Phone must be populated.
type RegistrationDraft struct {
	Username    string
	FullName    string
	Email       string
	Phone       string
	Password    string
	DateOfBirth string
	AccountType AccountType
	// CompanyRegistrationNumber is required for business accounts.
	CompanyRegistrationNumber string
	Currency                  string
}

// DeviceMetadata is opaque pass-through data for backend risk scoring. It
// is attached to every login-shaped call and never used in client-side
// decisions.
type DeviceMetadata struct {
	IPAddress       string
	DeviceName      string
	OperatingSystem string
	DeviceID        string
}

// BiometricCredential describes one enrolled public-key credential. Counter
// is the last authenticator counter the client has seen; it must only grow.
type BiometricCredential struct {
	CredentialID string
	PublicKey    string
	Counter      int64
	DeviceID     string
}

// BiometricAssertion is the authenticator's signed answer to a challenge.
type BiometricAssertion struct {
	CredentialID      string
	AuthenticatorData string
	ClientDataJSON    string
	Signature         string
	UserHandle        string
	Counter           int64
}

// Asserter produces an authenticator assertion for a challenge. It is the
// seam to the platform's public-key credential subsystem; the orchestrator
// never sees the private key.
type Asserter interface {
	Assert(ctx context.Context, challenge string) (BiometricAssertion, error)
}

// Profile is the backend's view of the account holder, cached on the
// orchestrator between reads.
type Profile struct {
	UserID      string
	Username    string
	FullName    string
	Identifier  string
	AccountType AccountType
	Currency    string
	PINSet      bool
}

// LoginResult is the convergence point of all login entry points.
type LoginResult struct {
	// TwoFactorRequired reports that the backend demands a second factor
	// before the session is trusted; call [Orchestrator.ConfirmTwoFactor].
	TwoFactorRequired bool
	Session           *session.Session
}

// VerifyResult reports the outcome of contact verification.
type VerifyResult struct {
	// SessionEstablished is true when the backend returned a session token
	// with the verification response (the skip-login path). When false the
	// caller must route to explicit login.
	SessionEstablished bool
	Session            *session.Session
}

// RateLimitStatus is the caller-facing view of the local attempt budget.
type RateLimitStatus struct {
	Allowed           bool
	RemainingAttempts int
	LockoutMinutes    int
}

// RegisterRequest is the wire shape for account creation.
type RegisterRequest struct {
	Username                  string
	FullName                  string
	Email                     string
	PhoneNumber               string
	Password                  string
	DateOfBirth               string
	Currency                  string
	AccountType               AccountType
	CompanyRegistrationNumber string
}

// LoginResponse is the backend's answer to any session-issuing call.
type LoginResponse struct {
	Token string
	// ExpiresAt is zero when the backend communicates expiry only through
	// the token itself.
	ExpiresAt         time.Time
	UserID            string
	TwoFactorRequired bool
}

// VerifyContactResponse is the backend's answer to contact verification.
// Token is empty when the backend does not auto-establish a session.
type VerifyContactResponse struct {
	Token     string
	ExpiresAt time.Time
	UserID    string
}

// Gateway is the REST backend as the orchestrator sees it. Implementations
// return *BackendRejection for non-success responses and *NetworkError for
// transport failures, and must honor context cancellation.
type Gateway interface {
	Register(ctx context.Context, req RegisterRequest) error
	VerifyContact(ctx context.Context, identifier, code string) (VerifyContactResponse, error)
	ResendContactCode(ctx context.Context, identifier string) error

	LoginPassword(ctx context.Context, identifier, password string, device DeviceMetadata) (LoginResponse, error)
	LoginPasscode(ctx context.Context, identifier, passcode string, device DeviceMetadata) (LoginResponse, error)
	VerifyTwoFactor(ctx context.Context, email, code string) (LoginResponse, error)

	ForgotPassword(ctx context.Context, email string) error
	VerifyResetCode(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, email, password, confirmPassword string) error

	BiometricChallenge(ctx context.Context, credentialID string) (string, error)
	BiometricEnroll(ctx context.Context, userID string, credential BiometricCredential) error
	BiometricLogin(ctx context.Context, assertion BiometricAssertion, device DeviceMetadata) (LoginResponse, error)
	BiometricDisable(ctx context.Context, credentialID string) error

	CreateTransactionPIN(ctx context.Context, pin string) error
	SetPasscode(ctx context.Context, passcode string) error
	FetchProfile(ctx context.Context) (Profile, error)
}
