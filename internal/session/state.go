// Package session tracks who the client is acting for. State moves only on
// login, registration, verification and logout; there are no loose flags.
package session

import "fmt"

type Kind int

const (
	KindAnonymous Kind = iota
	KindPendingVerification
	KindAuthenticated
)

func (k Kind) String() string {
	switch k {
	case KindAnonymous:
		return "anonymous"
	case KindPendingVerification:
		return "pending_verification"
	case KindAuthenticated:
		return "authenticated"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// State is one of Anonymous, PendingVerification or Authenticated.
type State interface {
	Kind() Kind
	isState()
}

type Anonymous struct{}

// PendingVerification is an account that exists but must confirm its email
// before it can hold a session.
type PendingVerification struct {
	UserID  string
	Context Verification
}

// Verification is what the OTP and email flows need to carry on.
type Verification struct {
	Username           string `json:"username,omitempty"`
	Email              string `json:"email,omitempty"`
	VerificationDomain string `json:"verification_domain,omitempty"`
	UserProfileDomain  string `json:"user_profile_domain,omitempty"`
}

type Authenticated struct {
	User      User
	Token     string
	ExpiresAt string
}

// User is the persisted user record.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

func (Anonymous) Kind() Kind           { return KindAnonymous }
func (PendingVerification) Kind() Kind { return KindPendingVerification }
func (Authenticated) Kind() Kind       { return KindAuthenticated }

func (Anonymous) isState()           {}
func (PendingVerification) isState() {}
func (Authenticated) isState()       {}
