package facade

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/MrSnakeDoc/relay/internal/catalog"
	"github.com/MrSnakeDoc/relay/internal/executor"
	"github.com/MrSnakeDoc/relay/internal/logger"
)

const (
	pathLogin       = "/api/login/"
	pathLogout      = "/api/logout/"
	pathVerifyToken = "/api/verify-token/"
	pathValidate    = "/api/external/tokens/validate/"

	// HeaderUserToken carries the end-user token, separate from the service credential.
	HeaderUserToken = "X-Auth-Token"
)

// Login outcomes callers can branch on. Each wraps the underlying *executor.RequestFailure.
var (
	ErrInvalidCredentials     = errors.New("invalid username or password")
	ErrInvalidRequest         = errors.New("invalid request")
	ErrTemporarilyUnavailable = errors.New("service is temporarily unavailable")
	ErrNetwork                = errors.New("network error")
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is either a session (Token set) or, when RequiresVerification
// is true, a request to verify the account's email first.
type LoginResponse struct {
	Message              string `json:"message"`
	Token                string `json:"token"`
	UserID               string `json:"user_id"`
	ExpiresAt            string `json:"expires_at"`
	RequiresVerification bool   `json:"requires_verification,omitempty"`
	VerificationDomain   string `json:"verification_domain,omitempty"`
	UserProfileDomain    string `json:"user_profile_domain,omitempty"`
	Username             string `json:"username,omitempty"`
	Email                string `json:"email,omitempty"`
}

type LogoutResponse struct {
	Message string `json:"message"`
}

type TokenVerification struct {
	Valid     bool   `json:"valid"`
	UserID    string `json:"user_id"`
	ExpiresAt string `json:"expires_at"`
}

type TokenValidation struct {
	Token    string            `json:"token"`
	UserID   string            `json:"user_id"`
	IsValid  bool              `json:"is_valid"`
	Details  ValidationDetails `json:"validation_details"`
	Metadata TokenMetadata     `json:"metadata"`
}

type ValidationDetails struct {
	Expired         bool            `json:"expired"`
	Active          bool            `json:"active"`
	ChecksPerformed ChecksPerformed `json:"checks_performed"`
	Errors          []string        `json:"errors"`
}

type ChecksPerformed struct {
	Expiry bool `json:"expiry"`
	Active bool `json:"active"`
}

type TokenMetadata struct {
	CreatedAt            string  `json:"created_at"`
	ExpiresAt            string  `json:"expires_at"`
	IPAddress            string  `json:"ip_address,omitempty"`
	UserAgent            string  `json:"user_agent,omitempty"`
	TimeRemainingSeconds float64 `json:"time_remaining_seconds"`
	TimeRemainingDays    float64 `json:"time_remaining_days"`
	AgeDays              float64 `json:"age_days"`
}

// OK reports a valid token with no reported check errors.
func (v TokenValidation) OK() bool {
	return v.IsValid && len(v.Details.Errors) == 0
}

type validateRequest struct {
	Token       string `json:"token"`
	CheckExpiry bool   `json:"check_expiry"`
	CheckActive bool   `json:"check_active"`
}

type verifyRequest struct {
	Token  string `json:"token"`
	UserID string `json:"user_id,omitempty"`
}

// Auth talks to the authentication service.
type Auth struct {
	base
}

func NewAuth(deps Deps, svc catalog.Service) *Auth {
	return &Auth{base: newBase(deps, svc, "authentication")}
}

// Login exchanges credentials for a token. A 403 carrying
// requires_verification is returned as a result, not an error.
func (a *Auth) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	a.log.Info("login attempt", logger.String("username", req.Username))

	resp, err := call[LoginResponse](ctx, &a.base, executor.Request{
		Method: http.MethodPost,
		Path:   pathLogin,
		Body:   req,
	})
	if err == nil {
		return resp, nil
	}

	f, ok := executor.AsFailure(err)
	if !ok {
		return LoginResponse{}, err
	}

	switch f.Status {
	case http.StatusForbidden:
		var pending LoginResponse
		if f.DecodeBody(&pending) == nil && pending.RequiresVerification {
			a.log.Info("login requires email verification", logger.String("user_id", pending.UserID))
			return pending, nil
		}
		return LoginResponse{}, err
	case http.StatusUnauthorized:
		return LoginResponse{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	case http.StatusBadRequest:
		return LoginResponse{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	case http.StatusServiceUnavailable:
		return LoginResponse{}, fmt.Errorf("%w: %w", ErrTemporarilyUnavailable, err)
	case 0:
		return LoginResponse{}, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	return LoginResponse{}, err
}

// Logout revokes token remotely. Callers clear their local state whatever the outcome.
func (a *Auth) Logout(ctx context.Context, token string) (LogoutResponse, error) {
	return call[LogoutResponse](ctx, &a.base, executor.Request{
		Method: http.MethodPost,
		Path:   pathLogout,
		Body:   verifyRequest{Token: token},
		Header: http.Header{HeaderUserToken: []string{token}},
	})
}

// VerifyToken checks token with the basic endpoint. userID is optional.
func (a *Auth) VerifyToken(ctx context.Context, token, userID string) (TokenVerification, error) {
	return call[TokenVerification](ctx, &a.base, executor.Request{
		Method: http.MethodPost,
		Path:   pathVerifyToken,
		Body:   verifyRequest{Token: token, UserID: userID},
	})
}

// ValidateToken tries the detailed validation endpoint by POST, then by GET
// when POST is not routed (404/405), then falls back to VerifyToken and
// synthesizes a validation from its answer.
func (a *Auth) ValidateToken(ctx context.Context, token string) (TokenValidation, error) {
	v, err := call[TokenValidation](ctx, &a.base, executor.Request{
		Method: http.MethodPost,
		Path:   pathValidate,
		Body:   validateRequest{Token: token, CheckExpiry: true, CheckActive: true},
	})
	if err == nil {
		return v, nil
	}
	if status := executor.StatusOf(err); status != http.StatusNotFound && status != http.StatusMethodNotAllowed {
		return TokenValidation{}, err
	}

	a.log.Warn("POST validation not available, trying GET", logger.Error(err))
	query := url.Values{
		"token":        {token},
		"check_expiry": {"true"},
		"check_active": {"true"},
	}
	v, err = call[TokenValidation](ctx, &a.base, executor.Request{
		Method: http.MethodGet,
		Path:   pathValidate + "?" + query.Encode(),
	})
	if err == nil {
		return v, nil
	}

	a.log.Warn("external validation failed, falling back to verify-token", logger.Error(err))
	ver, err := a.VerifyToken(ctx, token, "")
	if err != nil {
		return TokenValidation{}, err
	}
	return a.synthesize(token, ver), nil
}

func (a *Auth) synthesize(token string, ver TokenVerification) TokenValidation {
	errs := []string{}
	if !ver.Valid {
		errs = append(errs, "Token expired or invalid")
	}
	return TokenValidation{
		Token:   token,
		UserID:  ver.UserID,
		IsValid: ver.Valid,
		Details: ValidationDetails{
			Expired:         !ver.Valid,
			Active:          ver.Valid,
			ChecksPerformed: ChecksPerformed{Expiry: true, Active: true},
			Errors:          errs,
		},
		Metadata: TokenMetadata{
			CreatedAt: a.deps.Now().UTC().Format(time.RFC3339),
			ExpiresAt: ver.ExpiresAt,
		},
	}
}
