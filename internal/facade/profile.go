package facade

import (
	"context"
	"net/http"
	"net/url"

	"github.com/MrSnakeDoc/relay/internal/catalog"
	"github.com/MrSnakeDoc/relay/internal/executor"
)

type UserProfile struct {
	UserID          string `json:"user_id,omitempty"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password,omitempty"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	Gender          string `json:"gender,omitempty"` // "M" or "F"
	ImageURL        string `json:"image_url,omitempty"`
	LabURL          string `json:"lab_url,omitempty"`
	IsEmailVerified *bool  `json:"is_email_verified,omitempty"`
}

type RegisterResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Message  string `json:"message"`
}

type EmailVerificationRequest struct {
	Email  string `json:"email"`
	UserID string `json:"user_id"`
}

type EmailVerificationResponse struct {
	Status string `json:"status"`
}

// Availability answers the username and email checks.
type Availability struct {
	Available bool `json:"available"`
}

type PasswordCheckRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type PasswordCheckResponse struct {
	Valid           bool   `json:"valid"`
	UserID          string `json:"user_id,omitempty"`
	Email           string `json:"email,omitempty"`
	IsEmailVerified bool   `json:"is_email_verified,omitempty"`
}

// Profile talks to the user-profile service.
type Profile struct {
	base
}

func NewProfile(deps Deps, svc catalog.Service) *Profile {
	return &Profile{base: newBase(deps, svc, "user profile")}
}

func (p *Profile) Register(ctx context.Context, u UserProfile) (RegisterResponse, error) {
	return call[RegisterResponse](ctx, &p.base, executor.Request{
		Method: http.MethodPost,
		Path:   "/profiles/",
		Body:   u,
	})
}

func (p *Profile) VerifyEmail(ctx context.Context, req EmailVerificationRequest) (EmailVerificationResponse, error) {
	return call[EmailVerificationResponse](ctx, &p.base, executor.Request{
		Method: http.MethodPost,
		Path:   "/verify/" + url.PathEscape(req.UserID) + "/verify_email/",
		Body:   req,
	})
}

func (p *Profile) CheckUsername(ctx context.Context, username string) (Availability, error) {
	return call[Availability](ctx, &p.base, executor.Request{
		Method: http.MethodGet,
		Path:   "/check-username/" + url.PathEscape(username) + "/",
	})
}

func (p *Profile) CheckEmail(ctx context.Context, email string) (Availability, error) {
	return call[Availability](ctx, &p.base, executor.Request{
		Method: http.MethodGet,
		Path:   "/check-email/" + url.PathEscape(email) + "/",
	})
}

func (p *Profile) CheckPassword(ctx context.Context, req PasswordCheckRequest) (PasswordCheckResponse, error) {
	return call[PasswordCheckResponse](ctx, &p.base, executor.Request{
		Method: http.MethodPost,
		Path:   "/check-password/",
		Body:   req,
	})
}

func (p *Profile) GetProfile(ctx context.Context, userID string) (UserProfile, error) {
	return call[UserProfile](ctx, &p.base, executor.Request{
		Method: http.MethodGet,
		Path:   "/profiles/" + url.PathEscape(userID) + "/",
	})
}
