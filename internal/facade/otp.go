package facade

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/relay/internal/catalog"
	"github.com/MrSnakeDoc/relay/internal/executor"
)

// OTPRequest is used for both generation and resend.
type OTPRequest struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type OTPGeneration struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
	EmailSent *bool  `json:"email_sent,omitempty"`
	Warning   string `json:"warning,omitempty"`
}

type OTPVerificationRequest struct {
	UserID string `json:"user_id"`
	Code   string `json:"code"`
}

type OTPVerification struct {
	Status         string `json:"status"`
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	EmailVerified  bool   `json:"email_verified"`
	VerifiedDomain string `json:"verified_domain,omitempty"`
	Warning        string `json:"warning,omitempty"`
}

// OTP talks to the one-time-password service.
type OTP struct {
	base
}

func NewOTP(deps Deps, svc catalog.Service) *OTP {
	return &OTP{base: newBase(deps, svc, "OTP")}
}

func (o *OTP) Generate(ctx context.Context, req OTPRequest) (OTPGeneration, error) {
	return o.post(ctx, "/generate/", req)
}

func (o *OTP) Resend(ctx context.Context, req OTPRequest) (OTPGeneration, error) {
	return o.post(ctx, "/resend/", req)
}

func (o *OTP) Verify(ctx context.Context, req OTPVerificationRequest) (OTPVerification, error) {
	return call[OTPVerification](ctx, &o.base, executor.Request{
		Method: http.MethodPost,
		Path:   "/verify/",
		Body:   req,
	})
}

func (o *OTP) post(ctx context.Context, path string, req OTPRequest) (OTPGeneration, error) {
	return call[OTPGeneration](ctx, &o.base, executor.Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   req,
	})
}
