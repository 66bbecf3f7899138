package redis

import (
	"context"

	"github.com/MrSnakeDoc/relay/internal/facade"
)

type noopAuth struct{}

func (noopAuth) Login(context.Context, facade.LoginRequest) (facade.LoginResponse, error) {
	return facade.LoginResponse{}, nil
}

func (noopAuth) Logout(context.Context, string) (facade.LogoutResponse, error) {
	return facade.LogoutResponse{}, nil
}

func (noopAuth) ValidateToken(context.Context, string) (facade.TokenValidation, error) {
	return facade.TokenValidation{}, nil
}

type noopProfile struct{}

func (noopProfile) Register(context.Context, facade.UserProfile) (facade.RegisterResponse, error) {
	return facade.RegisterResponse{}, nil
}

func (noopProfile) VerifyEmail(context.Context, facade.EmailVerificationRequest) (facade.EmailVerificationResponse, error) {
	return facade.EmailVerificationResponse{}, nil
}

func (noopProfile) GetProfile(context.Context, string) (facade.UserProfile, error) {
	return facade.UserProfile{}, nil
}

type noopOTP struct{}

func (noopOTP) Generate(context.Context, facade.OTPRequest) (facade.OTPGeneration, error) {
	return facade.OTPGeneration{}, nil
}

func (noopOTP) Resend(context.Context, facade.OTPRequest) (facade.OTPGeneration, error) {
	return facade.OTPGeneration{}, nil
}

func (noopOTP) Verify(context.Context, facade.OTPVerificationRequest) (facade.OTPVerification, error) {
	return facade.OTPVerification{}, nil
}
