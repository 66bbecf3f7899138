package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/relay/internal/facade"
)

type fakeAuth struct {
	login     facade.LoginResponse
	loginErr  error
	logoutErr error
	validate  facade.TokenValidation
	valErr    error

	logouts     []string
	validations int
}

func (f *fakeAuth) Login(context.Context, facade.LoginRequest) (facade.LoginResponse, error) {
	return f.login, f.loginErr
}

func (f *fakeAuth) Logout(_ context.Context, token string) (facade.LogoutResponse, error) {
	f.logouts = append(f.logouts, token)
	if f.logoutErr != nil {
		return facade.LogoutResponse{}, f.logoutErr
	}
	return facade.LogoutResponse{Message: "Successfully logged out"}, nil
}

func (f *fakeAuth) ValidateToken(context.Context, string) (facade.TokenValidation, error) {
	f.validations++
	return f.validate, f.valErr
}

type fakeProfile struct {
	register   facade.RegisterResponse
	err        error
	verified   []facade.EmailVerificationRequest
	profile    facade.UserProfile
	profileErr error
	lookups    []string
}

func (f *fakeProfile) Register(context.Context, facade.UserProfile) (facade.RegisterResponse, error) {
	return f.register, f.err
}

func (f *fakeProfile) VerifyEmail(_ context.Context, req facade.EmailVerificationRequest) (facade.EmailVerificationResponse, error) {
	f.verified = append(f.verified, req)
	return facade.EmailVerificationResponse{Status: "verified"}, f.err
}

func (f *fakeProfile) GetProfile(_ context.Context, userID string) (facade.UserProfile, error) {
	f.lookups = append(f.lookups, userID)
	return f.profile, f.profileErr
}

type fakeOTP struct {
	verify facade.OTPVerification
	err    error
	calls  int
}

func (f *fakeOTP) Generate(context.Context, facade.OTPRequest) (facade.OTPGeneration, error) {
	f.calls++
	return facade.OTPGeneration{UserID: "42"}, f.err
}

func (f *fakeOTP) Resend(context.Context, facade.OTPRequest) (facade.OTPGeneration, error) {
	f.calls++
	return facade.OTPGeneration{UserID: "42"}, f.err
}

func (f *fakeOTP) Verify(context.Context, facade.OTPVerificationRequest) (facade.OTPVerification, error) {
	f.calls++
	return f.verify, f.err
}

type countingInvalidator struct{ n int }

func (c *countingInvalidator) InvalidateAll() { c.n++ }

type harness struct {
	auth    *fakeAuth
	profile *fakeProfile
	otp     *fakeOTP
	store   *MemoryStore
	inv     *countingInvalidator
	now     time.Time
	m       *Manager
}

func newHarness() *harness {
	h := &harness{
		auth:    &fakeAuth{},
		profile: &fakeProfile{},
		otp:     &fakeOTP{},
		store:   NewMemoryStore(),
		inv:     &countingInvalidator{},
		now:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	h.m = NewManager(Options{
		Auth:     h.auth,
		Profile:  h.profile,
		OTP:      h.otp,
		Store:    h.store,
		Replicas: h.inv,
		Now:      func() time.Time { return h.now },
	})
	return h
}

func (h *harness) seedSession(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.store.SetToken(ctx, "tok"))
	require.NoError(t, h.store.SetUser(ctx, User{ID: "42", Username: "alice"}))
}

func TestManager_StartsAnonymous(t *testing.T) {
	h := newHarness()
	assert.Equal(t, KindAnonymous, h.m.State().Kind())
}

func TestManager_Restore(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	s, err := h.m.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, Anonymous{}, s)

	require.NoError(t, h.store.SetToken(ctx, "tok"))
	s, err = h.m.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, KindAnonymous, s.Kind(), "a token without a user record is not a session")

	require.NoError(t, h.store.SetUser(ctx, User{ID: "42", ExpiresAt: "2025-04-01"}))
	s, err = h.m.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, Authenticated{User: User{ID: "42", ExpiresAt: "2025-04-01"}, Token: "tok", ExpiresAt: "2025-04-01"}, s)
}

func TestManager_LoginAuthenticated(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.auth.login = facade.LoginResponse{Token: "tok", UserID: "42", Username: "alice", ExpiresAt: "2025-04-01"}

	_, err := h.m.Login(ctx, facade.LoginRequest{Username: "alice", Password: "x"})
	require.NoError(t, err)

	assert.Equal(t, 1, h.inv.n, "login must start from fresh replica sets")
	a, ok := h.m.State().(Authenticated)
	require.True(t, ok)
	assert.Equal(t, "tok", a.Token)
	assert.Equal(t, "alice", a.User.Username)

	token, _ := h.store.Token(ctx)
	assert.Equal(t, "tok", token)
	user, _ := h.store.User(ctx)
	require.NotNil(t, user)
	assert.Equal(t, "42", user.ID)
}

func TestManager_LoginRequiresVerification(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.auth.login = facade.LoginResponse{
		UserID:               "42",
		Email:                "alice@example.com",
		RequiresVerification: true,
		VerificationDomain:   "https://otp.example.com",
	}

	_, err := h.m.Login(ctx, facade.LoginRequest{Username: "alice"})
	require.NoError(t, err)

	assert.Equal(t, PendingVerification{
		UserID: "42",
		Context: Verification{
			Username:           "alice",
			Email:              "alice@example.com",
			VerificationDomain: "https://otp.example.com",
		},
	}, h.m.State())
	token, _ := h.store.Token(ctx)
	assert.Empty(t, token)
}

func TestManager_LoginFailureKeepsState(t *testing.T) {
	h := newHarness()
	h.auth.loginErr = fmt.Errorf("%w: boom", facade.ErrInvalidCredentials)

	_, err := h.m.Login(context.Background(), facade.LoginRequest{})
	assert.ErrorIs(t, err, facade.ErrInvalidCredentials)
	assert.Equal(t, KindAnonymous, h.m.State().Kind())
}

func TestManager_LoginWithoutToken(t *testing.T) {
	h := newHarness()
	h.auth.login = facade.LoginResponse{UserID: "42"}

	_, err := h.m.Login(context.Background(), facade.LoginRequest{})
	assert.ErrorIs(t, err, ErrNoToken)
	assert.Equal(t, KindAnonymous, h.m.State().Kind())
}

func TestManager_RegisterThenVerifyOTP(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.profile.register = facade.RegisterResponse{UserID: "42", Username: "alice"}

	_, err := h.m.Register(ctx, facade.UserProfile{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, PendingVerification{UserID: "42", Context: Verification{Username: "alice", Email: "alice@example.com"}}, h.m.State())

	_, err = h.m.GenerateOTP(ctx, facade.OTPRequest{UserID: "42"})
	require.NoError(t, err)
	_, err = h.m.ResendOTP(ctx, facade.OTPRequest{UserID: "42"})
	require.NoError(t, err)
	assert.Equal(t, KindPendingVerification, h.m.State().Kind(), "issuing codes does not change state")

	h.otp.verify = facade.OTPVerification{EmailVerified: false}
	_, err = h.m.VerifyOTP(ctx, facade.OTPVerificationRequest{UserID: "42", Code: "000000"})
	require.NoError(t, err)
	assert.Equal(t, KindPendingVerification, h.m.State().Kind())

	h.otp.verify = facade.OTPVerification{EmailVerified: true}
	_, err = h.m.VerifyOTP(ctx, facade.OTPVerificationRequest{UserID: "42", Code: "123456"})
	require.NoError(t, err)
	assert.Equal(t, KindAnonymous, h.m.State().Kind())

	assert.Equal(t, 5, h.inv.n)
}

func TestManager_VerifyOTPResumesStoredSession(t *testing.T) {
	verified, unverified := true, false

	tests := []struct {
		name        string
		profile     facade.UserProfile
		profileErr  error
		validate    facade.TokenValidation
		valErr      error
		want        Kind
		validations int
		storeKept   bool
	}{
		{
			name:        "verified profile and valid token",
			profile:     facade.UserProfile{IsEmailVerified: &verified},
			validate:    facade.TokenValidation{IsValid: true},
			want:        KindAuthenticated,
			validations: 1,
			storeKept:   true,
		},
		{
			name:        "rejected token is cleared",
			profile:     facade.UserProfile{IsEmailVerified: &verified},
			validate:    facade.TokenValidation{IsValid: false},
			want:        KindAnonymous,
			validations: 1,
		},
		{
			name:        "validation unreachable keeps the store",
			profile:     facade.UserProfile{IsEmailVerified: &verified},
			valErr:      errors.New("auth down"),
			want:        KindAnonymous,
			validations: 1,
			storeKept:   true,
		},
		{
			name:      "profile not verified skips validation",
			profile:   facade.UserProfile{IsEmailVerified: &unverified},
			want:      KindAnonymous,
			storeKept: true,
		},
		{
			name:       "profile lookup failure skips validation",
			profileErr: errors.New("profile down"),
			want:       KindAnonymous,
			storeKept:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness()
			h.auth.login = facade.LoginResponse{UserID: "42", RequiresVerification: true}
			_, err := h.m.Login(ctx, facade.LoginRequest{})
			require.NoError(t, err)
			h.seedSession(t)

			h.profile.profile = tt.profile
			h.profile.profileErr = tt.profileErr
			h.auth.validate = tt.validate
			h.auth.valErr = tt.valErr
			h.otp.verify = facade.OTPVerification{EmailVerified: true}

			_, err = h.m.VerifyOTP(ctx, facade.OTPVerificationRequest{UserID: "42", Code: "123456"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, h.m.State().Kind())
			assert.Equal(t, []string{"42"}, h.profile.lookups)
			assert.Equal(t, tt.validations, h.auth.validations)

			tok, err := h.store.Token(ctx)
			require.NoError(t, err)
			if tt.storeKept {
				assert.Equal(t, "tok", tok)
			} else {
				assert.Empty(t, tok)
			}

			last, err := h.store.VerifiedAt(ctx)
			require.NoError(t, err)
			if tt.want == KindAuthenticated {
				assert.Equal(t, h.now, last)
			} else {
				assert.True(t, last.IsZero())
			}
		})
	}
}

func TestManager_VerifyOTPWithoutStoredSessionSkipsChecks(t *testing.T) {
	h := newHarness()
	h.auth.login = facade.LoginResponse{UserID: "42", RequiresVerification: true}
	_, err := h.m.Login(context.Background(), facade.LoginRequest{})
	require.NoError(t, err)

	h.otp.verify = facade.OTPVerification{EmailVerified: true}
	_, err = h.m.VerifyOTP(context.Background(), facade.OTPVerificationRequest{UserID: "42"})
	require.NoError(t, err)
	assert.Equal(t, KindAnonymous, h.m.State().Kind())
	assert.Empty(t, h.profile.lookups)
	assert.Zero(t, h.auth.validations)
}

func TestManager_VerifyEmail(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	_, err := h.m.VerifyEmail(ctx)
	assert.ErrorIs(t, err, ErrNotPending)

	h.profile.register = facade.RegisterResponse{UserID: "42", Username: "alice"}
	_, err = h.m.Register(ctx, facade.UserProfile{Email: "alice@example.com"})
	require.NoError(t, err)

	_, err = h.m.VerifyEmail(ctx)
	require.NoError(t, err)
	assert.Equal(t, []facade.EmailVerificationRequest{{UserID: "42", Email: "alice@example.com"}}, h.profile.verified)
	assert.Equal(t, KindAnonymous, h.m.State().Kind())
}

func TestManager_LogoutAlwaysClears(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{name: "remote ok", wantMsg: "Successfully logged out"},
		{name: "service unavailable", err: fmt.Errorf("authentication %w", facade.ErrServiceUnavailable), wantMsg: MsgLoggedOutServiceUnavailable},
		{name: "remote error", err: errors.New("request failed (status 500): boom"), wantMsg: MsgLoggedOutLocally},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness()
			h.seedSession(t)
			_, err := h.m.Restore(ctx)
			require.NoError(t, err)
			h.auth.logoutErr = tt.err

			msg, err := h.m.Logout(ctx)

			require.NoError(t, err)
			assert.Equal(t, tt.wantMsg, msg)
			assert.Equal(t, []string{"tok"}, h.auth.logouts)
			assert.Equal(t, KindAnonymous, h.m.State().Kind())
			token, _ := h.store.Token(ctx)
			assert.Empty(t, token)
			user, _ := h.store.User(ctx)
			assert.Nil(t, user)
		})
	}
}

func TestManager_LogoutWithoutSession(t *testing.T) {
	h := newHarness()
	msg, err := h.m.Logout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MsgLoggedOutLocally, msg)
	assert.Empty(t, h.auth.logouts)
}

func TestManager_CheckAuth(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	ok, err := h.m.CheckAuth(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "no stored session")
	assert.Equal(t, 0, h.auth.validations)

	h.seedSession(t)
	h.auth.validate = facade.TokenValidation{IsValid: true}

	ok, err = h.m.CheckAuth(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, h.auth.validations)
	assert.Equal(t, KindAuthenticated, h.m.State().Kind())

	h.now = h.now.Add(4 * time.Minute)
	ok, err = h.m.CheckAuth(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, h.auth.validations, "a recent validation is trusted")

	h.now = h.now.Add(2 * time.Minute)
	h.auth.validate = facade.TokenValidation{IsValid: true, Details: facade.ValidationDetails{Errors: []string{"inactive"}}}
	ok, err = h.m.CheckAuth(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, h.auth.validations)
	assert.Equal(t, KindAnonymous, h.m.State().Kind())
	token, _ := h.store.Token(ctx)
	assert.Empty(t, token)
}

func TestManager_CheckAuthValidationError(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.seedSession(t)
	h.auth.valErr = errors.New("request failed (status 0): connection refused")

	ok, err := h.m.CheckAuth(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	verified, _ := h.store.VerifiedAt(ctx)
	assert.True(t, verified.IsZero())
	token, _ := h.store.Token(ctx)
	assert.Empty(t, token)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "anonymous", KindAnonymous.String())
	assert.Equal(t, "pending_verification", KindPendingVerification.String())
	assert.Equal(t, "authenticated", KindAuthenticated.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}

func TestNewManager_RequiresCollaborators(t *testing.T) {
	assert.Panics(t, func() { NewManager(Options{}) })
}
