package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/relay/internal/facade"
	"github.com/MrSnakeDoc/relay/internal/logger"
)

// DefaultVerifyInterval is how long a remote token validation is trusted.
const DefaultVerifyInterval = 5 * time.Minute

const (
	MsgLoggedOutLocally            = "Logged out locally"
	MsgLoggedOutServiceUnavailable = "Logged out locally (service unavailable)"
)

var (
	// ErrNoToken is returned when a login succeeds without a token and without
	// asking for verification.
	ErrNoToken = errors.New("login response carried no token")
	// ErrNotPending is returned by verification flows when no account awaits verification.
	ErrNotPending = errors.New("no account is pending verification")
)

type Authenticator interface {
	Login(ctx context.Context, req facade.LoginRequest) (facade.LoginResponse, error)
	Logout(ctx context.Context, token string) (facade.LogoutResponse, error)
	ValidateToken(ctx context.Context, token string) (facade.TokenValidation, error)
}

type Registrar interface {
	Register(ctx context.Context, u facade.UserProfile) (facade.RegisterResponse, error)
	VerifyEmail(ctx context.Context, req facade.EmailVerificationRequest) (facade.EmailVerificationResponse, error)
	GetProfile(ctx context.Context, userID string) (facade.UserProfile, error)
}

type OTPIssuer interface {
	Generate(ctx context.Context, req facade.OTPRequest) (facade.OTPGeneration, error)
	Resend(ctx context.Context, req facade.OTPRequest) (facade.OTPGeneration, error)
	Verify(ctx context.Context, req facade.OTPVerificationRequest) (facade.OTPVerification, error)
}

// Invalidator drops cached replica sets; discovery.Resolver satisfies it.
type Invalidator interface {
	InvalidateAll()
}

type Options struct {
	Auth           Authenticator
	Profile        Registrar
	OTP            OTPIssuer
	Store          Store
	Replicas       Invalidator
	VerifyInterval time.Duration
	Now            func() time.Time
	Logger         logger.Logger
}

// Manager owns the session state machine. It is safe for concurrent use;
// transitions are serialized but remote calls are made outside the lock.
type Manager struct {
	auth     Authenticator
	profile  Registrar
	otp      OTPIssuer
	store    Store
	replicas Invalidator
	interval time.Duration
	now      func() time.Time
	logger   logger.Logger

	mu    sync.RWMutex
	state State
}

func NewManager(opts Options) *Manager {
	if opts.Auth == nil || opts.Profile == nil || opts.OTP == nil || opts.Store == nil {
		panic("session.NewManager: auth, profile, otp and store are required")
	}
	m := &Manager{
		auth:     opts.Auth,
		profile:  opts.Profile,
		otp:      opts.OTP,
		store:    opts.Store,
		replicas: opts.Replicas,
		interval: opts.VerifyInterval,
		now:      opts.Now,
		logger:   opts.Logger,
		state:    Anonymous{},
	}
	if m.interval <= 0 {
		m.interval = DefaultVerifyInterval
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.logger == nil {
		m.logger = logger.Nop()
	}
	return m
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) set(s State) {
	m.mu.Lock()
	prev := m.state
	m.state = s
	m.mu.Unlock()

	if prev.Kind() != s.Kind() {
		m.logger.Info("session state changed",
			logger.String("from", prev.Kind().String()),
			logger.String("to", s.Kind().String()))
	}
}

func (m *Manager) invalidateReplicas() {
	if m.replicas != nil {
		m.replicas.InvalidateAll()
	}
}

// Restore rebuilds the state from the store. A session is plausible when
// both a token and a user record are present; nothing is checked remotely.
func (m *Manager) Restore(ctx context.Context) (State, error) {
	s, err := m.stored(ctx)
	if err != nil {
		return nil, err
	}
	m.set(s)
	return s, nil
}

func (m *Manager) stored(ctx context.Context) (State, error) {
	token, err := m.store.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("read session token: %w", err)
	}
	user, err := m.store.User(ctx)
	if err != nil {
		return nil, fmt.Errorf("read session user: %w", err)
	}
	if token == "" || user == nil {
		return Anonymous{}, nil
	}
	return Authenticated{User: *user, Token: token, ExpiresAt: user.ExpiresAt}, nil
}

// Login authenticates with fresh replica sets. A verification-required answer
// moves to PendingVerification; a token moves to Authenticated. A failed
// login leaves the state as it was.
func (m *Manager) Login(ctx context.Context, req facade.LoginRequest) (facade.LoginResponse, error) {
	m.invalidateReplicas()

	resp, err := m.auth.Login(ctx, req)
	if err != nil {
		m.logger.Warn("login failed", logger.String("username", req.Username), logger.Error(err))
		return resp, err
	}

	if resp.RequiresVerification {
		m.set(PendingVerification{
			UserID: resp.UserID,
			Context: Verification{
				Username:           req.Username,
				Email:              resp.Email,
				VerificationDomain: resp.VerificationDomain,
				UserProfileDomain:  resp.UserProfileDomain,
			},
		})
		return resp, nil
	}
	if resp.Token == "" {
		return resp, ErrNoToken
	}

	user := User{ID: resp.UserID, Username: resp.Username, Email: resp.Email, ExpiresAt: resp.ExpiresAt}
	if err := m.store.SetToken(ctx, resp.Token); err != nil {
		return resp, fmt.Errorf("persist session token: %w", err)
	}
	if err := m.store.SetUser(ctx, user); err != nil {
		return resp, fmt.Errorf("persist session user: %w", err)
	}

	m.set(Authenticated{User: user, Token: resp.Token, ExpiresAt: resp.ExpiresAt})
	return resp, nil
}

// Register creates the account; it then awaits email verification.
func (m *Manager) Register(ctx context.Context, u facade.UserProfile) (facade.RegisterResponse, error) {
	m.invalidateReplicas()

	resp, err := m.profile.Register(ctx, u)
	if err != nil {
		return resp, err
	}

	m.set(PendingVerification{
		UserID:  resp.UserID,
		Context: Verification{Username: resp.Username, Email: u.Email},
	})
	return resp, nil
}

func (m *Manager) GenerateOTP(ctx context.Context, req facade.OTPRequest) (facade.OTPGeneration, error) {
	m.invalidateReplicas()
	return m.otp.Generate(ctx, req)
}

func (m *Manager) ResendOTP(ctx context.Context, req facade.OTPRequest) (facade.OTPGeneration, error) {
	m.invalidateReplicas()
	return m.otp.Resend(ctx, req)
}

// VerifyOTP confirms the code. Once the email is verified the pending state
// is left. A stored session is resumed only when the profile reports the
// email verified and the stored token still validates; otherwise the result
// is Anonymous. Failures of that follow-up never fail the verification.
func (m *Manager) VerifyOTP(ctx context.Context, req facade.OTPVerificationRequest) (facade.OTPVerification, error) {
	m.invalidateReplicas()

	resp, err := m.otp.Verify(ctx, req)
	if err != nil {
		return resp, err
	}
	if resp.EmailVerified {
		m.resumeAfterVerification(ctx, req.UserID)
	}
	return resp, nil
}

func (m *Manager) resumeAfterVerification(ctx context.Context, userID string) {
	if m.State().Kind() != KindPendingVerification {
		return
	}
	s, err := m.stored(ctx)
	if err != nil {
		m.logger.Warn("could not read stored session after verification", logger.Error(err))
		m.set(Anonymous{})
		return
	}
	auth, ok := s.(Authenticated)
	if !ok || !m.confirmSession(ctx, userID, auth) {
		m.set(Anonymous{})
		return
	}
	m.set(auth)
}

// confirmSession checks a stored session after email verification. A token
// the auth service rejects is cleared from the store; unreachable services
// leave the store alone so a later CheckAuth can retry.
func (m *Manager) confirmSession(ctx context.Context, userID string, auth Authenticated) bool {
	if userID == "" {
		userID = auth.User.ID
	}
	p, err := m.profile.GetProfile(ctx, userID)
	if err != nil {
		m.logger.Warn("auto-login after verification failed", logger.Error(err))
		return false
	}
	if p.IsEmailVerified == nil || !*p.IsEmailVerified {
		m.logger.Info("profile not yet marked verified, session not resumed",
			logger.String("user_id", userID))
		return false
	}

	v, err := m.auth.ValidateToken(ctx, auth.Token)
	if err != nil {
		m.logger.Warn("auto-login after verification failed", logger.Error(err))
		return false
	}
	if !v.OK() {
		m.logger.Info("stored token is no longer valid", logger.Strings("errors", v.Details.Errors))
		if err := m.store.Clear(ctx); err != nil {
			m.logger.Warn("failed to clear rejected session", logger.Error(err))
		}
		return false
	}
	if err := m.store.SetVerifiedAt(ctx, m.now()); err != nil {
		m.logger.Warn("failed to persist verification time", logger.Error(err))
	}
	return true
}

// VerifyEmail confirms the pending account's email without an OTP.
func (m *Manager) VerifyEmail(ctx context.Context) (facade.EmailVerificationResponse, error) {
	pending, ok := m.State().(PendingVerification)
	if !ok {
		return facade.EmailVerificationResponse{}, ErrNotPending
	}
	m.invalidateReplicas()

	resp, err := m.profile.VerifyEmail(ctx, facade.EmailVerificationRequest{
		UserID: pending.UserID,
		Email:  pending.Context.Email,
	})
	if err != nil {
		return resp, err
	}
	m.leavePending(ctx)
	return resp, nil
}

func (m *Manager) leavePending(ctx context.Context) {
	if m.State().Kind() != KindPendingVerification {
		return
	}
	s, err := m.stored(ctx)
	if err != nil {
		m.logger.Warn("could not read stored session after verification", logger.Error(err))
		s = Anonymous{}
	}
	m.set(s)
}

// Logout revokes the token remotely when possible and always clears the
// local session, even if the remote call fails. The returned message says
// which of the two happened.
func (m *Manager) Logout(ctx context.Context) (string, error) {
	msg := ""
	token, err := m.store.Token(ctx)
	if err != nil {
		m.logger.Warn("could not read session token for logout", logger.Error(err))
	}
	if token == "" {
		if a, ok := m.State().(Authenticated); ok {
			token = a.Token
		}
	}

	if token != "" {
		resp, err := m.auth.Logout(ctx, token)
		switch {
		case err == nil:
			msg = resp.Message
		case errors.Is(err, facade.ErrServiceUnavailable):
			msg = MsgLoggedOutServiceUnavailable
		default:
			m.logger.Warn("remote logout failed, clearing local session anyway", logger.Error(err))
			msg = MsgLoggedOutLocally
		}
	}
	if msg == "" {
		msg = MsgLoggedOutLocally
	}

	m.set(Anonymous{})
	if err := m.store.Clear(ctx); err != nil {
		return msg, fmt.Errorf("clear session: %w", err)
	}
	return msg, nil
}

// CheckAuth reports whether the stored session is still good. A validation
// younger than the verify interval is trusted without a remote call. Any
// negative answer clears the session.
func (m *Manager) CheckAuth(ctx context.Context) (bool, error) {
	s, err := m.stored(ctx)
	if err != nil {
		return false, err
	}
	auth, ok := s.(Authenticated)
	if !ok {
		return false, m.drop(ctx)
	}

	last, err := m.store.VerifiedAt(ctx)
	if err != nil {
		return false, fmt.Errorf("read last verification: %w", err)
	}
	if !last.IsZero() && m.now().Sub(last) < m.interval {
		m.set(auth)
		return true, nil
	}

	v, err := m.auth.ValidateToken(ctx, auth.Token)
	if err != nil {
		m.logger.Warn("token validation failed", logger.Error(err))
		return false, m.drop(ctx)
	}
	if err := m.store.SetVerifiedAt(ctx, m.now()); err != nil {
		return false, fmt.Errorf("persist verification time: %w", err)
	}
	if !v.OK() {
		m.logger.Info("stored token is no longer valid", logger.Strings("errors", v.Details.Errors))
		return false, m.drop(ctx)
	}

	m.set(auth)
	return true, nil
}

// drop forgets a session that failed a check. A pending verification is kept.
func (m *Manager) drop(ctx context.Context) error {
	if m.State().Kind() == KindAuthenticated {
		m.set(Anonymous{})
	}
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
