// Package service implements the account flows: registration, activation,
// sign-in/out, and password reset. It composes the throttle, token, and
// validation-code services around the user store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/EdouardYu/ZeroDay/internal/observability/metrics"
	"github.com/EdouardYu/ZeroDay/internal/security"
	"github.com/EdouardYu/ZeroDay/internal/user/domain"
	validation "github.com/EdouardYu/ZeroDay/internal/validation/service"
)

// Sentinel errors for account flows; the HTTP layer maps them to status codes.
var (
	ErrEmailTaken     = errors.New("email already registered")
	ErrUnknownEmail   = errors.New("no account for email")
	ErrAlreadyEnabled = errors.New("account already activated")
	ErrNotYetEnabled  = errors.New("account not activated")
	ErrBadCredentials = errors.New("bad credentials")
)

// UserRepo is the minimal user repository needed by the flows.
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
}

// TokenIssuer issues and revokes bearer tokens.
type TokenIssuer interface {
	Issue(ctx context.Context, user *domain.User) (string, error)
	Revoke(ctx context.Context, userID int64) error
}

// CodeFlow issues and verifies one-time validation codes.
type CodeFlow interface {
	Issue(ctx context.Context, user *domain.User, purpose validation.Purpose) error
	Verify(ctx context.Context, email, code string) error
}

// Throttle gates sign-in attempts per (email, device) pair.
type Throttle interface {
	Check(ctx context.Context, email, deviceID string) error
	RecordFailure(ctx context.Context, email, deviceID string) (int, error)
	RecordSuccess(ctx context.Context, email, deviceID string) error
}

// Service wires the account flows together.
type Service struct {
	users    UserRepo
	hasher   *security.Hasher
	tokens   TokenIssuer
	codes    CodeFlow
	throttle Throttle
}

// NewService returns the account-flow service.
func NewService(users UserRepo, hasher *security.Hasher, tokens TokenIssuer, codes CodeFlow, throttle Throttle) *Service {
	return &Service{users: users, hasher: hasher, tokens: tokens, codes: codes, throttle: throttle}
}

// SignUp registers a new account and sends an activation code. Registering an
// email that already has a not-yet-activated account overwrites it and sends
// a fresh code; an activated email fails with ErrEmailTaken.
func (s *Service) SignUp(ctx context.Context, email, username, password string) error {
	email = domain.NormalizeEmail(email)

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil && existing.Enabled {
		return ErrEmailTaken
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	user := existing
	if user == nil {
		user = &domain.User{Email: email, Role: domain.RoleUser}
	}
	user.Username = username
	user.Password = hash
	user.Enabled = false
	if err := user.Validate(); err != nil {
		return err
	}

	if existing == nil {
		err = s.users.Create(ctx, user)
	} else {
		err = s.users.Update(ctx, user)
	}
	if err != nil {
		return err
	}

	slog.Info("registered account", "user_id", user.ID)
	return s.codes.Issue(ctx, user, validation.PurposeActivation)
}

// Activate verifies the activation code and enables the account.
func (s *Service) Activate(ctx context.Context, email, code string) error {
	email = domain.NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return validation.ErrInvalidCode
	}
	if user.Enabled {
		return ErrAlreadyEnabled
	}
	if err := s.codes.Verify(ctx, email, code); err != nil {
		return err
	}

	user.Enabled = true
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	slog.Info("activated account", "user_id", user.ID)
	return nil
}

// NewActivationCode sends a fresh activation code to a not-yet-activated
// account, superseding any previous code.
func (s *Service) NewActivationCode(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUnknownEmail
	}
	if user.Enabled {
		return ErrAlreadyEnabled
	}
	return s.codes.Issue(ctx, user, validation.PurposeActivation)
}

// SignIn authenticates the account and returns a fresh bearer token. The
// throttle is consulted first; a failed password records the attempt and the
// returned error carries the remaining tries before lockout.
func (s *Service) SignIn(ctx context.Context, email, password, deviceID string) (string, error) {
	email = domain.NormalizeEmail(email)

	if err := s.throttle.Check(ctx, email, deviceID); err != nil {
		return "", err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user == nil || s.hasher.Compare(user.Password, password) != nil {
		metrics.SignInsTotal.WithLabelValues("failure").Inc()
		remaining, ferr := s.throttle.RecordFailure(ctx, email, deviceID)
		if ferr != nil {
			return "", ferr
		}
		return "", fmt.Errorf("%w: %d attempts remaining", ErrBadCredentials, remaining)
	}
	if !user.Enabled {
		metrics.SignInsTotal.WithLabelValues("failure").Inc()
		return "", ErrNotYetEnabled
	}

	if err := s.throttle.RecordSuccess(ctx, email, deviceID); err != nil {
		return "", err
	}
	token, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return "", err
	}

	metrics.SignInsTotal.WithLabelValues("success").Inc()
	slog.Info("signed in", "user_id", user.ID)
	return token, nil
}

// SignOut revokes the account's active bearer token.
func (s *Service) SignOut(ctx context.Context, userID int64) error {
	return s.tokens.Revoke(ctx, userID)
}

// ResetPassword sends a password-reset code to an activated account.
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUnknownEmail
	}
	if !user.Enabled {
		return ErrNotYetEnabled
	}
	return s.codes.Issue(ctx, user, validation.PurposePasswordReset)
}

// NewPassword verifies the reset code and stores the new password hash.
func (s *Service) NewPassword(ctx context.Context, email, code, password string) error {
	email = domain.NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUnknownEmail
	}
	if !user.Enabled {
		return ErrNotYetEnabled
	}
	if err := s.codes.Verify(ctx, email, code); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	user.Password = hash
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	slog.Info("changed password", "user_id", user.ID)
	return nil
}

// EnsureAdmin creates the administrator account if it does not exist yet and
// signs it in, superseding any previous admin token. Running it on a schedule
// keeps a fresh admin token issued. The account is created enabled so it
// never needs an activation code.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	email = domain.NormalizeEmail(email)

	admin, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if admin == nil {
		if password == "" {
			return errors.New("admin password is not configured")
		}
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return err
		}
		admin = &domain.User{
			Email:    email,
			Password: hash,
			Username: "admin",
			Role:     domain.RoleAdministrator,
			Enabled:  true,
		}
		if err := s.users.Create(ctx, admin); err != nil {
			return err
		}
		slog.Info("created administrator account", "user_id", admin.ID)
	}

	if _, err := s.tokens.Issue(ctx, admin); err != nil {
		return err
	}
	slog.Info("signed in administrator account", "user_id", admin.ID)
	return nil
}
