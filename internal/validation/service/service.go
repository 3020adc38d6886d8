// Package service issues and verifies one-time validation codes for account
// activation and password reset. A user has one active code slot shared by
// both purposes.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"github.com/EdouardYu/ZeroDay/internal/observability/metrics"
	"github.com/EdouardYu/ZeroDay/internal/platform/keylock"
	userdomain "github.com/EdouardYu/ZeroDay/internal/user/domain"
	"github.com/EdouardYu/ZeroDay/internal/validation/domain"
)

// Sentinel errors for code verification; the HTTP layer maps them to 400.
var (
	ErrInvalidCode  = errors.New("invalid code")
	ErrExpiredCode  = errors.New("expired code")
	ErrDisabledCode = errors.New("disabled code")
)

// CodeTTL is the validity window of an issued code.
const CodeTTL = 10 * time.Minute

// codeValidity is the human-readable validity used in notifications.
const codeValidity = "10 minutes"

// Purpose distinguishes the flow a code authorizes.
type Purpose string

const (
	PurposeActivation    Purpose = "activation"
	PurposePasswordReset Purpose = "password_reset"
)

// CodeSender delivers an issued code to the account holder. The transport
// (email, etc.) is up to the implementation.
type CodeSender interface {
	Send(ctx context.Context, user *userdomain.User, code string, purpose Purpose, validity string) error
}

// CodeRepo is the minimal code repository needed by the service.
type CodeRepo interface {
	GetByEmailAndCode(ctx context.Context, email, code string) (*domain.Code, error)
	Create(ctx context.Context, c *domain.Code) error
	Disable(ctx context.Context, id int64) error
	DisableAllByUser(ctx context.Context, userID int64) error
}

// Service generates, delivers, and verifies 6-digit codes.
type Service struct {
	repo   CodeRepo
	locks  *keylock.Registry
	sender CodeSender
	now    func() time.Time
}

// NewService returns a code service delivering through sender. The lock
// registry serializes issuance per user, shared with token issuance.
func NewService(repo CodeRepo, locks *keylock.Registry, sender CodeSender) *Service {
	return &Service{repo: repo, locks: locks, sender: sender, now: time.Now}
}

// Issue disables the user's prior codes, persists a fresh uniformly random
// 6-digit code valid for 10 minutes, and hands it to the sender. Concurrent
// calls for the same user are serialized; one enabled code survives.
func (s *Service) Issue(ctx context.Context, user *userdomain.User, purpose Purpose) error {
	unlock := s.locks.Lock(userKey(user.ID))
	defer unlock()

	if err := s.repo.DisableAllByUser(ctx, user.ID); err != nil {
		return err
	}

	code, err := newCode()
	if err != nil {
		return err
	}
	c := &domain.Code{
		Code:      code,
		ExpiredAt: s.now().UTC().Add(CodeTTL),
		Enabled:   true,
		UserID:    user.ID,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return err
	}
	if err := s.sender.Send(ctx, user, code, purpose, codeValidity); err != nil {
		return fmt.Errorf("send %s code: %w", purpose, err)
	}

	metrics.ValidationCodesIssuedTotal.WithLabelValues(string(purpose)).Inc()
	slog.Info("issued validation code", "user_id", user.ID, "purpose", purpose)
	return nil
}

// Verify checks the code presented for the account with the given email and
// consumes it on success, so a code verifies at most once. Unknown pairs fail
// with ErrInvalidCode, expired codes with ErrExpiredCode, and superseded or
// already-consumed codes with ErrDisabledCode.
func (s *Service) Verify(ctx context.Context, email, code string) error {
	c, err := s.repo.GetByEmailAndCode(ctx, email, code)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrInvalidCode
	}
	if !c.ExpiredAt.After(s.now()) {
		return ErrExpiredCode
	}
	if !c.Enabled {
		return ErrDisabledCode
	}
	return s.repo.Disable(ctx, c.ID)
}

// newCode returns a uniformly random left-zero-padded 6-digit string.
func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func userKey(id int64) string {
	return "user:" + strconv.FormatInt(id, 10)
}
