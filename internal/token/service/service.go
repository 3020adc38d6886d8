// Package service issues, validates, and revokes bearer tokens, enforcing
// the single-active-token invariant per user.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/EdouardYu/ZeroDay/internal/observability/metrics"
	"github.com/EdouardYu/ZeroDay/internal/platform/keylock"
	"github.com/EdouardYu/ZeroDay/internal/token/domain"
	userdomain "github.com/EdouardYu/ZeroDay/internal/user/domain"
)

// Sentinel errors for token validation and revocation; the HTTP layer maps
// them to status codes.
var (
	ErrUnknownToken      = errors.New("unknown or revoked token")
	ErrMalformedToken    = errors.New("malformed token")
	ErrBadSignature      = errors.New("bad token signature")
	ErrExpiredToken      = errors.New("expired token")
	ErrPrincipalMismatch = errors.New("token subject does not match credential owner")
	ErrNoActiveToken     = errors.New("no active token")
)

// TokenTTL is the lifetime of an issued bearer token.
const TokenTTL = 4 * time.Hour

// Claims holds the JWT claims of a bearer token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the authenticated principal extracted from a valid token.
type Identity struct {
	UserID int64
	Role   userdomain.Role
}

// TokenRepo is the minimal token repository needed by the service.
type TokenRepo interface {
	GetEnabledByValue(ctx context.Context, value string) (*domain.Token, error)
	GetEnabledByUser(ctx context.Context, userID int64) (*domain.Token, error)
	Create(ctx context.Context, t *domain.Token) error
	Disable(ctx context.Context, id int64) error
	DisableAllByUser(ctx context.Context, userID int64) error
}

// Service signs tokens with a process-wide symmetric key and persists one
// enabled credential row per user.
type Service struct {
	repo  TokenRepo
	locks *keylock.Registry
	key   []byte
	now   func() time.Time
}

// NewService returns a token service signing with the given HS256 key.
// The lock registry serializes issuance and revocation per user.
func NewService(repo TokenRepo, locks *keylock.Registry, key []byte) *Service {
	return &Service{repo: repo, locks: locks, key: key, now: time.Now}
}

// Issue disables the user's previous tokens and persists a freshly signed one.
// Concurrent calls for the same user are serialized; exactly one enabled
// token survives. Returns the signed bearer value.
func (s *Service) Issue(ctx context.Context, user *userdomain.User) (string, error) {
	unlock := s.locks.Lock(userKey(user.ID))
	defer unlock()

	if err := s.repo.DisableAllByUser(ctx, user.ID); err != nil {
		metrics.TokensIssuedTotal.WithLabelValues("failure").Inc()
		return "", err
	}

	now := s.now().UTC()
	expiresAt := now.Add(TokenTTL)
	claims := Claims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		metrics.TokensIssuedTotal.WithLabelValues("failure").Inc()
		return "", err
	}

	t := &domain.Token{
		Value:     signed,
		ExpiredAt: expiresAt,
		Enabled:   true,
		UserID:    user.ID,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		metrics.TokensIssuedTotal.WithLabelValues("failure").Inc()
		return "", err
	}

	metrics.TokensIssuedTotal.WithLabelValues("success").Inc()
	slog.Info("issued bearer token", "user_id", user.ID, "expires_at", expiresAt)
	return signed, nil
}

// Validate checks a presented bearer value: the credential row must exist and
// be enabled, the signature and expiry must verify, and the token subject
// must match the row's owner. Returns the authenticated identity.
func (s *Service) Validate(ctx context.Context, raw string) (*Identity, error) {
	stored, err := s.repo.GetEnabledByValue(ctx, raw)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrUnknownToken
	}

	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	}); err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformedToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrBadSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		default:
			return nil, ErrMalformedToken
		}
	}

	subject, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrMalformedToken
	}
	if subject != stored.UserID {
		return nil, ErrPrincipalMismatch
	}

	return &Identity{UserID: subject, Role: userdomain.Role(claims.Role)}, nil
}

// Revoke disables the user's active token. Returns ErrNoActiveToken when the
// user has none; revoking twice in a row reports that without side effects.
func (s *Service) Revoke(ctx context.Context, userID int64) error {
	unlock := s.locks.Lock(userKey(userID))
	defer unlock()

	t, err := s.repo.GetEnabledByUser(ctx, userID)
	if err != nil {
		return err
	}
	if t == nil {
		return ErrNoActiveToken
	}
	if err := s.repo.Disable(ctx, t.ID); err != nil {
		return err
	}
	slog.Info("revoked bearer token", "user_id", userID)
	return nil
}

func userKey(id int64) string {
	return "user:" + strconv.FormatInt(id, 10)
}
