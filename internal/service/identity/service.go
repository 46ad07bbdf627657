package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/TROJAN1HAMMER/ExpenseTrackerBackend-Harshith-B/internal/domain"
	"github.com/TROJAN1HAMMER/ExpenseTrackerBackend-Harshith-B/internal/repository"
	"github.com/TROJAN1HAMMER/ExpenseTrackerBackend-Harshith-B/pkg/config"
	"github.com/TROJAN1HAMMER/ExpenseTrackerBackend-Harshith-B/pkg/crypto"
	jwtpkg "github.com/TROJAN1HAMMER/ExpenseTrackerBackend-Harshith-B/pkg/jwt"
)

var (
	ErrMissingCredentials = errors.New("identity: email and password required")
	ErrInvalidCredentials = errors.New("identity: invalid email or password")
)

// Claims is the per-request identity derived from a verified bearer token.
type Claims struct {
	UID      string
	Email    string
	IssuedAt time.Time
}

// Service is the identity provider: it owns registration, sign-in, token
// verification and the per-user revocation marker.
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
	cfg    config.APIConfig
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{users: users, logger: logger, cfg: cfg}
}

// Register creates a new account and returns it.
func (s Service) Register(ctx context.Context, email, password, name string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &domain.User{
		UID:          uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_uid", user.UID)
	return user, nil
}

// SignIn authenticates a user and issues a bearer token.
func (s Service) SignIn(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", ErrMissingCredentials
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		return "", ErrInvalidCredentials
	}
	token, err := jwtpkg.GenerateToken(user.UID, user.Email, s.cfg.JWTSecret, s.cfg.TokenTTL)
	if err != nil {
		return "", err
	}
	s.logger.Info("user logged in", "user_uid", user.UID)
	return token, nil
}

// Verify checks the token signature and expiry and extracts its claims. It
// does not consult the revocation marker; callers pair it with
// RevocationMarker on every request.
func (s Service) Verify(token string) (Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Claims{}, errors.New("identity: token required")
	}
	parsed, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		return Claims{}, err
	}
	claims := Claims{UID: parsed.UID, Email: parsed.Email}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time
	}
	return claims, nil
}

// RevocationMarker returns the user's current tokens-valid-after timestamp.
func (s Service) RevocationMarker(ctx context.Context, uid string) (time.Time, error) {
	user, err := s.users.GetUserByID(ctx, uid)
	if err != nil {
		return time.Time{}, err
	}
	return user.TokensValidAfter, nil
}

// RevokeAll invalidates every token issued to the user before now.
func (s Service) RevokeAll(ctx context.Context, uid string) error {
	if err := s.users.SetTokensValidAfter(ctx, uid, time.Now().UTC()); err != nil {
		return err
	}
	s.logger.Info("tokens revoked", "user_uid", uid)
	return nil
}
