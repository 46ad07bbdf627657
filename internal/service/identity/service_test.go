package identity

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"log/slog"

	"github.com/TROJAN1HAMMER/ExpenseTrackerBackend-Harshith-B/internal/domain"
	"github.com/TROJAN1HAMMER/ExpenseTrackerBackend-Harshith-B/internal/repository"
	"github.com/TROJAN1HAMMER/ExpenseTrackerBackend-Harshith-B/pkg/config"
)

type stubUserRepository struct {
	byEmail map[string]*domain.User
	byUID   map[string]*domain.User
}

func newStubUserRepository() *stubUserRepository {
	return &stubUserRepository{
		byEmail: make(map[string]*domain.User),
		byUID:   make(map[string]*domain.User),
	}
}

func (s *stubUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	if _, ok := s.byEmail[user.Email]; ok {
		return repository.ErrConflict
	}
	copied := *user
	s.byEmail[user.Email] = &copied
	s.byUID[user.UID] = &copied
	return nil
}

func (s *stubUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if user, ok := s.byEmail[email]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubUserRepository) GetUserByID(ctx context.Context, uid string) (*domain.User, error) {
	if user, ok := s.byUID[uid]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubUserRepository) SetTokensValidAfter(ctx context.Context, uid string, ts time.Time) error {
	user, ok := s.byUID[uid]
	if !ok {
		return repository.ErrNotFound
	}
	user.TokensValidAfter = ts
	return nil
}

func newTestService(repo repository.UserRepository) Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.APIConfig{JWTSecret: "test-secret", TokenTTL: time.Hour}
	return New(repo, log, cfg)
}

func TestRegisterRequiresCredentials(t *testing.T) {
	svc := newTestService(newStubUserRepository())
	if _, err := svc.Register(context.Background(), "", "pass", ""); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if _, err := svc.Register(context.Background(), "a@b.com", "", ""); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestRegisterNormalizesEmailAndAssignsUID(t *testing.T) {
	repo := newStubUserRepository()
	svc := newTestService(repo)

	user, err := svc.Register(context.Background(), "  User@Example.COM ", "secret", "U")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.UID == "" {
		t.Fatal("expected a generated uid")
	}
	if user.Email != "user@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if _, ok := repo.byEmail["user@example.com"]; !ok {
		t.Fatal("expected user persisted under normalized email")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(newStubUserRepository())
	if _, err := svc.Register(context.Background(), "a@b.com", "secret", ""); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, err := svc.Register(context.Background(), "a@b.com", "secret", ""); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestSignInAndVerifyRoundTrip(t *testing.T) {
	repo := newStubUserRepository()
	svc := newTestService(repo)

	user, err := svc.Register(context.Background(), "a@b.com", "secret", "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	token, err := svc.SignIn(context.Background(), "a@b.com", "secret")
	if err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}
	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if claims.UID != user.UID || claims.Email != "a@b.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.IssuedAt.IsZero() {
		t.Fatal("expected issued-at to be populated")
	}
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	svc := newTestService(newStubUserRepository())
	if _, err := svc.Register(context.Background(), "a@b.com", "secret", ""); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := svc.SignIn(context.Background(), "a@b.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := svc.SignIn(context.Background(), "missing@b.com", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestRevokeAllMovesMarker(t *testing.T) {
	repo := newStubUserRepository()
	svc := newTestService(repo)

	user, err := svc.Register(context.Background(), "a@b.com", "secret", "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	before, err := svc.RevocationMarker(context.Background(), user.UID)
	if err != nil {
		t.Fatalf("RevocationMarker returned error: %v", err)
	}
	if !before.IsZero() {
		t.Fatalf("expected zero marker before revocation, got %v", before)
	}
	if err := svc.RevokeAll(context.Background(), user.UID); err != nil {
		t.Fatalf("RevokeAll returned error: %v", err)
	}
	after, err := svc.RevocationMarker(context.Background(), user.UID)
	if err != nil {
		t.Fatalf("RevocationMarker returned error: %v", err)
	}
	if !after.After(before) {
		t.Fatalf("expected marker to advance, before=%v after=%v", before, after)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := newTestService(newStubUserRepository())
	if _, err := svc.Verify(""); err == nil {
		t.Fatal("expected error for empty token")
	}
	if _, err := svc.Verify("garbage"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}
