package repository

import (
	"context"
	"time"

	"github.com/TROJAN1HAMMER/ExpenseTrackerBackend-Harshith-B/internal/domain"
)

// ExpenseFilter describes an owner-scoped expense query. All predicates are
// conjunctive; nil or zero-valued optional fields mean "no constraint".
// Amount and date bounds are inclusive.
type ExpenseFilter struct {
	UserUID   string
	Category  string
	MinAmount *float64
	MaxAmount *float64
	StartDate *time.Time
	EndDate   *time.Time
	SortField string
	SortDesc  bool
}

// UserRepository persists users and their revocation markers.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, uid string) (*domain.User, error)
	SetTokensValidAfter(ctx context.Context, uid string, ts time.Time) error
}

// ExpenseRepository persists expenses. Every per-row operation is keyed by
// (id, userUID) so a caller can never reach another user's record.
type ExpenseRepository interface {
	CreateExpense(ctx context.Context, expense *domain.Expense) error
	GetExpense(ctx context.Context, id, userUID string) (*domain.Expense, error)
	ListExpenses(ctx context.Context, filter ExpenseFilter) ([]domain.Expense, error)
	UpdateExpense(ctx context.Context, id, userUID string, patch domain.ExpensePatch) error
	DeleteExpense(ctx context.Context, id, userUID string) error
}
