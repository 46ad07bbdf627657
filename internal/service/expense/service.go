package expense

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/TROJAN1HAMMER/ExpenseTrackerBackend-Harshith-B/internal/domain"
	"github.com/TROJAN1HAMMER/ExpenseTrackerBackend-Harshith-B/internal/repository"
)

var (
	ErrMissingFields    = errors.New("expense: title, amount, category and date are required")
	ErrEmptyPatchField  = errors.New("expense: patch fields must be non-empty")
	ErrInvalidSortField = errors.New("expense: unsupported sort field")
)

// sortFields enumerates what List accepts for the sort parameter.
var sortFields = map[string]struct{}{
	"title":    {},
	"amount":   {},
	"category": {},
	"date":     {},
}

// Service implements owner-scoped expense operations.
type Service struct {
	expenses repository.ExpenseRepository
	logger   *slog.Logger
}

// New constructs a Service.
func New(expenses repository.ExpenseRepository, logger *slog.Logger) Service {
	return Service{expenses: expenses, logger: logger}
}

// CreateInput carries a new expense. Pointer fields distinguish "absent" from
// a zero value.
type CreateInput struct {
	Title    string
	Amount   *float64
	Category string
	Date     *time.Time
}

// ListQuery carries the optional filter/sort parameters of a listing.
type ListQuery struct {
	Category  string
	MinAmount *float64
	MaxAmount *float64
	StartDate *time.Time
	EndDate   *time.Time
	Sort      string
	Order     string
}

// UpdatePatch carries the fields of a partial update.
type UpdatePatch struct {
	Title    *string
	Amount   *float64
	Category *string
	Date     *time.Time
}

// Create validates input and persists a new expense owned by userUID.
func (s Service) Create(ctx context.Context, userUID string, in CreateInput) (*domain.Expense, error) {
	title := strings.TrimSpace(in.Title)
	category := strings.TrimSpace(in.Category)
	if title == "" || category == "" || in.Amount == nil || in.Date == nil {
		return nil, ErrMissingFields
	}
	now := time.Now().UTC()
	exp := &domain.Expense{
		ID:        uuid.NewString(),
		UserUID:   userUID,
		Title:     title,
		Amount:    *in.Amount,
		Category:  category,
		Date:      *in.Date,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.expenses.CreateExpense(ctx, exp); err != nil {
		return nil, err
	}
	s.logger.Info("expense created", "expense_id", exp.ID, "user_uid", userUID)
	return exp, nil
}

// List executes a filtered, sorted listing scoped to userUID.
func (s Service) List(ctx context.Context, userUID string, q ListQuery) ([]domain.Expense, error) {
	sort := strings.TrimSpace(q.Sort)
	if sort == "" {
		sort = "date"
	}
	if _, ok := sortFields[sort]; !ok {
		return nil, ErrInvalidSortField
	}
	filter := repository.ExpenseFilter{
		UserUID:   userUID,
		Category:  strings.TrimSpace(q.Category),
		MinAmount: q.MinAmount,
		MaxAmount: q.MaxAmount,
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		SortField: sort,
		SortDesc:  !strings.EqualFold(strings.TrimSpace(q.Order), "asc"),
	}
	return s.expenses.ListExpenses(ctx, filter)
}

// Get fetches one expense owned by userUID.
func (s Service) Get(ctx context.Context, userUID, id string) (*domain.Expense, error) {
	return s.expenses.GetExpense(ctx, id, userUID)
}

// Update applies a partial merge to an owned expense. An empty patch is a
// successful no-op. A non-owned id surfaces as ErrNotFound, indistinguishable
// from a nonexistent one.
func (s Service) Update(ctx context.Context, userUID, id string, patch UpdatePatch) error {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return ErrEmptyPatchField
	}
	if patch.Category != nil && strings.TrimSpace(*patch.Category) == "" {
		return ErrEmptyPatchField
	}
	err := s.expenses.UpdateExpense(ctx, id, userUID, domain.ExpensePatch{
		Title:    patch.Title,
		Amount:   patch.Amount,
		Category: patch.Category,
		Date:     patch.Date,
	})
	if err != nil {
		return err
	}
	s.logger.Info("expense updated", "expense_id", id, "user_uid", userUID)
	return nil
}

// Delete removes an owned expense.
func (s Service) Delete(ctx context.Context, userUID, id string) error {
	if err := s.expenses.DeleteExpense(ctx, id, userUID); err != nil {
		return err
	}
	s.logger.Info("expense deleted", "expense_id", id, "user_uid", userUID)
	return nil
}
