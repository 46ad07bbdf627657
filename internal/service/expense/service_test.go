package expense

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"log/slog"

	"github.com/TROJAN1HAMMER/ExpenseTrackerBackend-Harshith-B/internal/domain"
	"github.com/TROJAN1HAMMER/ExpenseTrackerBackend-Harshith-B/internal/repository"
)

type stubExpenseRepository struct {
	expenses   map[string]domain.Expense
	lastFilter repository.ExpenseFilter
}

func newStubExpenseRepository() *stubExpenseRepository {
	return &stubExpenseRepository{expenses: make(map[string]domain.Expense)}
}

func (s *stubExpenseRepository) CreateExpense(ctx context.Context, expense *domain.Expense) error {
	s.expenses[expense.ID] = *expense
	return nil
}

func (s *stubExpenseRepository) GetExpense(ctx context.Context, id, userUID string) (*domain.Expense, error) {
	e, ok := s.expenses[id]
	if !ok || e.UserUID != userUID {
		return nil, repository.ErrNotFound
	}
	copied := e
	return &copied, nil
}

func (s *stubExpenseRepository) ListExpenses(ctx context.Context, filter repository.ExpenseFilter) ([]domain.Expense, error) {
	s.lastFilter = filter
	result := make([]domain.Expense, 0)
	for _, e := range s.expenses {
		if e.UserUID != filter.UserUID {
			continue
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func (s *stubExpenseRepository) UpdateExpense(ctx context.Context, id, userUID string, patch domain.ExpensePatch) error {
	e, ok := s.expenses[id]
	if !ok || e.UserUID != userUID {
		return repository.ErrNotFound
	}
	if patch.Title != nil {
		e.Title = *patch.Title
	}
	if patch.Amount != nil {
		e.Amount = *patch.Amount
	}
	if patch.Category != nil {
		e.Category = *patch.Category
	}
	if patch.Date != nil {
		e.Date = *patch.Date
	}
	e.UpdatedAt = time.Now().UTC()
	s.expenses[id] = e
	return nil
}

func (s *stubExpenseRepository) DeleteExpense(ctx context.Context, id, userUID string) error {
	e, ok := s.expenses[id]
	if !ok || e.UserUID != userUID {
		return repository.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func newTestService(repo repository.ExpenseRepository) Service {
	return New(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func validInput() CreateInput {
	amount := 4.5
	date := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	return CreateInput{Title: "Coffee", Amount: &amount, Category: "Food", Date: &date}
}

func TestCreateValidatesRequiredFields(t *testing.T) {
	svc := newTestService(newStubExpenseRepository())
	ctx := context.Background()

	cases := map[string]CreateInput{
		"missing title":    func() CreateInput { in := validInput(); in.Title = "  "; return in }(),
		"missing amount":   func() CreateInput { in := validInput(); in.Amount = nil; return in }(),
		"missing category": func() CreateInput { in := validInput(); in.Category = ""; return in }(),
		"missing date":     func() CreateInput { in := validInput(); in.Date = nil; return in }(),
	}
	for name, in := range cases {
		if _, err := svc.Create(ctx, "u1", in); !errors.Is(err, ErrMissingFields) {
			t.Fatalf("%s: expected ErrMissingFields, got %v", name, err)
		}
	}
}

func TestCreateAssignsIDAndOwner(t *testing.T) {
	repo := newStubExpenseRepository()
	svc := newTestService(repo)

	exp, err := svc.Create(context.Background(), "u1", validInput())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if exp.ID == "" {
		t.Fatal("expected a generated id")
	}
	if exp.UserUID != "u1" {
		t.Fatalf("expected owner u1, got %q", exp.UserUID)
	}
	stored, ok := repo.expenses[exp.ID]
	if !ok {
		t.Fatal("expected expense persisted")
	}
	if stored.Title != "Coffee" || stored.Amount != 4.5 || stored.Category != "Food" {
		t.Fatalf("unexpected stored expense: %+v", stored)
	}
}

func TestGetIsOwnershipScoped(t *testing.T) {
	repo := newStubExpenseRepository()
	svc := newTestService(repo)

	exp, err := svc.Create(context.Background(), "u1", validInput())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := svc.Get(context.Background(), "u1", exp.ID); err != nil {
		t.Fatalf("owner Get returned error: %v", err)
	}
	if _, err := svc.Get(context.Background(), "u2", exp.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-owner, got %v", err)
	}
}

func TestUpdateEmptyPatchKeepsFields(t *testing.T) {
	repo := newStubExpenseRepository()
	svc := newTestService(repo)

	exp, err := svc.Create(context.Background(), "u1", validInput())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := svc.Update(context.Background(), "u1", exp.ID, UpdatePatch{}); err != nil {
		t.Fatalf("empty patch update returned error: %v", err)
	}
	stored := repo.expenses[exp.ID]
	if stored.Title != "Coffee" || stored.Amount != 4.5 || stored.Category != "Food" {
		t.Fatalf("expected fields unchanged, got %+v", stored)
	}
}

func TestUpdateAppliesPartialMerge(t *testing.T) {
	repo := newStubExpenseRepository()
	svc := newTestService(repo)

	exp, err := svc.Create(context.Background(), "u1", validInput())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	amount := 9.0
	if err := svc.Update(context.Background(), "u1", exp.ID, UpdatePatch{Amount: &amount}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	stored := repo.expenses[exp.ID]
	if stored.Amount != 9.0 {
		t.Fatalf("expected amount 9.0, got %v", stored.Amount)
	}
	if stored.Title != "Coffee" || stored.Category != "Food" {
		t.Fatalf("expected other fields unchanged, got %+v", stored)
	}
}

func TestUpdateRejectsEmptyPatchValues(t *testing.T) {
	repo := newStubExpenseRepository()
	svc := newTestService(repo)

	exp, err := svc.Create(context.Background(), "u1", validInput())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	empty := "  "
	if err := svc.Update(context.Background(), "u1", exp.ID, UpdatePatch{Title: &empty}); !errors.Is(err, ErrEmptyPatchField) {
		t.Fatalf("expected ErrEmptyPatchField, got %v", err)
	}
}

func TestUpdateDeleteCrossUserReturnNotFound(t *testing.T) {
	repo := newStubExpenseRepository()
	svc := newTestService(repo)

	exp, err := svc.Create(context.Background(), "u1", validInput())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	title := "Tea"
	if err := svc.Update(context.Background(), "u2", exp.ID, UpdatePatch{Title: &title}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on cross-user update, got %v", err)
	}
	if err := svc.Delete(context.Background(), "u2", exp.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on cross-user delete, got %v", err)
	}
	if _, ok := repo.expenses[exp.ID]; !ok {
		t.Fatal("expected record untouched after cross-user attempts")
	}
}

func TestListDefaultsToDateDescending(t *testing.T) {
	repo := newStubExpenseRepository()
	svc := newTestService(repo)

	if _, err := svc.List(context.Background(), "u1", ListQuery{}); err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if repo.lastFilter.SortField != "date" || !repo.lastFilter.SortDesc {
		t.Fatalf("expected date desc default, got %+v", repo.lastFilter)
	}
	if repo.lastFilter.UserUID != "u1" {
		t.Fatalf("expected owner scoping, got %q", repo.lastFilter.UserUID)
	}
}

func TestListAscendingOrder(t *testing.T) {
	repo := newStubExpenseRepository()
	svc := newTestService(repo)

	if _, err := svc.List(context.Background(), "u1", ListQuery{Sort: "amount", Order: "ASC"}); err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if repo.lastFilter.SortField != "amount" || repo.lastFilter.SortDesc {
		t.Fatalf("expected amount asc, got %+v", repo.lastFilter)
	}
}

func TestListRejectsUnknownSortField(t *testing.T) {
	svc := newTestService(newStubExpenseRepository())
	if _, err := svc.List(context.Background(), "u1", ListQuery{Sort: "user_uid"}); !errors.Is(err, ErrInvalidSortField) {
		t.Fatalf("expected ErrInvalidSortField, got %v", err)
	}
}
