package report

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/TROJAN1HAMMER/ExpenseTrackerBackend-Harshith-B/internal/repository"
)

var (
	ErrMissingMonth    = errors.New("report: month and year query parameters are required")
	ErrInvalidMonth    = errors.New("report: month must be 1-12 and year a positive number")
	ErrMissingCategory = errors.New("report: category query parameter is required")
)

// Service derives aggregate reports from a user's expenses.
type Service struct {
	expenses repository.ExpenseRepository
	logger   *slog.Logger
}

// New constructs a Service.
func New(expenses repository.ExpenseRepository, logger *slog.Logger) Service {
	return Service{expenses: expenses, logger: logger}
}

// Monthly is one month's spending summary.
type Monthly struct {
	Total      float64            `json:"total"`
	Categories map[string]float64 `json:"categories"`
}

// CategoryEntry is an expense projected for the category report: ownership
// and identifier fields are suppressed.
type CategoryEntry struct {
	Title  string  `json:"title"`
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
}

// MonthlyReport sums the user's spending in the given month and breaks it
// down by category.
func (s Service) MonthlyReport(ctx context.Context, userUID, month, year string) (Monthly, error) {
	if strings.TrimSpace(month) == "" || strings.TrimSpace(year) == "" {
		return Monthly{}, ErrMissingMonth
	}
	m, err := strconv.Atoi(strings.TrimSpace(month))
	if err != nil {
		return Monthly{}, ErrInvalidMonth
	}
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return Monthly{}, ErrInvalidMonth
	}
	if m < 1 || m > 12 || y < 1 {
		return Monthly{}, ErrInvalidMonth
	}

	// Expenses carry DATE-granular dates, so the half-open month range
	// [first, nextFirst) equals the inclusive range [first, lastDay].
	start := time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)

	expenses, err := s.expenses.ListExpenses(ctx, repository.ExpenseFilter{
		UserUID:   userUID,
		StartDate: &start,
		EndDate:   &end,
		SortField: "date",
		SortDesc:  true,
	})
	if err != nil {
		return Monthly{}, err
	}

	result := Monthly{Categories: make(map[string]float64)}
	for _, e := range expenses {
		result.Total += e.Amount
		result.Categories[e.Category] += e.Amount
	}
	return result, nil
}

// CategoryReport lists the user's expenses in one category, projected to
// title/amount/date.
func (s Service) CategoryReport(ctx context.Context, userUID, category string) ([]CategoryEntry, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, ErrMissingCategory
	}
	expenses, err := s.expenses.ListExpenses(ctx, repository.ExpenseFilter{
		UserUID:   userUID,
		Category:  category,
		SortField: "date",
		SortDesc:  true,
	})
	if err != nil {
		return nil, err
	}
	entries := make([]CategoryEntry, 0, len(expenses))
	for _, e := range expenses {
		entries = append(entries, CategoryEntry{
			Title:  e.Title,
			Amount: e.Amount,
			Date:   e.Date.Format("2006-01-02"),
		})
	}
	return entries, nil
}
