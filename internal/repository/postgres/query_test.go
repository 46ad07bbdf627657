package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/TROJAN1HAMMER/ExpenseTrackerBackend-Harshith-B/internal/repository"
)

func TestListQueryDefault(t *testing.T) {
	query, args, err := listQuery(repository.ExpenseFilter{UserUID: "u1", SortDesc: true})
	if err != nil {
		t.Fatalf("listQuery returned error: %v", err)
	}
	if !strings.HasSuffix(query, "WHERE user_uid = $1 ORDER BY date DESC") {
		t.Fatalf("unexpected query: %s", query)
	}
	if len(args) != 1 || args[0] != "u1" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestListQueryAllFilters(t *testing.T) {
	minAmount, maxAmount := 50.0, 100.0
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)

	query, args, err := listQuery(repository.ExpenseFilter{
		UserUID:   "u1",
		Category:  "Food",
		MinAmount: &minAmount,
		MaxAmount: &maxAmount,
		StartDate: &start,
		EndDate:   &end,
		SortField: "amount",
	})
	if err != nil {
		t.Fatalf("listQuery returned error: %v", err)
	}
	for _, clause := range []string{
		"user_uid = $1",
		"category = $2",
		"amount >= $3",
		"amount <= $4",
		"date >= $5",
		"date <= $6",
		"ORDER BY amount ASC",
	} {
		if !strings.Contains(query, clause) {
			t.Fatalf("query missing %q: %s", clause, query)
		}
	}
	if len(args) != 6 {
		t.Fatalf("expected 6 args, got %d: %v", len(args), args)
	}
	if args[1] != "Food" || args[2] != 50.0 || args[3] != 100.0 {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestListQuerySingleBound(t *testing.T) {
	minAmount := 25.0
	query, args, err := listQuery(repository.ExpenseFilter{UserUID: "u1", MinAmount: &minAmount})
	if err != nil {
		t.Fatalf("listQuery returned error: %v", err)
	}
	if strings.Contains(query, "amount <=") {
		t.Fatalf("did not expect upper bound: %s", query)
	}
	if !strings.Contains(query, "amount >= $2") {
		t.Fatalf("expected lower bound: %s", query)
	}
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %v", args)
	}
}

func TestListQueryRejectsUnknownSortColumn(t *testing.T) {
	if _, _, err := listQuery(repository.ExpenseFilter{UserUID: "u1", SortField: "password_hash"}); err == nil {
		t.Fatal("expected error for unknown sort column")
	}
}
