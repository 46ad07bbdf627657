package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TROJAN1HAMMER/ExpenseTrackerBackend-Harshith-B/internal/domain"
	"github.com/TROJAN1HAMMER/ExpenseTrackerBackend-Harshith-B/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository    = (*Repository)(nil)
	_ repository.ExpenseRepository = (*Repository)(nil)
)

const uniqueViolation = "23505"

// CreateUser inserts a user.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	const query = `INSERT INTO users (uid, email, name, password_hash, tokens_valid_after, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query, user.UID, user.Email, user.Name, user.PasswordHash, user.TokensValidAfter, user.CreatedAt, user.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return repository.ErrConflict
	}
	return err
}

// GetUserByEmail fetches a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT uid, email, name, password_hash, tokens_valid_after, created_at, updated_at
		FROM users WHERE email = $1`
	row := r.pool.QueryRow(ctx, query, email)
	var u domain.User
	if err := row.Scan(&u.UID, &u.Email, &u.Name, &u.PasswordHash, &u.TokensValidAfter, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, uid string) (*domain.User, error) {
	const query = `SELECT uid, email, name, password_hash, tokens_valid_after, created_at, updated_at
		FROM users WHERE uid = $1`
	row := r.pool.QueryRow(ctx, query, uid)
	var u domain.User
	if err := row.Scan(&u.UID, &u.Email, &u.Name, &u.PasswordHash, &u.TokensValidAfter, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// SetTokensValidAfter moves the user's revocation marker.
func (r *Repository) SetTokensValidAfter(ctx context.Context, uid string, ts time.Time) error {
	const query = `UPDATE users SET tokens_valid_after = $2, updated_at = $2 WHERE uid = $1`
	tag, err := r.pool.Exec(ctx, query, uid, ts)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CreateExpense inserts an expense owned by expense.UserUID.
func (r *Repository) CreateExpense(ctx context.Context, expense *domain.Expense) error {
	const query = `INSERT INTO expenses (id, user_uid, title, amount, category, date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, query, expense.ID, expense.UserUID, expense.Title, expense.Amount, expense.Category, expense.Date, expense.CreatedAt, expense.UpdatedAt)
	return err
}

// GetExpense fetches one expense, scoped to its owner.
func (r *Repository) GetExpense(ctx context.Context, id, userUID string) (*domain.Expense, error) {
	const query = `SELECT id, user_uid, title, amount, category, date, created_at, updated_at
		FROM expenses WHERE id = $1 AND user_uid = $2`
	row := r.pool.QueryRow(ctx, query, id, userUID)
	var e domain.Expense
	if err := row.Scan(&e.ID, &e.UserUID, &e.Title, &e.Amount, &e.Category, &e.Date, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// ListExpenses runs an owner-scoped filter/sort query.
func (r *Repository) ListExpenses(ctx context.Context, filter repository.ExpenseFilter) ([]domain.Expense, error) {
	query, args, err := listQuery(filter)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0)
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.UserUID, &e.Title, &e.Amount, &e.Category, &e.Date, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// UpdateExpense applies a partial merge to an owned expense. An empty patch
// only touches updated_at.
func (r *Repository) UpdateExpense(ctx context.Context, id, userUID string, patch domain.ExpensePatch) error {
	const query = `UPDATE expenses SET
			title = COALESCE($3, title),
			amount = COALESCE($4, amount),
			category = COALESCE($5, category),
			date = COALESCE($6, date),
			updated_at = now()
		WHERE id = $1 AND user_uid = $2`
	tag, err := r.pool.Exec(ctx, query, id, userUID, patch.Title, patch.Amount, patch.Category, patch.Date)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteExpense removes an owned expense.
func (r *Repository) DeleteExpense(ctx context.Context, id, userUID string) error {
	const query = `DELETE FROM expenses WHERE id = $1 AND user_uid = $2`
	tag, err := r.pool.Exec(ctx, query, id, userUID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// sortColumns enumerates the columns a caller may sort by. Anything else is
// rejected before it can reach the query text.
var sortColumns = map[string]string{
	"title":    "title",
	"amount":   "amount",
	"category": "category",
	"date":     "date",
}

const listSelect = `SELECT id, user_uid, title, amount, category, date, created_at, updated_at FROM expenses WHERE user_uid = $1`

// listQuery renders an ExpenseFilter into SQL. Filters are conjunctive and
// each bound is independently optional.
func listQuery(filter repository.ExpenseFilter) (string, []any, error) {
	field := filter.SortField
	if field == "" {
		field = "date"
	}
	column, ok := sortColumns[field]
	if !ok {
		return "", nil, fmt.Errorf("unsupported sort field %q", filter.SortField)
	}

	var sb strings.Builder
	sb.WriteString(listSelect)
	args := []any{filter.UserUID}
	add := func(predicate string, value any) {
		args = append(args, value)
		fmt.Fprintf(&sb, " AND %s $%d", predicate, len(args))
	}
	if filter.Category != "" {
		add("category =", filter.Category)
	}
	if filter.MinAmount != nil {
		add("amount >=", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		add("amount <=", *filter.MaxAmount)
	}
	if filter.StartDate != nil {
		add("date >=", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("date <=", *filter.EndDate)
	}

	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	sb.WriteString(" ORDER BY " + column + " " + direction)
	return sb.String(), args, nil
}
