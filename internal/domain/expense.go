package domain

import "time"

// Expense is a single expense record owned by exactly one user.
type Expense struct {
	ID        string    `json:"id"`
	UserUID   string    `json:"userUid"`
	Title     string    `json:"title"`
	Amount    float64   `json:"amount"`
	Category  string    `json:"category"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ExpensePatch carries the fields of a partial update. Nil fields are left
// unchanged.
type ExpensePatch struct {
	Title    *string
	Amount   *float64
	Category *string
	Date     *time.Time
}
