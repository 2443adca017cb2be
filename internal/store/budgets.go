package store

import (
	"fmt"
	"time"
)

// Budget is a monthly spending limit for one category.
type Budget struct {
	ID           int64
	UserID       int64
	CategoryID   int64
	CategoryName string
	AmountLimit  float64
	Month        string // YYYY-MM
}

// CurrentMonth returns the current month in budget format.
func CurrentMonth() string {
	return time.Now().Format("2006-01")
}

// UpsertBudget sets or replaces the budget for a category and month. The
// category name is fuzzy-resolved against existing expense categories.
func (s *Store) UpsertBudget(userID int64, categoryName string, limit float64, month string) (Budget, error) {
	if month == "" {
		month = CurrentMonth()
	}
	if limit <= 0 {
		return Budget{}, fmt.Errorf("budget limit must be positive, got %v", limit)
	}

	cat, err := s.ResolveCategory(userID, categoryName, CategoryExpense)
	if err != nil {
		return Budget{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`INSERT INTO budgets (user_id, category_id, amount_limit, month)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, category_id, month) DO UPDATE SET
			amount_limit = excluded.amount_limit`,
		userID, cat.ID, limit, month)
	if err != nil {
		return Budget{}, fmt.Errorf("failed to upsert budget: %w", err)
	}

	// LastInsertId is meaningless on the DO UPDATE path; read the row id back.
	var id int64
	err = s.db.QueryRow(
		"SELECT id FROM budgets WHERE user_id = ? AND category_id = ? AND month = ?",
		userID, cat.ID, month,
	).Scan(&id)
	if err != nil {
		return Budget{}, fmt.Errorf("failed to read budget id: %w", err)
	}
	return Budget{
		ID:           id,
		UserID:       userID,
		CategoryID:   cat.ID,
		CategoryName: cat.Name,
		AmountLimit:  limit,
		Month:        month,
	}, nil
}

// DeleteBudget removes the budget for a category and month. Returns
// ErrNotFound when nothing was deleted.
func (s *Store) DeleteBudget(userID int64, categoryName, month string) error {
	if month == "" {
		month = CurrentMonth()
	}
	cat, err := s.ResolveCategory(userID, categoryName, CategoryExpense)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		"DELETE FROM budgets WHERE user_id = ? AND category_id = ? AND month = ?",
		userID, cat.ID, month,
	)
	if err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBudgets returns budgets for a month (all months when empty).
func (s *Store) ListBudgets(userID int64, month string) ([]Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT b.id, b.user_id, b.category_id, c.name, b.amount_limit, b.month
		FROM budgets b JOIN categories c ON b.category_id = c.id
		WHERE b.user_id = ?`
	args := []interface{}{userID}
	if month != "" {
		query += " AND b.month = ?"
		args = append(args, month)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	defer rows.Close()

	var out []Budget
	for rows.Next() {
		var b Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.CategoryName, &b.AmountLimit, &b.Month); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SpentInMonth sums debit spending for a category in a month.
func (s *Store) SpentInMonth(userID, categoryID int64, month string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var spent float64
	err := s.db.QueryRow(`SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE user_id = ? AND category_id = ?
		AND substr(transaction_date, 1, 7) = ?
		AND type = 'DEBIT'`,
		userID, categoryID, month).Scan(&spent)
	if err != nil {
		return 0, fmt.Errorf("failed to sum spending: %w", err)
	}
	return spent, nil
}
