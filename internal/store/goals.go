package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// Goal is a savings goal with progress tracking.
type Goal struct {
	ID            int64
	UserID        int64
	Name          string
	TargetAmount  float64
	CurrentAmount float64
	TargetDate    string // YYYY-MM-DD, may be empty
}

// CreateGoal creates a new savings goal.
func (s *Store) CreateGoal(userID int64, name string, target float64, targetDate string) (int64, error) {
	if target <= 0 {
		return 0, fmt.Errorf("goal target must be positive, got %v", target)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		"INSERT INTO goals (user_id, name, target_amount, target_date) VALUES (?, ?, ?, ?)",
		userID, name, target, nullable(targetDate),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create goal: %w", err)
	}
	return res.LastInsertId()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// ListGoals returns all goals for a user.
func (s *Store) ListGoals(userID int64) ([]Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, user_id, name, target_amount, current_amount,
		COALESCE(target_date, '') FROM goals WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	var out []Goal
	for rows.Next() {
		var g Goal
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &g.TargetDate); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GoalByID returns one goal, or ErrNotFound.
func (s *Store) GoalByID(userID, goalID int64) (Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var g Goal
	err := s.db.QueryRow(`SELECT id, user_id, name, target_amount, current_amount,
		COALESCE(target_date, '') FROM goals WHERE id = ? AND user_id = ?`,
		goalID, userID).Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &g.TargetDate)
	if errors.Is(err, sql.ErrNoRows) {
		return Goal{}, ErrNotFound
	}
	if err != nil {
		return Goal{}, fmt.Errorf("failed to load goal: %w", err)
	}
	return g, nil
}

// AddToGoal increments a goal's saved amount. The increment happens in a
// single UPDATE so concurrent sessions for the same user cannot lose
// progress to a read-modify-write race. Returns the updated goal.
func (s *Store) AddToGoal(userID, goalID int64, amount float64) (Goal, error) {
	if amount <= 0 {
		return Goal{}, fmt.Errorf("amount must be positive, got %v", amount)
	}

	s.mu.Lock()
	res, err := s.db.Exec(
		"UPDATE goals SET current_amount = current_amount + ? WHERE id = ? AND user_id = ?",
		amount, goalID, userID,
	)
	s.mu.Unlock()
	if err != nil {
		return Goal{}, fmt.Errorf("failed to update goal: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return Goal{}, ErrNotFound
	}
	return s.GoalByID(userID, goalID)
}

// DeleteGoal removes a goal. Returns ErrNotFound when nothing was deleted.
func (s *Store) DeleteGoal(userID, goalID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM goals WHERE id = ? AND user_id = ?", goalID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
