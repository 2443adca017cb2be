package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// Balance returns the running balance for a user. A user with no recorded
// transactions has a zero balance.
func (s *Store) Balance(userID int64) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b float64
	err := s.db.QueryRow("SELECT balance FROM balances WHERE user_id = ?", userID).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return b, nil
}

// applyBalanceDelta adjusts the running balance inside an existing database
// transaction. The single-row UPSERT with an arithmetic update keeps
// concurrent sessions from losing increments.
func applyBalanceDelta(tx *sql.Tx, userID int64, delta float64) error {
	_, err := tx.Exec(`INSERT INTO balances (user_id, balance, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			balance = balance + excluded.balance,
			updated_at = CURRENT_TIMESTAMP`,
		userID, delta)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return nil
}

// RecalculateBalance rebuilds the running balance from scratch by summing all
// transactions. Use after bulk imports or to repair drift.
func (s *Store) RecalculateBalance(userID int64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total float64
	err := s.db.QueryRow(`SELECT COALESCE(SUM(
			CASE type WHEN 'CREDIT' THEN amount ELSE -amount END
		), 0) FROM transactions WHERE user_id = ?`, userID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}

	_, err = s.db.Exec(`INSERT INTO balances (user_id, balance, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			balance = excluded.balance,
			updated_at = CURRENT_TIMESTAMP`,
		userID, total)
	if err != nil {
		return 0, fmt.Errorf("failed to store recalculated balance: %w", err)
	}
	return total, nil
}
