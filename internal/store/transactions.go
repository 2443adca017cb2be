package store

import (
	"fmt"
	"time"
)

// Transaction types and sources.
const (
	TxnDebit  = "DEBIT"
	TxnCredit = "CREDIT"

	SourceManual = "MANUAL"
	SourceImport = "IMPORT"
)

// Transaction is a single debit or credit.
type Transaction struct {
	ID        int64
	UserID    int64
	Category  string
	Date      string // YYYY-MM-DD
	Type      string // DEBIT or CREDIT
	Amount    float64
	Narration string
	Mode      string
	Source    string
}

// TxnFilter narrows ListTransactions.
type TxnFilter struct {
	StartDate string // inclusive, YYYY-MM-DD
	EndDate   string // inclusive
	Source    string
	Limit     int
}

// ListTransactions returns transactions for a user, newest first.
func (s *Store) ListTransactions(userID int64, f TxnFilter) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, user_id, COALESCE(category, ''), transaction_date, type, amount,
		COALESCE(narration, ''), COALESCE(mode, ''), COALESCE(source, '')
		FROM transactions WHERE user_id = ?`
	args := []interface{}{userID}

	if f.StartDate != "" {
		query += " AND transaction_date >= ?"
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		query += " AND transaction_date <= ?"
		args = append(args, f.EndDate)
	}
	if f.Source != "" {
		query += " AND source = ?"
		args = append(args, f.Source)
	}
	query += " ORDER BY transaction_date DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Category, &t.Date, &t.Type, &t.Amount, &t.Narration, &t.Mode, &t.Source); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AddTransaction records a transaction and applies its delta to the running
// balance inside one database transaction. The category is resolved (fuzzy)
// or created; the category type follows the transaction type.
func (s *Store) AddTransaction(t Transaction) (int64, error) {
	if t.Date == "" {
		t.Date = time.Now().Format("2006-01-02")
	}
	if t.Source == "" {
		t.Source = SourceManual
	}
	if t.Type != TxnDebit && t.Type != TxnCredit {
		return 0, fmt.Errorf("invalid transaction type %q", t.Type)
	}
	if t.Amount <= 0 {
		return 0, fmt.Errorf("transaction amount must be positive, got %v", t.Amount)
	}

	catType := CategoryExpense
	if t.Type == TxnCredit {
		catType = CategoryIncome
	}
	cat, err := s.ResolveCategory(t.UserID, t.Category, catType)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO transactions
		(user_id, category_id, transaction_date, type, amount, category, narration, mode, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, cat.ID, t.Date, t.Type, t.Amount, cat.Name, t.Narration, t.Mode, t.Source)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	delta := t.Amount
	if t.Type == TxnDebit {
		delta = -t.Amount
	}
	if err := applyBalanceDelta(tx, t.UserID, delta); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}
