package store

import "fmt"

// Loan is an outstanding loan.
type Loan struct {
	ID               int64
	UserID           int64
	Name             string
	PrincipalAmount  float64
	RemainingBalance float64
	EMIAmount        float64
	InterestRate     float64
	NextDueDate      string
}

// CreditCard is a credit card with outstanding dues.
type CreditCard struct {
	ID             int64
	UserID         int64
	CardName       string
	CreditLimit    float64
	CurrentBalance float64
	DueDate        string
}

// CreateLoan records a loan.
func (s *Store) CreateLoan(l Loan) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`INSERT INTO loans
		(user_id, name, principal_amount, remaining_balance, emi_amount, interest_rate, next_due_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.UserID, l.Name, l.PrincipalAmount, l.RemainingBalance, l.EMIAmount, l.InterestRate, nullable(l.NextDueDate))
	if err != nil {
		return 0, fmt.Errorf("failed to create loan: %w", err)
	}
	return res.LastInsertId()
}

// ListLoans returns all loans for a user.
func (s *Store) ListLoans(userID int64) ([]Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, user_id, name, principal_amount, remaining_balance,
		emi_amount, interest_rate, COALESCE(next_due_date, '')
		FROM loans WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	defer rows.Close()

	var out []Loan
	for rows.Next() {
		var l Loan
		if err := rows.Scan(&l.ID, &l.UserID, &l.Name, &l.PrincipalAmount, &l.RemainingBalance,
			&l.EMIAmount, &l.InterestRate, &l.NextDueDate); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CreateCreditCard records a credit card.
func (s *Store) CreateCreditCard(c CreditCard) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`INSERT INTO credit_cards
		(user_id, card_name, credit_limit, current_balance, due_date)
		VALUES (?, ?, ?, ?, ?)`,
		c.UserID, c.CardName, c.CreditLimit, c.CurrentBalance, nullable(c.DueDate))
	if err != nil {
		return 0, fmt.Errorf("failed to create credit card: %w", err)
	}
	return res.LastInsertId()
}

// ListCreditCards returns all credit cards for a user.
func (s *Store) ListCreditCards(userID int64) ([]CreditCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, user_id, card_name, credit_limit, current_balance,
		COALESCE(due_date, '') FROM credit_cards WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credit cards: %w", err)
	}
	defer rows.Close()

	var out []CreditCard
	for rows.Next() {
		var c CreditCard
		if err := rows.Scan(&c.ID, &c.UserID, &c.CardName, &c.CreditLimit, &c.CurrentBalance, &c.DueDate); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
