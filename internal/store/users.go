package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// User is a registered user keyed by phone number.
type User struct {
	ID          int64
	PhoneNumber string
}

// UserIDByPhone returns the user id for a phone number, or ErrNotFound.
func (s *Store) UserIDByPhone(phone string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var id int64
	err := s.db.QueryRow("SELECT id FROM users WHERE phone_number = ?", phone).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up user: %w", err)
	}
	return id, nil
}

// CreateUser creates a new user and returns its id.
func (s *Store) CreateUser(phone string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("INSERT INTO users (phone_number) VALUES (?)", phone)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	return res.LastInsertId()
}

// GetOrCreateUser returns the existing user id for a phone number, creating
// the user when missing.
func (s *Store) GetOrCreateUser(phone string) (int64, error) {
	id, err := s.UserIDByPhone(phone)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	return s.CreateUser(phone)
}

// UserExists reports whether the user id exists.
func (s *Store) UserExists(userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var one int
	err := s.db.QueryRow("SELECT 1 FROM users WHERE id = ?", userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return true, nil
}
