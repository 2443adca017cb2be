package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"

	"finguard/internal/logging"
)

// Category types.
const (
	CategoryExpense = "expense"
	CategoryIncome  = "income"
)

// Category is a per-user transaction category.
type Category struct {
	ID     int64
	UserID int64
	Name   string
	Type   string
}

// ListCategories returns all categories of a type for a user.
func (s *Store) ListCategories(userID int64, catType string) ([]Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT id, user_id, name, type FROM categories WHERE user_id = ? AND type = ? ORDER BY name",
		userID, catType,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Type); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ResolveCategory maps a free-text category name onto an existing category,
// tolerating case differences and partial names ("food" matches
// "Food & Dining"). When nothing matches, a new category is created with the
// given name.
func (s *Store) ResolveCategory(userID int64, name, catType string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Uncategorized"
	}

	existing, err := s.ListCategories(userID, catType)
	if err != nil {
		return Category{}, err
	}

	// Exact match first (case-insensitive).
	for _, c := range existing {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}

	// Fuzzy match against existing names.
	names := make([]string, len(existing))
	for i, c := range existing {
		names[i] = c.Name
	}
	// fuzzy.Find matches any subsequence, so a short input like "cat" would
	// hit "Education". Only positively-scored matches (prefix or separator
	// aligned) count as a resolution.
	matches := fuzzy.Find(strings.ToLower(name), lowered(names))
	if len(matches) > 0 && matches[0].Score > 0 {
		c := existing[matches[0].Index]
		logging.StoreDebug("Fuzzy-resolved category %q -> %q", name, c.Name)
		return c, nil
	}

	return s.createCategory(userID, name, catType)
}

func lowered(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func (s *Store) createCategory(userID int64, name, catType string) (Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		"INSERT INTO categories (user_id, name, type) VALUES (?, ?, ?)",
		userID, name, catType,
	)
	if err != nil {
		return Category{}, fmt.Errorf("failed to create category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Category{}, err
	}
	return Category{ID: id, UserID: userID, Name: name, Type: catType}, nil
}

// CategoryByID returns a category by id.
func (s *Store) CategoryByID(id int64) (Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c Category
	err := s.db.QueryRow(
		"SELECT id, user_id, name, type FROM categories WHERE id = ?", id,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return Category{}, ErrNotFound
	}
	if err != nil {
		return Category{}, fmt.Errorf("failed to load category: %w", err)
	}
	return c, nil
}
