package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// CachedInsight returns the newest unexpired cached insight of a type, or
// ErrNotFound.
func (s *Store) CachedInsight(userID int64, insightType string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.db.QueryRow(`SELECT data_json FROM insights_cache
		WHERE user_id = ? AND insight_type = ? AND expires_at > ?
		ORDER BY computed_at DESC LIMIT 1`,
		userID, insightType, time.Now().UTC().Format(time.RFC3339)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read insight cache: %w", err)
	}
	return json.RawMessage(data), nil
}

// SaveInsight caches an insight payload with a TTL.
func (s *Store) SaveInsight(userID int64, insightType string, data interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal insight: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expires := time.Now().UTC().Add(ttl).Format(time.RFC3339)
	_, err = s.db.Exec(`INSERT INTO insights_cache (user_id, insight_type, data_json, expires_at)
		VALUES (?, ?, ?, ?)`,
		userID, insightType, string(payload), expires)
	if err != nil {
		return fmt.Errorf("failed to save insight: %w", err)
	}
	return nil
}

// PurgeExpiredInsights removes expired cache rows. Returns rows removed.
func (s *Store) PurgeExpiredInsights() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM insights_cache WHERE expires_at <= ?",
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to purge insights: %w", err)
	}
	return res.RowsAffected()
}
