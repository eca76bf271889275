package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	getPreferencesQuery = `SELECT preferences_json FROM user_preferences WHERE username = ?`

	upsertPreferencesQuery = `INSERT INTO user_preferences (username, preferences_json, created_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (username) DO UPDATE SET
    preferences_json = excluded.preferences_json,
    updated_at = excluded.updated_at`
)

// GetPreferencesJSON retrieves the raw method-weight JSON for a user.
func (db *DB) GetPreferencesJSON(ctx context.Context, username string) (string, error) {
	var prefsJSON string
	err := db.readDB.QueryRowContext(ctx, getPreferencesQuery, username).Scan(&prefsJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get preferences for user %s: %w", username, err)
	}
	return prefsJSON, nil
}

// UpsertPreferencesJSON inserts or updates the raw method-weight JSON for a user.
func (db *DB) UpsertPreferencesJSON(ctx context.Context, username, prefsJSON string) error {
	now := time.Now().UnixMilli()
	if _, err := db.writeDB.ExecContext(ctx, upsertPreferencesQuery, username, prefsJSON, now, now); err != nil {
		return fmt.Errorf("failed to upsert preferences for user %s: %w", username, err)
	}
	return nil
}
