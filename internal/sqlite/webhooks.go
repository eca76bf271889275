package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atlantishq/dispatchd/pkg/models"
)

const (
	insertWebhookQuery = `INSERT INTO webhook_bindings (path, username, created_at) VALUES (?, ?, ?)`

	getWebhookQuery = `SELECT path, username, created_at FROM webhook_bindings WHERE path = ?`

	listWebhooksQuery = `SELECT path, username, created_at FROM webhook_bindings WHERE username = ? ORDER BY created_at ASC`

	deleteWebhookQuery = `DELETE FROM webhook_bindings WHERE path = ?`
)

// InsertWebhookBinding stores a new path token for a user.
func (db *DB) InsertWebhookBinding(ctx context.Context, binding *models.WebhookBinding) error {
	if binding == nil {
		return fmt.Errorf("webhook binding is required")
	}
	_, err := db.writeDB.ExecContext(ctx, insertWebhookQuery,
		binding.Path, binding.Username, binding.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert webhook binding: %w", err)
	}
	return nil
}

// GetWebhookBinding looks up the binding for an inbound webhook path.
func (db *DB) GetWebhookBinding(ctx context.Context, path string) (*models.WebhookBinding, error) {
	binding, err := scanWebhookBinding(db.readDB.QueryRowContext(ctx, getWebhookQuery, path))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get webhook binding: %w", err)
	}
	return binding, nil
}

// ListWebhookBindings returns all path tokens held by a user.
func (db *DB) ListWebhookBindings(ctx context.Context, username string) ([]*models.WebhookBinding, error) {
	rows, err := db.readDB.QueryContext(ctx, listWebhooksQuery, username)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook bindings: %w", err)
	}
	defer rows.Close()

	var bindings []*models.WebhookBinding
	for rows.Next() {
		binding, err := scanWebhookBinding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook binding: %w", err)
		}
		bindings = append(bindings, binding)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating webhook bindings: %w", err)
	}
	return bindings, nil
}

// DeleteWebhookBinding removes a path token. Returns ErrNotFound when the
// path does not exist.
func (db *DB) DeleteWebhookBinding(ctx context.Context, path string) error {
	res, err := db.writeDB.ExecContext(ctx, deleteWebhookQuery, path)
	if err != nil {
		return fmt.Errorf("failed to delete webhook binding: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func scanWebhookBinding(row rowScanner) (*models.WebhookBinding, error) {
	var (
		binding   models.WebhookBinding
		createdMs int64
	)
	if err := row.Scan(&binding.Path, &binding.Username, &createdMs); err != nil {
		return nil, err
	}
	binding.CreatedAt = time.UnixMilli(createdMs).UTC()
	return &binding, nil
}
