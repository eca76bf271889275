package core

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/atlantishq/dispatchd/internal/sqlite"
	"github.com/atlantishq/dispatchd/pkg/models"
)

// CreateWebhook mints a new opaque path token bound to the given user.
// A user may hold any number of tokens.
func CreateWebhook(ctx context.Context, db *sqlite.DB, log *slog.Logger, username string) (*models.WebhookBinding, error) {
	binding := &models.WebhookBinding{
		Path:      uuid.NewString(),
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.InsertWebhookBinding(ctx, binding); err != nil {
		return nil, err
	}
	log.Info("webhook binding created", "username", username)
	return binding, nil
}

// ListWebhooks returns all bindings held by a user.
func ListWebhooks(ctx context.Context, db *sqlite.DB, username string) ([]*models.WebhookBinding, error) {
	return db.ListWebhookBindings(ctx, username)
}

// ResolveWebhook looks up the user a webhook path is bound to.
func ResolveWebhook(ctx context.Context, db *sqlite.DB, path string) (string, error) {
	binding, err := db.GetWebhookBinding(ctx, path)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return binding.Username, nil
}

// DeleteWebhook removes a binding by its path token.
func DeleteWebhook(ctx context.Context, db *sqlite.DB, log *slog.Logger, path string) error {
	if err := db.DeleteWebhookBinding(ctx, path); err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	log.Info("webhook binding deleted")
	return nil
}
