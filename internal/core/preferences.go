package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/atlantishq/dispatchd/internal/sqlite"
	"github.com/atlantishq/dispatchd/pkg/models"
)

// DefaultMethodWeights is the baseline ranking applied when a user has no
// stored preferences: signal first, then email, then ntfy.
var DefaultMethodWeights = models.MethodWeights{Signal: 3, Email: 2, Ntfy: 1}

// GetPreferences returns a user's method weights, lazily persisting the
// defaults on first read. isDefault reports that the stored values are the
// untouched defaults.
func GetPreferences(ctx context.Context, db *sqlite.DB, username string) (models.MethodWeights, bool, error) {
	prefsJSON, err := db.GetPreferencesJSON(ctx, username)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			payload, merr := json.Marshal(DefaultMethodWeights)
			if merr != nil {
				return DefaultMethodWeights, true, fmt.Errorf("failed to serialize default preferences: %w", merr)
			}
			if uerr := db.UpsertPreferencesJSON(ctx, username, string(payload)); uerr != nil {
				return DefaultMethodWeights, true, uerr
			}
			return DefaultMethodWeights, true, nil
		}
		return DefaultMethodWeights, false, fmt.Errorf("failed to load preferences: %w", err)
	}

	trimmed := strings.TrimSpace(prefsJSON)
	if trimmed == "" || trimmed == "{}" {
		return DefaultMethodWeights, true, nil
	}

	var stored models.MethodWeights
	if err := json.Unmarshal([]byte(prefsJSON), &stored); err != nil {
		return DefaultMethodWeights, true, fmt.Errorf("failed to parse preferences: %w", err)
	}
	return stored, stored == DefaultMethodWeights, nil
}

// UpdatePreferences applies a partial weight update and persists the result.
func UpdatePreferences(ctx context.Context, db *sqlite.DB, username string, update models.UpdatePreferencesRequest) (models.MethodWeights, error) {
	if err := validateWeightsUpdate(update); err != nil {
		return DefaultMethodWeights, err
	}

	current, _, err := GetPreferences(ctx, db, username)
	if err != nil {
		return DefaultMethodWeights, err
	}

	next := current
	if update.Signal != nil {
		next.Signal = *update.Signal
	}
	if update.Email != nil {
		next.Email = *update.Email
	}
	if update.Ntfy != nil {
		next.Ntfy = *update.Ntfy
	}

	payload, err := json.Marshal(next)
	if err != nil {
		return DefaultMethodWeights, fmt.Errorf("failed to serialize preferences: %w", err)
	}
	if err := db.UpsertPreferencesJSON(ctx, username, string(payload)); err != nil {
		return DefaultMethodWeights, err
	}
	return next, nil
}

func validateWeightsUpdate(update models.UpdatePreferencesRequest) error {
	check := func(field string, v *int) error {
		if v != nil && *v < 0 {
			return &ValidationError{Field: field, Message: "weight must not be negative"}
		}
		return nil
	}
	if err := check("signal", update.Signal); err != nil {
		return err
	}
	if err := check("email", update.Email); err != nil {
		return err
	}
	return check("ntfy", update.Ntfy)
}

// ResolveWeights maps a weight ranking to a concrete delivery method.
// The highest weight wins; ties resolve in the fixed order signal, email,
// ntfy. Deterministic, no randomness.
func ResolveWeights(w models.MethodWeights) models.DeliveryMethod {
	switch {
	case w.Signal >= w.Email && w.Signal >= w.Ntfy:
		return models.MethodSignal
	case w.Email >= w.Ntfy:
		return models.MethodEmail
	default:
		return models.MethodNtfy
	}
}

// FallbackMethod picks a channel from the recipient's reachable addresses
// when no preferences are stored: phone means signal, otherwise email if an
// address exists, otherwise ntfy.
func FallbackMethod(phone, email string) models.DeliveryMethod {
	switch {
	case phone != "":
		return models.MethodSignal
	case email != "":
		return models.MethodEmail
	default:
		return models.MethodNtfy
	}
}

// EffectiveMethod resolves a stored "any" method for one recipient. Missing
// preferences fall back to address-based resolution; the pull path never
// creates preference rows.
func EffectiveMethod(ctx context.Context, db *sqlite.DB, username, phone, email string) (models.DeliveryMethod, error) {
	prefsJSON, err := db.GetPreferencesJSON(ctx, username)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return FallbackMethod(phone, email), nil
		}
		return "", err
	}

	var weights models.MethodWeights
	if err := json.Unmarshal([]byte(prefsJSON), &weights); err != nil {
		return "", fmt.Errorf("failed to parse preferences for %s: %w", username, err)
	}
	return ResolveWeights(weights), nil
}
