package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/atlantishq/dispatchd/internal/sqlite"
)

// The downtime window is an absolute deadline in the settings table rather
// than process-global state, so it survives restarts and every instance
// observes the same value. Submission handlers consult it per request;
// that read is the documented refresh trigger.
const downtimeUntilKey = "downtime.until"

// SetDowntime suppresses inbound alerts for the given duration and returns
// the deadline.
func SetDowntime(ctx context.Context, db *sqlite.DB, log *slog.Logger, d time.Duration) (time.Time, error) {
	if d <= 0 {
		return time.Time{}, fmt.Errorf("downtime duration must be positive")
	}
	until := time.Now().UTC().Add(d)
	if err := db.SetSetting(ctx, downtimeUntilKey, until.Format(time.RFC3339)); err != nil {
		return time.Time{}, err
	}
	log.Info("downtime window set", "until", until)
	return until, nil
}

// ClearDowntime lifts the suppression window immediately.
func ClearDowntime(ctx context.Context, db *sqlite.DB, log *slog.Logger) error {
	if err := db.DeleteSetting(ctx, downtimeUntilKey); err != nil {
		return err
	}
	log.Info("downtime window cleared")
	return nil
}

// DowntimeUntil reports whether a suppression window is active and, if so,
// when it ends. A malformed stored value counts as no downtime.
func DowntimeUntil(ctx context.Context, db *sqlite.DB) (time.Time, bool, error) {
	value, err := db.GetSetting(ctx, downtimeUntilKey)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}

	until, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false, nil
	}
	return until, until.After(time.Now()), nil
}
