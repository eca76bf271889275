package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/atlantishq/dispatchd/internal/sqlite"
	"github.com/atlantishq/dispatchd/pkg/models"
)

var (
	enqueuedTotal  = metrics.NewCounter("dispatch_enqueued_total")
	pulledTotal    = metrics.NewCounter("dispatch_pulled_total")
	confirmedTotal = metrics.NewCounter("dispatch_confirmed_total")
	failedTotal    = metrics.NewCounter("dispatch_failed_total")
	deadTotal      = metrics.NewCounter("dispatch_dead_lettered_total")
)

// Enqueue creates one pending dispatch entry per recipient and returns the
// generated ids in recipient order. Entries are persisted one at a time;
// a failure mid-batch leaves the earlier entries queued, which is safe
// because each entry is independently retryable.
func Enqueue(ctx context.Context, db *sqlite.DB, log *slog.Logger, recipients []models.Recipient, title, message, link string, method models.DeliveryMethod) ([]string, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	if method == "" {
		method = models.MethodAny
	}
	if !models.ValidEnqueueMethod(method) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}

	var uuids []string
	for _, r := range recipients {
		if r.Username == "" {
			continue
		}

		entry := &models.DispatchEntry{
			UUID:      newDispatchID(),
			Username:  r.Username,
			Phone:     r.Phone,
			Email:     r.Email,
			Title:     title,
			Message:   message,
			Link:      link,
			Method:    method,
			State:     models.DispatchStatePending,
			CreatedAt: time.Now().UTC(),
		}

		if err := db.InsertDispatch(ctx, entry); err != nil {
			return uuids, fmt.Errorf("failed to enqueue for %s: %w", r.Username, err)
		}

		enqueuedTotal.Inc()
		log.Debug("dispatch enqueued", "uuid", entry.UUID, "username", r.Username, "method", method)
		uuids = append(uuids, entry.UUID)
	}

	return uuids, nil
}

// PullOptions controls queue visibility for one pull.
type PullOptions struct {
	// Method filters entries by effective delivery method. MethodAll
	// bypasses the filter and leaves stored "any" methods unresolved.
	Method models.DeliveryMethod

	// SettleWindow hides entries younger than this so alert bursts can
	// coalesce before a worker claims them.
	SettleWindow time.Duration

	// Lease, when positive, stamps returned entries with a lease expiry so
	// concurrent pulls do not hand the same entry to two workers. Zero
	// keeps the original always-redeliver behavior. MethodAll pulls are
	// diagnostic and never lease.
	Lease time.Duration
}

func validPullMethod(m models.DeliveryMethod) bool {
	switch m {
	case models.MethodSignal, models.MethodEmail, models.MethodNtfy,
		models.MethodDebug, models.MethodDebugFail, models.MethodAll:
		return true
	default:
		return false
	}
}

// Pull returns the individual view of all due entries matching the requested
// method. It is non-destructive: entries remain visible to repeated pulls
// until confirmed or failed (or leased, when leasing is enabled).
func Pull(ctx context.Context, db *sqlite.DB, log *slog.Logger, opts PullOptions) ([]models.DispatchView, error) {
	if !validPullMethod(opts.Method) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, opts.Method)
	}

	now := time.Now().UTC()
	cutoff := now.Add(-opts.SettleWindow)

	entries, err := db.ListDueDispatches(ctx, cutoff, now)
	if err != nil {
		return nil, err
	}

	prefsCache := make(map[string]models.DeliveryMethod)

	var views []models.DispatchView
	var leased []string
	for _, entry := range entries {
		effective := entry.Method

		if opts.Method != models.MethodAll {
			if entry.Method == models.MethodAny {
				effective, err = cachedEffectiveMethod(ctx, db, entry, prefsCache)
				if err != nil {
					return nil, err
				}
			}
			if effective != opts.Method {
				continue
			}
		}

		views = append(views, models.DispatchView{
			UUID:      entry.UUID,
			Username:  entry.Username,
			Phone:     entry.Phone,
			Email:     entry.Email,
			Title:     entry.Title,
			Message:   entry.Message,
			Link:      entry.Link,
			Method:    effective,
			Attempts:  entry.Attempts,
			LastError: entry.LastError,
			CreatedAt: entry.CreatedAt,
		})
		leased = append(leased, entry.UUID)
	}

	if opts.Lease > 0 && opts.Method != models.MethodAll && len(leased) > 0 {
		if err := db.LeaseDispatches(ctx, leased, now.Add(opts.Lease)); err != nil {
			return nil, err
		}
	}

	pulledTotal.Add(len(views))
	log.Debug("dispatch queue pulled", "method", opts.Method, "entries", len(views))
	return views, nil
}

// cachedEffectiveMethod resolves "any" against the recipient's stored weights,
// memoized for the duration of one pull. The key carries the entry's addresses
// because the no-preferences fallback depends on them, and two entries for the
// same user can record different addresses.
func cachedEffectiveMethod(ctx context.Context, db *sqlite.DB, entry *models.DispatchEntry, cache map[string]models.DeliveryMethod) (models.DeliveryMethod, error) {
	key := entry.Username + "\x00" + entry.Phone + "\x00" + entry.Email
	if m, ok := cache[key]; ok {
		return m, nil
	}
	m, err := EffectiveMethod(ctx, db, entry.Username, entry.Phone, entry.Email)
	if err != nil {
		return "", err
	}
	cache[key] = m
	return m, nil
}

// Combine folds the individual view into the legacy single-message-per-person
// form: messages for the same recipient are concatenated with newlines in
// creation order and every member uuid is carried so each entry can still be
// confirmed independently.
func Combine(views []models.DispatchView) []models.CombinedDispatch {
	var combined []models.CombinedDispatch
	index := make(map[string]int)

	for _, v := range views {
		i, ok := index[v.Username]
		if !ok {
			index[v.Username] = len(combined)
			combined = append(combined, models.CombinedDispatch{
				Person:  v.Username,
				Message: v.Message,
				Method:  v.Method,
				Phone:   v.Phone,
				Email:   v.Email,
				UUIDs:   []string{v.UUID},
			})
			continue
		}

		combined[i].Message += "\n" + v.Message
		combined[i].UUIDs = append(combined[i].UUIDs, v.UUID)
		if combined[i].Phone == "" {
			combined[i].Phone = v.Phone
		}
		if combined[i].Email == "" {
			combined[i].Email = v.Email
		}
	}

	return combined
}

// Confirm deletes a delivered entry. A missing uuid yields ErrNotFound,
// which callers treat as an expected duplicate confirmation.
func Confirm(ctx context.Context, db *sqlite.DB, log *slog.Logger, uuid string) error {
	if err := db.DeleteDispatch(ctx, uuid); err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	confirmedTotal.Inc()
	log.Debug("dispatch confirmed", "uuid", uuid)
	return nil
}

// Fail records a delivery error on the entry without deleting it, so the
// next pull retries it. With maxAttempts > 0 the entry is dead-lettered once
// the attempt counter reaches the cap.
func Fail(ctx context.Context, db *sqlite.DB, log *slog.Logger, uuid, errText string, maxAttempts int) error {
	if err := db.RecordDispatchFailure(ctx, uuid, errText, maxAttempts); err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	failedTotal.Inc()

	entry, err := db.GetDispatch(ctx, uuid)
	if err == nil && entry.State == models.DispatchStateDead {
		deadTotal.Inc()
		log.Warn("dispatch dead-lettered", "uuid", uuid, "attempts", entry.Attempts, "error", errText)
		return nil
	}

	log.Debug("dispatch failure recorded", "uuid", uuid, "error", errText)
	return nil
}

// Status reports whether a previously enqueued entry is still waiting for
// delivery. Confirmed entries are gone and report not_found.
func Status(ctx context.Context, db *sqlite.DB, uuid string) (models.DispatchStatus, error) {
	entry, err := db.GetDispatch(ctx, uuid)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return models.DispatchStatusNotFound, nil
		}
		return "", err
	}
	if entry.State == models.DispatchStateDead {
		return models.DispatchStatusDead, nil
	}
	return models.DispatchStatusQueued, nil
}

// newDispatchID generates the opaque dispatch handle: 32 bytes of randomness,
// URL-safe encoded. The id is the sole primary key of an entry; identity is
// never derived from content fields.
func newDispatchID() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(fmt.Sprintf("failed to read random bytes: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
