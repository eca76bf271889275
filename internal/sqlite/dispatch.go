package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/atlantishq/dispatchd/pkg/models"
)

const (
	insertDispatchQuery = `INSERT INTO dispatch_queue (
    uuid,
    username,
    phone,
    email,
    title,
    message,
    link,
    method,
    state,
    attempts,
    last_error,
    created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectDispatchBase = `SELECT
    uuid,
    username,
    phone,
    email,
    title,
    message,
    link,
    method,
    state,
    attempts,
    last_error,
    lease_expires_at,
    created_at
FROM dispatch_queue`

	listDueDispatchesQuery = selectDispatchBase + `
WHERE state = 'pending'
  AND created_at < ?
  AND (lease_expires_at IS NULL OR lease_expires_at <= ?)
ORDER BY created_at ASC, uuid ASC`

	listDeadDispatchesQuery = selectDispatchBase + `
WHERE state = 'dead'
ORDER BY created_at ASC, uuid ASC`

	deleteDispatchQuery = `DELETE FROM dispatch_queue WHERE uuid = ?`

	// attempts is bumped and the entry is dead-lettered in one statement so a
	// concurrent confirm cannot observe a half-applied failure.
	recordFailureQuery = `UPDATE dispatch_queue
SET last_error = ?,
    attempts = attempts + 1,
    lease_expires_at = NULL,
    state = CASE WHEN ? > 0 AND attempts + 1 >= ? THEN 'dead' ELSE state END
WHERE uuid = ?`
)

// InsertDispatch persists one freshly enqueued entry.
func (db *DB) InsertDispatch(ctx context.Context, entry *models.DispatchEntry) error {
	if entry == nil {
		return fmt.Errorf("dispatch entry is required")
	}

	_, err := db.writeDB.ExecContext(ctx, insertDispatchQuery,
		entry.UUID,
		entry.Username,
		entry.Phone,
		entry.Email,
		entry.Title,
		entry.Message,
		entry.Link,
		string(entry.Method),
		string(entry.State),
		entry.Attempts,
		entry.LastError,
		entry.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert dispatch entry: %w", err)
	}
	return nil
}

// GetDispatch retrieves a single entry by uuid.
func (db *DB) GetDispatch(ctx context.Context, uuid string) (*models.DispatchEntry, error) {
	row := db.readDB.QueryRowContext(ctx, selectDispatchBase+" WHERE uuid = ?", uuid)
	entry, err := scanDispatch(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get dispatch entry: %w", err)
	}
	return entry, nil
}

// ListDueDispatches returns pending entries created before the settle cutoff
// whose lease (if any) has expired by now. Ordering is stable by creation
// time so repeated pulls and the combined view see a deterministic sequence.
func (db *DB) ListDueDispatches(ctx context.Context, cutoff, now time.Time) ([]*models.DispatchEntry, error) {
	rows, err := db.readDB.QueryContext(ctx, listDueDispatchesQuery, cutoff.UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to list due dispatch entries: %w", err)
	}
	defer rows.Close()

	return collectDispatches(rows)
}

// ListDeadDispatches returns dead-lettered entries for operator diagnostics.
func (db *DB) ListDeadDispatches(ctx context.Context) ([]*models.DispatchEntry, error) {
	rows, err := db.readDB.QueryContext(ctx, listDeadDispatchesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list dead dispatch entries: %w", err)
	}
	defer rows.Close()

	return collectDispatches(rows)
}

// LeaseDispatches stamps a lease expiry on the given entries so subsequent
// pulls skip them until the lease runs out.
func (db *DB) LeaseDispatches(ctx context.Context, uuids []string, until time.Time) error {
	if len(uuids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?, ", len(uuids)-1) + "?"
	query := "UPDATE dispatch_queue SET lease_expires_at = ? WHERE uuid IN (" + placeholders + ")"

	args := make([]any, 0, len(uuids)+1)
	args = append(args, until.UnixMilli())
	for _, id := range uuids {
		args = append(args, id)
	}

	if _, err := db.writeDB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to lease dispatch entries: %w", err)
	}
	return nil
}

// DeleteDispatch removes a confirmed entry. Returns ErrNotFound when the
// uuid no longer exists; the single-statement delete makes concurrent
// confirms race-safe (exactly one caller sees success).
func (db *DB) DeleteDispatch(ctx context.Context, uuid string) error {
	res, err := db.writeDB.ExecContext(ctx, deleteDispatchQuery, uuid)
	if err != nil {
		return fmt.Errorf("failed to delete dispatch entry: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordDispatchFailure stores the delivery error, bumps the attempt counter
// and dead-letters the entry once maxAttempts (>0) is reached. The entry is
// never deleted; it stays visible to future pulls while pending.
func (db *DB) RecordDispatchFailure(ctx context.Context, uuid, errText string, maxAttempts int) error {
	res, err := db.writeDB.ExecContext(ctx, recordFailureQuery, errText, maxAttempts, maxAttempts, uuid)
	if err != nil {
		return fmt.Errorf("failed to record dispatch failure: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for the scan helper.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDispatch(row rowScanner) (*models.DispatchEntry, error) {
	var (
		entry     models.DispatchEntry
		method    string
		state     string
		leaseMs   sql.NullInt64
		createdMs int64
	)

	if err := row.Scan(
		&entry.UUID,
		&entry.Username,
		&entry.Phone,
		&entry.Email,
		&entry.Title,
		&entry.Message,
		&entry.Link,
		&method,
		&state,
		&entry.Attempts,
		&entry.LastError,
		&leaseMs,
		&createdMs,
	); err != nil {
		return nil, err
	}

	entry.Method = models.DeliveryMethod(method)
	entry.State = models.DispatchState(state)
	entry.CreatedAt = time.UnixMilli(createdMs).UTC()
	if leaseMs.Valid {
		t := time.UnixMilli(leaseMs.Int64).UTC()
		entry.LeaseExpiresAt = &t
	}
	return &entry, nil
}

func collectDispatches(rows *sql.Rows) ([]*models.DispatchEntry, error) {
	var entries []*models.DispatchEntry
	for rows.Next() {
		entry, err := scanDispatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dispatch entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dispatch entries: %w", err)
	}
	return entries, nil
}
