package models

import "time"

// DeliveryMethod identifies the channel a dispatch entry should be delivered
// over. MethodAny is late-bound: it is resolved against the recipient's
// preferences when a worker pulls the queue.
type DeliveryMethod string

const (
	MethodSignal    DeliveryMethod = "signal"
	MethodEmail     DeliveryMethod = "email"
	MethodNtfy      DeliveryMethod = "ntfy"
	MethodAny       DeliveryMethod = "any"
	MethodDebug     DeliveryMethod = "debug"
	MethodDebugFail DeliveryMethod = "debug-fail"

	// MethodAll is only valid as a pull filter. It bypasses method matching
	// and leaves stored "any" methods unresolved.
	MethodAll DeliveryMethod = "all"
)

// ValidEnqueueMethod reports whether m may be stored on a new dispatch entry.
func ValidEnqueueMethod(m DeliveryMethod) bool {
	switch m {
	case MethodSignal, MethodEmail, MethodNtfy, MethodAny, MethodDebug, MethodDebugFail:
		return true
	default:
		return false
	}
}

// DispatchState captures the lifecycle state of a queued entry.
// Confirmed entries are deleted, so there is no terminal state in storage.
type DispatchState string

const (
	// DispatchStatePending entries are visible to pulls and retried until
	// confirmed.
	DispatchStatePending DispatchState = "pending"
	// DispatchStateDead entries exhausted the configured attempt budget and
	// are only visible to operator diagnostics.
	DispatchStateDead DispatchState = "dead"
)

// Recipient is one resolved delivery target returned by the directory.
type Recipient struct {
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
}

// DispatchEntry is one outstanding notification for one recipient. The UUID
// is the sole handle used to confirm or fail the entry; it is generated at
// enqueue time and never derived from content fields.
type DispatchEntry struct {
	UUID           string         `json:"uuid"`
	Username       string         `json:"username"`
	Phone          string         `json:"phone,omitempty"`
	Email          string         `json:"email,omitempty"`
	Title          string         `json:"title,omitempty"`
	Message        string         `json:"message"`
	Link           string         `json:"link,omitempty"`
	Method         DeliveryMethod `json:"method"`
	State          DispatchState  `json:"state"`
	Attempts       int            `json:"attempts"`
	LastError      string         `json:"error,omitempty"`
	LeaseExpiresAt *time.Time     `json:"lease_expires_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// DispatchView is the per-entry pull representation handed to workers. The
// method is the effective one after resolving "any" (unless pulled with
// method=all).
type DispatchView struct {
	UUID      string         `json:"uuid"`
	Username  string         `json:"username"`
	Phone     string         `json:"phone,omitempty"`
	Email     string         `json:"email,omitempty"`
	Title     string         `json:"title,omitempty"`
	Message   string         `json:"message"`
	Link      string         `json:"link,omitempty"`
	Method    DeliveryMethod `json:"method"`
	Attempts  int            `json:"attempts"`
	LastError string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// CombinedDispatch is the legacy single-message-per-person pull view:
// messages for the same recipient are joined with newlines and every member
// uuid is carried so the worker can confirm each entry.
type CombinedDispatch struct {
	Person  string         `json:"person"`
	Message string         `json:"message"`
	Method  DeliveryMethod `json:"method"`
	Phone   string         `json:"phone,omitempty"`
	Email   string         `json:"email,omitempty"`
	UUIDs   []string       `json:"uuids"`
}

// DispatchStatus is returned by the status endpoint for submitters polling a
// previously enqueued entry.
type DispatchStatus string

const (
	DispatchStatusQueued   DispatchStatus = "queued"
	DispatchStatusDead     DispatchStatus = "dead"
	DispatchStatusNotFound DispatchStatus = "not_found"
)
