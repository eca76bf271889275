package models

import "encoding/json"

// ErrorType classifies API errors for clients.
type ErrorType string

const (
	GeneralErrorType    ErrorType = "general"
	ValidationErrorType ErrorType = "validation"
	NotFoundErrorType   ErrorType = "not_found"
	AuthErrorType       ErrorType = "auth"
)

// SmartSendRequest is the inbound alert submission. Recipients come from
// "users" and/or "groups"; when both are empty the configured administrator
// group is targeted. The message is either the flat "msg" string or a
// structured payload in "data" that the composer turns into text.
type SmartSendRequest struct {
	Users  []string       `json:"users,omitempty"`
	Groups []string       `json:"groups,omitempty"`
	Msg    string         `json:"msg,omitempty"`
	Title  string         `json:"title,omitempty"`
	Link   string         `json:"link,omitempty"`
	Method DeliveryMethod `json:"method,omitempty"`

	Data json.RawMessage `json:"data,omitempty"`
}

// SmartSendResponse returns the generated dispatch ids so the submitter can
// poll delivery status later.
type SmartSendResponse struct {
	UUIDs []string `json:"uuids"`
}

// ConfirmItem identifies one entry a worker has delivered.
type ConfirmItem struct {
	UUID string `json:"uuid"`
}

// FailureReport records a delivery failure for one entry.
type FailureReport struct {
	UUID  string `json:"uuid"`
	Error string `json:"error"`
}

// ReconcileResponse is returned by confirm and failure-report endpoints.
// Unknown uuids land in Missing; under at-least-once delivery a duplicate
// confirm is expected, so missing ids are informational, never an error.
type ReconcileResponse struct {
	Processed int      `json:"processed"`
	Missing   []string `json:"missing,omitempty"`
}

// DowntimeResponse describes the global suppression window.
type DowntimeResponse struct {
	Active bool   `json:"active"`
	Until  string `json:"until,omitempty"`
}
