package models

import "time"

// WebhookBinding maps an opaque path token to a username. Requests arriving
// on /smart-send/<path> are pre-authorized for that user without the shared
// access token. A user may hold several tokens.
type WebhookBinding struct {
	Path      string    `json:"path"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
