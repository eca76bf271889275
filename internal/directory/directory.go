// Package directory resolves usernames and groups to deliverable recipients.
package directory

import (
	"context"

	"github.com/atlantishq/dispatchd/pkg/models"
)

// Resolver turns usernames and group names into a deduplicated set of
// recipients. When both lists are empty the configured administrator group
// is targeted instead.
type Resolver interface {
	Select(ctx context.Context, users, groups []string) ([]models.Recipient, error)
}

// dedupe keeps the first occurrence of each username, preserving order.
func dedupe(recipients []models.Recipient) []models.Recipient {
	seen := make(map[string]struct{}, len(recipients))
	out := recipients[:0]
	for _, r := range recipients {
		if r.Username == "" {
			continue
		}
		if _, ok := seen[r.Username]; ok {
			continue
		}
		seen[r.Username] = struct{}{}
		out = append(out, r)
	}
	return out
}
