package directory

import (
	"context"
	"log/slog"

	"github.com/atlantishq/dispatchd/internal/config"
	"github.com/atlantishq/dispatchd/pkg/models"
)

// StaticResolver serves recipients from the configuration file. It backs
// deployments without a directory server and the test suite.
type StaticResolver struct {
	users      map[string]models.Recipient
	groups     map[string][]string
	adminGroup string
	log        *slog.Logger
}

// NewStaticResolver builds a resolver over the configured static users.
func NewStaticResolver(cfg config.DirectoryConfig, log *slog.Logger) *StaticResolver {
	r := &StaticResolver{
		users:      make(map[string]models.Recipient),
		groups:     make(map[string][]string),
		adminGroup: cfg.AdminGroup,
		log:        log.With("component", "static_directory"),
	}
	for _, u := range cfg.Static {
		r.users[u.Username] = models.Recipient{
			Username: u.Username,
			Email:    u.Email,
			Phone:    u.Phone,
		}
		for _, g := range u.Groups {
			r.groups[g] = append(r.groups[g], u.Username)
		}
	}
	return r
}

// Select resolves users and expands groups against the static tables.
// Unknown names are skipped with a warning rather than failing the batch.
func (r *StaticResolver) Select(ctx context.Context, users, groups []string) ([]models.Recipient, error) {
	if len(users) == 0 && len(groups) == 0 {
		groups = []string{r.adminGroup}
	}

	var recipients []models.Recipient
	for _, username := range users {
		recipient, ok := r.users[username]
		if !ok {
			r.log.Warn("unknown user in submission", "username", username)
			continue
		}
		recipients = append(recipients, recipient)
	}
	for _, group := range groups {
		members, ok := r.groups[group]
		if !ok {
			r.log.Warn("unknown group in submission", "group", group)
			continue
		}
		for _, username := range members {
			recipients = append(recipients, r.users[username])
		}
	}

	return dedupe(recipients), nil
}
