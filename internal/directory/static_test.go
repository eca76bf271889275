package directory

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/atlantishq/dispatchd/internal/config"
)

func newStaticTestResolver(t *testing.T) *StaticResolver {
	t.Helper()
	cfg := config.DirectoryConfig{
		AdminGroup: "admins",
		Static: []config.StaticUser{
			{Username: "alice", Email: "alice@example.org", Phone: "+49151", Groups: []string{"admins", "ops"}},
			{Username: "bob", Email: "bob@example.org", Groups: []string{"ops"}},
			{Username: "carol", Groups: []string{"admins"}},
		},
	}
	return NewStaticResolver(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStaticSelectUsersAndGroups(t *testing.T) {
	r := newStaticTestResolver(t)
	ctx := context.Background()

	recipients, err := r.Select(ctx, []string{"bob"}, []string{"admins"})
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}

	got := make([]string, 0, len(recipients))
	for _, rec := range recipients {
		got = append(got, rec.Username)
	}
	want := []string{"bob", "alice", "carol"}
	if len(got) != len(want) {
		t.Fatalf("recipients = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("recipients[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStaticSelectDeduplicates(t *testing.T) {
	r := newStaticTestResolver(t)

	// alice appears as explicit user and as member of both groups.
	recipients, err := r.Select(context.Background(), []string{"alice"}, []string{"admins", "ops"})
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}

	seen := make(map[string]int)
	for _, rec := range recipients {
		seen[rec.Username]++
	}
	for username, count := range seen {
		if count != 1 {
			t.Errorf("%s appears %d times, want 1", username, count)
		}
	}
	if recipients[0].Username != "alice" {
		t.Errorf("first recipient = %q, want alice (first mention wins)", recipients[0].Username)
	}
}

func TestStaticSelectDefaultsToAdminGroup(t *testing.T) {
	r := newStaticTestResolver(t)

	recipients, err := r.Select(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if len(recipients) != 2 {
		t.Fatalf("expected the 2 admins, got %d recipients", len(recipients))
	}
}

func TestStaticSelectSkipsUnknownNames(t *testing.T) {
	r := newStaticTestResolver(t)

	recipients, err := r.Select(context.Background(), []string{"mallory", "bob"}, []string{"nonexistent"})
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if len(recipients) != 1 || recipients[0].Username != "bob" {
		t.Errorf("recipients = %+v, want only bob", recipients)
	}
}
