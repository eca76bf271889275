package compose

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestComposePlainString(t *testing.T) {
	msg, err := Compose(json.RawMessage(`"backup finished"`))
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	if msg.Body != "backup finished" {
		t.Errorf("body = %q, want passthrough", msg.Body)
	}
	if msg.Title != "" || msg.Link != "" {
		t.Errorf("plain string must not synthesize title/link, got %+v", msg)
	}
}

func TestComposeEmptyString(t *testing.T) {
	if _, err := Compose(json.RawMessage(`"   "`)); !errors.Is(err, ErrUnsupportedPayload) {
		t.Errorf("blank string: got %v, want ErrUnsupportedPayload", err)
	}
}

func TestComposeIcinga(t *testing.T) {
	raw := json.RawMessage(`{
		"type": "icinga",
		"state": "CRITICAL",
		"service_name": "disk",
		"service_host": "web01",
		"service_output": "DISK CRITICAL - free space: / 498 MB (2%)",
		"icingaweb_url": "https://icinga.example.org/s/1",
		"owners": ["alice"],
		"owner-groups": ["ops"]
	}`)

	msg, err := Compose(raw)
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}

	want := "CRITICAL - disk (web01)\n" +
		"DISK CRITICAL - free space: / 498 MB (2%)\n" +
		"Direkt-Link: https://icinga.example.org/s/1\n" +
		"Notification to: alice, ops-group"
	if msg.Body != want {
		t.Errorf("body =\n%q\nwant\n%q", msg.Body, want)
	}
	if msg.Title != "CRITICAL - disk" {
		t.Errorf("title = %q", msg.Title)
	}
	if msg.Link != "https://icinga.example.org/s/1" {
		t.Errorf("link = %q", msg.Link)
	}
}

func TestComposeIcingaDisplayNameAndDefaultFooter(t *testing.T) {
	raw := json.RawMessage(`{
		"type": "icinga",
		"state": "WARNING",
		"service_name": "http_check",
		"service_display_name": "Website",
		"service_host": "web01",
		"service_output": "slow response",
		"icingaweb_url": "https://icinga.example.org/s/2"
	}`)

	msg, err := Compose(raw)
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}

	want := "WARNING - Website (web01)\n" +
		"slow response\n" +
		"Direkt-Link: https://icinga.example.org/s/2\n" +
		"Notification to: admins (default)"
	if msg.Body != want {
		t.Errorf("body =\n%q\nwant\n%q", msg.Body, want)
	}
}

func TestComposeGeneric(t *testing.T) {
	msg, err := Compose(json.RawMessage(`{"type": "generic", "title": "Deploy", "message": "v2 live", "link": "https://ci.example.org/42"}`))
	if err != nil {
		t.Fatalf("Compose() error: %v", err)
	}
	if msg.Title != "Deploy" || msg.Body != "v2 live" || msg.Link != "https://ci.example.org/42" {
		t.Errorf("unexpected message: %+v", msg)
	}

	if _, err := Compose(json.RawMessage(`{"type": "generic", "title": "no body"}`)); !errors.Is(err, ErrUnsupportedPayload) {
		t.Errorf("generic without message: got %v, want ErrUnsupportedPayload", err)
	}
}

func TestComposeFailsClosed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unknown type", `{"type": "pagerduty", "message": "x"}`},
		{"missing type", `{"message": "x"}`},
		{"not json", `{{{`},
		{"number", `42`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Compose(json.RawMessage(tt.raw)); err == nil {
				t.Errorf("Compose(%s) succeeded, want error", tt.raw)
			}
		})
	}
}
