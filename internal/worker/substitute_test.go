package worker

import "testing"

func TestSubstitute(t *testing.T) {
	subs := map[string]string{
		"icinga.internal": "icinga.example.org",
		"CRITICAL":        "CRIT",
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no match", "all good", "all good"},
		{"single", "CRITICAL - disk", "CRIT - disk"},
		{"multiple", "CRITICAL https://icinga.internal/s/1", "CRIT https://icinga.example.org/s/1"},
		{"empty message", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Substitute(tt.in, subs); got != tt.want {
				t.Errorf("Substitute(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSubstituteNil(t *testing.T) {
	if got := Substitute("unchanged", nil); got != "unchanged" {
		t.Errorf("Substitute with nil map = %q, want unchanged", got)
	}
}

func TestSubstituteLongestPatternFirst(t *testing.T) {
	subs := map[string]string{
		"host":     "node",
		"hostname": "fqdn",
	}
	if got := Substitute("hostname host", subs); got != "fqdn node" {
		t.Errorf("Substitute() = %q, want %q", got, "fqdn node")
	}
}
