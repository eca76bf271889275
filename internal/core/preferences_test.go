package core

import (
	"context"
	"errors"
	"testing"

	"github.com/atlantishq/dispatchd/pkg/models"
)

func TestResolveWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights models.MethodWeights
		want    models.DeliveryMethod
	}{
		{"email wins", models.MethodWeights{Signal: 5, Email: 7, Ntfy: 3}, models.MethodEmail},
		{"signal wins", models.MethodWeights{Signal: 9, Email: 7, Ntfy: 3}, models.MethodSignal},
		{"ntfy wins", models.MethodWeights{Signal: 0, Email: 0, Ntfy: 1}, models.MethodNtfy},
		{"three-way tie goes to signal", models.MethodWeights{Signal: 5, Email: 5, Ntfy: 5}, models.MethodSignal},
		{"email ntfy tie goes to email", models.MethodWeights{Signal: 0, Email: 4, Ntfy: 4}, models.MethodEmail},
		{"all zero goes to signal", models.MethodWeights{}, models.MethodSignal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveWeights(tt.weights); got != tt.want {
				t.Errorf("ResolveWeights(%+v) = %q, want %q", tt.weights, got, tt.want)
			}
		})
	}
}

func TestFallbackMethod(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		email string
		want  models.DeliveryMethod
	}{
		{"phone wins", "+49151", "a@example.org", models.MethodSignal},
		{"email without phone", "", "a@example.org", models.MethodEmail},
		{"nothing reachable", "", "", models.MethodNtfy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FallbackMethod(tt.phone, tt.email); got != tt.want {
				t.Errorf("FallbackMethod(%q, %q) = %q, want %q", tt.phone, tt.email, got, tt.want)
			}
		})
	}
}

func TestGetPreferencesPersistsDefaults(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	weights, isDefault, err := GetPreferences(ctx, db, "alice")
	if err != nil {
		t.Fatalf("GetPreferences() error: %v", err)
	}
	if !isDefault {
		t.Error("first read should report defaults")
	}
	if weights != DefaultMethodWeights {
		t.Errorf("weights = %+v, want defaults %+v", weights, DefaultMethodWeights)
	}

	// The defaults are now stored; the second read comes from the table.
	if _, err := db.GetPreferencesJSON(ctx, "alice"); err != nil {
		t.Fatalf("defaults were not persisted: %v", err)
	}
	weights, isDefault, err = GetPreferences(ctx, db, "alice")
	if err != nil {
		t.Fatalf("second GetPreferences() error: %v", err)
	}
	if !isDefault || weights != DefaultMethodWeights {
		t.Errorf("second read = %+v (default=%v), want untouched defaults", weights, isDefault)
	}
}

func TestUpdatePreferencesPartial(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	email := 7
	weights, err := UpdatePreferences(ctx, db, "alice", models.UpdatePreferencesRequest{Email: &email})
	if err != nil {
		t.Fatalf("UpdatePreferences() error: %v", err)
	}
	want := models.MethodWeights{Signal: DefaultMethodWeights.Signal, Email: 7, Ntfy: DefaultMethodWeights.Ntfy}
	if weights != want {
		t.Errorf("weights after partial update = %+v, want %+v", weights, want)
	}

	stored, isDefault, err := GetPreferences(ctx, db, "alice")
	if err != nil {
		t.Fatalf("GetPreferences() error: %v", err)
	}
	if isDefault {
		t.Error("updated weights must not report as defaults")
	}
	if stored != want {
		t.Errorf("stored weights = %+v, want %+v", stored, want)
	}
}

func TestUpdatePreferencesRejectsNegative(t *testing.T) {
	db, _ := newTestDB(t)

	negative := -1
	_, err := UpdatePreferences(context.Background(), db, "alice", models.UpdatePreferencesRequest{Signal: &negative})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "signal" {
		t.Errorf("validation field = %q, want signal", verr.Field)
	}
}
