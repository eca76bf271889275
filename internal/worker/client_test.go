package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/atlantishq/dispatchd/internal/config"
	"github.com/atlantishq/dispatchd/pkg/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func workerTestConfig(serverURL string) config.WorkerConfig {
	return config.WorkerConfig{
		ServerURL:    serverURL,
		PollInterval: time.Minute,
		Timeout:      time.Second,
	}
}

func TestClientGetDispatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get-dispatch" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("method"); got != "signal" {
			t.Errorf("method query = %q, want signal", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer dispatch-token" {
			t.Errorf("authorization = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data": []models.DispatchView{
				{UUID: "u1", Username: "alice", Message: "hi", Method: models.MethodSignal},
			},
		})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "dispatch-token", time.Second)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	views, err := client.GetDispatch(context.Background(), models.MethodSignal)
	if err != nil {
		t.Fatalf("GetDispatch() error: %v", err)
	}
	if len(views) != 1 || views[0].UUID != "u1" {
		t.Errorf("views = %+v", views)
	}
}

func TestClientConfirmAndReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/confirm-dispatch":
			var confirms []models.ConfirmItem
			if err := json.NewDecoder(r.Body).Decode(&confirms); err != nil || len(confirms) != 2 {
				t.Errorf("confirm body: %v (%d items)", err, len(confirms))
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": "success",
				"data":   models.ReconcileResponse{Processed: 1, Missing: []string{"gone"}},
			})
		case "/report-dispatch-failed":
			var reports []models.FailureReport
			if err := json.NewDecoder(r.Body).Decode(&reports); err != nil || len(reports) != 1 {
				t.Errorf("report body: %v (%d items)", err, len(reports))
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": "success",
				"data":   models.ReconcileResponse{Processed: 1},
			})
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "", time.Second)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	resp, err := client.Confirm(context.Background(), []string{"u1", "gone"})
	if err != nil {
		t.Fatalf("Confirm() error: %v", err)
	}
	if resp.Processed != 1 || len(resp.Missing) != 1 {
		t.Errorf("confirm response = %+v", resp)
	}

	resp, err = client.ReportFailure(context.Background(), []models.FailureReport{{UUID: "u2", Error: "boom"}})
	if err != nil {
		t.Fatalf("ReportFailure() error: %v", err)
	}
	if resp.Processed != 1 {
		t.Errorf("report response = %+v", resp)
	}
}

func TestClientSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":     "error",
			"message":    "Invalid token",
			"error_type": "auth_error",
		})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "wrong", time.Second)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	_, err = client.GetDispatch(context.Background(), models.MethodSignal)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.ErrorType != "auth_error" {
		t.Errorf("api error = %+v", apiErr)
	}
}

func TestWorkerPollConfirmsAndReports(t *testing.T) {
	confirmed := make(chan []models.ConfirmItem, 1)
	reported := make(chan []models.FailureReport, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/get-dispatch":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": "success",
				"data": []models.DispatchView{
					{UUID: "ok", Username: "alice", Message: "hi", Method: models.MethodDebug},
					{UUID: "bad", Username: "bob", Message: "hi", Method: models.MethodDebug},
				},
			})
		case "/confirm-dispatch":
			var confirms []models.ConfirmItem
			_ = json.NewDecoder(r.Body).Decode(&confirms)
			confirmed <- confirms
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "data": models.ReconcileResponse{Processed: len(confirms)}})
		case "/report-dispatch-failed":
			var reports []models.FailureReport
			_ = json.NewDecoder(r.Body).Decode(&reports)
			reported <- reports
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "data": models.ReconcileResponse{Processed: len(reports)}})
		}
	}))
	defer srv.Close()

	log := discardLogger()
	w, err := New(workerTestConfig(srv.URL), &selectiveFailSender{failUUID: "bad"}, log)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := w.Poll(context.Background()); err != nil {
		t.Fatalf("Poll() error: %v", err)
	}

	select {
	case confirms := <-confirmed:
		if len(confirms) != 1 || confirms[0].UUID != "ok" {
			t.Errorf("confirms = %+v", confirms)
		}
	default:
		t.Error("no confirm request sent")
	}
	select {
	case reports := <-reported:
		if len(reports) != 1 || reports[0].UUID != "bad" {
			t.Errorf("reports = %+v", reports)
		}
	default:
		t.Error("no failure report sent")
	}
}

type selectiveFailSender struct {
	failUUID string
}

func (s *selectiveFailSender) Method() models.DeliveryMethod { return models.MethodDebug }

func (s *selectiveFailSender) Send(_ context.Context, view models.DispatchView) error {
	if view.UUID == s.failUUID {
		return errors.New("synthetic delivery failure")
	}
	return nil
}
