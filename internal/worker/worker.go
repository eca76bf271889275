// Package worker implements the delivery side of the dispatch protocol:
// it polls the relay for due entries, hands them to a channel sender, and
// confirms or reports back per entry.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/atlantishq/dispatchd/internal/config"
	"github.com/atlantishq/dispatchd/pkg/models"
)

var (
	workerDelivered = metrics.NewCounter("worker_delivered_total")
	workerFailed    = metrics.NewCounter("worker_delivery_failed_total")
)

// Sender delivers a single dispatch entry over one channel.
type Sender interface {
	// Method is the pull filter this sender serves.
	Method() models.DeliveryMethod
	// Send delivers one entry. A nil return confirms the entry; an error
	// reports it as failed and leaves it queued on the relay.
	Send(ctx context.Context, view models.DispatchView) error
}

// Worker runs the poll/deliver/reconcile loop for one sender.
type Worker struct {
	client        *Client
	sender        Sender
	substitutions map[string]string
	pollInterval  time.Duration
	log           *slog.Logger
}

// New creates a worker for the given sender.
func New(cfg config.WorkerConfig, sender Sender, log *slog.Logger) (*Worker, error) {
	client, err := NewClient(cfg.ServerURL, cfg.Token, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	return &Worker{
		client:        client,
		sender:        sender,
		substitutions: cfg.Substitutions,
		pollInterval:  pollInterval,
		log:           log.With("component", "worker", "method", sender.Method()),
	}, nil
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker started", "poll_interval", w.pollInterval)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// First poll immediately instead of waiting out a full interval.
	if err := w.Poll(ctx); err != nil {
		w.log.Error("poll failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := w.Poll(ctx); err != nil {
				w.log.Error("poll failed", "error", err)
			}
		}
	}
}

// Poll runs one pull/deliver/reconcile cycle.
func (w *Worker) Poll(ctx context.Context) error {
	views, err := w.client.GetDispatch(ctx, w.sender.Method())
	if err != nil {
		return err
	}
	if len(views) == 0 {
		return nil
	}
	w.log.Debug("pulled dispatch entries", "count", len(views))

	var (
		delivered []string
		failures  []models.FailureReport
	)
	for _, view := range views {
		view.Title = Substitute(view.Title, w.substitutions)
		view.Message = Substitute(view.Message, w.substitutions)
		if err := w.sender.Send(ctx, view); err != nil {
			w.log.Error("delivery failed", "uuid", view.UUID, "username", view.Username, "error", err)
			workerFailed.Inc()
			failures = append(failures, models.FailureReport{UUID: view.UUID, Error: err.Error()})
			continue
		}
		w.log.Info("delivered", "uuid", view.UUID, "username", view.Username)
		workerDelivered.Inc()
		delivered = append(delivered, view.UUID)
	}

	if len(delivered) > 0 {
		if _, err := w.client.Confirm(ctx, delivered); err != nil {
			return err
		}
	}
	if len(failures) > 0 {
		if _, err := w.client.ReportFailure(ctx, failures); err != nil {
			return err
		}
	}
	return nil
}
