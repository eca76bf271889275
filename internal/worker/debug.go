package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atlantishq/dispatchd/pkg/models"
)

// DebugSender logs entries instead of delivering them. With fail=true every
// send reports failure, which exercises the retry path end to end.
type DebugSender struct {
	fail bool
	log  *slog.Logger
}

// NewDebugSender creates a log-only sender.
func NewDebugSender(fail bool, log *slog.Logger) *DebugSender {
	return &DebugSender{fail: fail, log: log}
}

func (s *DebugSender) Method() models.DeliveryMethod {
	if s.fail {
		return models.MethodDebugFail
	}
	return models.MethodDebug
}

func (s *DebugSender) Send(_ context.Context, view models.DispatchView) error {
	if s.fail {
		return fmt.Errorf("debug-fail: refusing delivery of %s", view.UUID)
	}
	s.log.Info("debug delivery",
		"uuid", view.UUID,
		"username", view.Username,
		"title", view.Title,
		"message", view.Message,
		"link", view.Link,
	)
	return nil
}
