package worker

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/atlantishq/dispatchd/internal/config"
	"github.com/atlantishq/dispatchd/pkg/models"
)

// SignalSender delivers over Signal by shelling out to signal-cli, which
// owns the registered account and its session state.
type SignalSender struct {
	cliPath string
	account string
}

// NewSignalSender creates a sender backed by the signal-cli binary.
func NewSignalSender(cfg config.SignalConfig) (*SignalSender, error) {
	cliPath := cfg.CLIPath
	if cliPath == "" {
		cliPath = "signal-cli"
	}
	if cfg.Account == "" {
		return nil, fmt.Errorf("signal account is required")
	}
	return &SignalSender{
		cliPath: cliPath,
		account: cfg.Account,
	}, nil
}

func (s *SignalSender) Method() models.DeliveryMethod {
	return models.MethodSignal
}

func (s *SignalSender) Send(ctx context.Context, view models.DispatchView) error {
	if view.Phone == "" {
		return fmt.Errorf("recipient %q has no phone number", view.Username)
	}

	message := view.Message
	if view.Link != "" && !strings.Contains(message, view.Link) {
		message = message + "\n" + view.Link
	}

	cmd := exec.CommandContext(ctx, s.cliPath, "-u", s.account, "send", "-m", message, view.Phone)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("signal-cli send failed: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
