package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/urfave/cli/v3"

	"github.com/atlantishq/dispatchd/internal/config"
	"github.com/atlantishq/dispatchd/internal/worker"
	"github.com/atlantishq/dispatchd/pkg/logger"
	"github.com/atlantishq/dispatchd/pkg/models"
)

// workerCommand runs delivery workers for one or more channels.
func (a *App) workerCommand() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "run delivery workers",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "method",
				Aliases: []string{"m"},
				Usage:   "delivery method to serve (signal, email, ntfy, debug, debug-fail); repeatable",
				Value:   []string{"debug"},
			},
			&cli.StringFlag{
				Name:    "server",
				Usage:   "relay server URL (overrides config)",
				Sources: cli.EnvVars("DISPATCHD_WORKER__SERVER_URL"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "dispatch token (overrides config)",
				Sources: cli.EnvVars("DISPATCHD_WORKER__TOKEN"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if server := cmd.String("server"); server != "" {
				cfg.Worker.ServerURL = server
			}
			if token := cmd.String("token"); token != "" {
				cfg.Worker.Token = token
			}

			log := logger.New(cmd.Bool("debug") || cfg.Logging.Level == "debug")

			methods := cmd.StringSlice("method")
			if len(methods) == 0 {
				return fmt.Errorf("at least one --method is required")
			}

			workers := make([]*worker.Worker, 0, len(methods))
			for _, method := range methods {
				sender, err := buildSender(cfg.Worker, models.DeliveryMethod(method), log)
				if err != nil {
					return err
				}
				w, err := worker.New(cfg.Worker, sender, log)
				if err != nil {
					return err
				}
				workers = append(workers, w)
			}

			var wg sync.WaitGroup
			for _, w := range workers {
				wg.Add(1)
				go func(w *worker.Worker) {
					defer wg.Done()
					if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						log.Error("worker exited", "error", err)
					}
				}(w)
			}
			wg.Wait()
			return nil
		},
	}
}

func buildSender(cfg config.WorkerConfig, method models.DeliveryMethod, log *slog.Logger) (worker.Sender, error) {
	switch method {
	case models.MethodSignal:
		return worker.NewSignalSender(cfg.Signal)
	case models.MethodEmail:
		return worker.NewEmailSender(cfg.SMTP)
	case models.MethodNtfy:
		return worker.NewNtfySender(cfg.Ntfy, cfg.Timeout)
	case models.MethodDebug:
		return worker.NewDebugSender(false, log), nil
	case models.MethodDebugFail:
		return worker.NewDebugSender(true, log), nil
	default:
		return nil, fmt.Errorf("unknown delivery method %q", method)
	}
}
