package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/atlantishq/dispatchd/internal/app"
)

// serverCommand runs the dispatch relay.
func (a *App) serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "run the dispatch relay server",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			instance, err := app.New(app.Options{
				ConfigPath: cmd.String("config"),
				BuildInfo:  fmt.Sprintf("%s (%s)", a.Commit, a.Date),
				Version:    a.Version,
			})
			if err != nil {
				return err
			}

			if err := instance.Initialize(ctx); err != nil {
				return fmt.Errorf("failed to initialize: %w", err)
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- instance.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return instance.Shutdown(shutdownCtx)
		},
	}
}
