package cli

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/ao-assistant/internal/domain/entities"
	httpserver "github.com/0xcro3dile/ao-assistant/internal/infrastructure/http"
)

func newServeCmd(r *runtime) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the assistant over HTTP",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: AO_LISTEN_ADDR)")

	cmd.RunE = r.run(func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := r.open(ctx)
		if err != nil {
			return err
		}

		// Signing in later through the CLI is picked up on the next sync.
		if err := a.Workspace.Load(ctx); err != nil {
			if errors.Is(err, entities.ErrNoSession) {
				slog.Warn("not signed in, serving local state only")
			} else {
				slog.Warn("backend sync failed, serving local state", "error", err)
			}
		}

		if addr == "" {
			addr = a.Config.ListenAddr
		}
		return httpserver.NewServer(a.Workspace, addr).Start(ctx)
	})
	return cmd
}
