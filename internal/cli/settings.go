package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSettingsCmd(r *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change local settings",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the current settings",
		Args:  cobra.NoArgs,
	}
	show.RunE = r.run(func(cmd *cobra.Command, args []string) error {
		a, err := r.open(cmd.Context())
		if err != nil {
			return err
		}
		settings := a.Workspace.Snapshot().Settings
		fmt.Fprintf(cmd.OutOrStdout(), "backend:   %s\n", a.Config.Backend)
		fmt.Fprintf(cmd.OutOrStdout(), "api token: %s\n", maskToken(settings.APIToken))
		return nil
	})

	setToken := &cobra.Command{
		Use:   "set-token <token>",
		Short: "Store the API token used by the direct backend",
		Args:  cobra.ExactArgs(1),
	}
	setToken.RunE = r.run(func(cmd *cobra.Command, args []string) error {
		a, err := r.open(cmd.Context())
		if err != nil {
			return err
		}
		settings := a.Workspace.Snapshot().Settings
		settings.APIToken = args[0]
		a.Workspace.UpdateSettings(settings)
		fmt.Fprintln(cmd.OutOrStdout(), "API token saved.")
		return nil
	})

	cmd.AddCommand(show, setToken)
	return cmd
}
