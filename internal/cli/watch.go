package cli

import (
	"github.com/spf13/cobra"
)

func newWatchCmd(r *runtime) *cobra.Command {
	var conversationID string

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Upload files dropped into a folder",
		Long: `Watch a folder and upload every supported file created in it. Files go to
the given conversation, or to the profile when no conversation is set.
Runs until interrupted.`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "conversation receiving the files (default: profile)")

	cmd.RunE = r.run(func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := r.sync(ctx)
		if err != nil {
			return err
		}

		drop, err := a.DropFolder()
		if err != nil {
			return err
		}

		stop := followProgress(cmd, a)
		defer stop()

		return drop.Run(ctx, args[0], conversationID)
	})
	return cmd
}
