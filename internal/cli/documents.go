package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/ao-assistant/internal/app"
	"github.com/0xcro3dile/ao-assistant/internal/domain/usecases"
)

func newUploadCmd(r *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <conversation-id> <file>...",
		Short: "Upload documents to a conversation",
		Long: `Upload one or more documents to a conversation. Files are sent one at a
time; a file the backend rejects is skipped and the rest continue.`,
		Args: cobra.MinimumNArgs(2),
	}
	cmd.RunE = r.run(func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := r.sync(ctx)
		if err != nil {
			return err
		}

		files, err := a.Loader.LoadAll(ctx, args[1:])
		if err != nil {
			return err
		}

		stop := followProgress(cmd, a)
		defer stop()

		docs, err := a.Workspace.UploadDocuments(ctx, args[0], files)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d of %d files\n", len(docs), len(files))
		return nil
	})
	return cmd
}

func newProfileDocsCmd(r *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile-docs",
		Short: "Manage documents shared by every conversation",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List profile documents",
		Args:  cobra.NoArgs,
	}
	list.RunE = r.run(func(cmd *cobra.Command, args []string) error {
		a, err := r.sync(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTitle("Profile documents"))
		fmt.Fprintln(cmd.OutOrStdout(), renderDocuments(a.Workspace.Snapshot().ProfileDocuments))
		return nil
	})

	upload := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload profile documents",
		Args:  cobra.MinimumNArgs(1),
	}
	upload.RunE = r.run(func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := r.sync(ctx)
		if err != nil {
			return err
		}
		files, err := a.Loader.LoadAll(ctx, args)
		if err != nil {
			return err
		}

		stop := followProgress(cmd, a)
		defer stop()

		for _, f := range files {
			doc, err := a.Workspace.UploadProfileDocument(ctx, f)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render(fmt.Sprintf("%s: %v", f.Name, err)))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", doc.Name, doc.ID)
		}
		return nil
	})

	del := &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Remove a profile document from this device",
		Args:  cobra.ExactArgs(1),
	}
	del.RunE = r.run(func(cmd *cobra.Command, args []string) error {
		a, err := r.open(cmd.Context())
		if err != nil {
			return err
		}
		if err := a.Workspace.DeleteProfileDocument(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
		return nil
	})

	cmd.AddCommand(list, upload, del)
	return cmd
}

// followProgress prints each step transition of the upload banner.
func followProgress(cmd *cobra.Command, a *app.App) (stop func()) {
	out := cmd.ErrOrStderr()
	last := ""
	return a.Workspace.Subscribe(func(s usecases.State) {
		view := renderProgress(s.Progress)
		if view == "" || view == last {
			return
		}
		last = view
		fmt.Fprintln(out, view)
	})
}
