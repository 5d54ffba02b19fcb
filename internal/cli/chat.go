package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/ao-assistant/internal/domain/entities"
)

func newChatCmd(r *runtime) *cobra.Command {
	var conversationID string
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send a message and stream the reply",
		Long: `Send a message to a conversation and print the reply as it arrives.
Without --conversation the active conversation is used, and a new one is
started when there is none.`,
		Args: cobra.MinimumNArgs(1),
	}
	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "conversation id")

	cmd.RunE = r.run(func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := r.sync(ctx)
		if err != nil {
			return err
		}

		id := conversationID
		if id == "" {
			if active, ok := a.Workspace.Snapshot().Active(); ok {
				id = active.ID
			}
		}
		if id == "" {
			conv, err := a.Workspace.CreateConversation(ctx, "")
			if err != nil {
				return err
			}
			id = conv.ID
		}
		if err := a.Workspace.SelectConversation(ctx, id); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, renderRole(entities.RoleAssistant))

		printed := ""
		msg, err := a.Workspace.SendMessage(ctx, id, strings.Join(args, " "), func(content string) {
			if strings.HasPrefix(content, printed) {
				fmt.Fprint(out, content[len(printed):])
			} else {
				fmt.Fprint(out, "\n"+content)
			}
			printed = content
		})
		fmt.Fprintln(out)
		if err != nil {
			return err
		}
		if cites := renderCitations(msg.Citations); cites != "" {
			fmt.Fprintln(out, cites)
		}
		return nil
	})
	return cmd
}
