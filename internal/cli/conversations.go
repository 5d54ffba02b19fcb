package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/ao-assistant/internal/domain/entities"
)

func newConversationsCmd(r *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"ls"},
		Short:   "List conversations",
		Args:    cobra.NoArgs,
	}
	cmd.RunE = r.run(func(cmd *cobra.Command, args []string) error {
		a, err := r.sync(cmd.Context())
		if err != nil {
			return err
		}
		state := a.Workspace.Snapshot()
		fmt.Fprintln(cmd.OutOrStdout(), renderTitle("Conversations"))
		fmt.Fprintln(cmd.OutOrStdout(), renderConversations(state.Conversations, state.ActiveID))
		return nil
	})
	return cmd
}

func newNewCmd(r *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new [title]",
		Short: "Start a conversation",
	}
	cmd.RunE = r.run(func(cmd *cobra.Command, args []string) error {
		a, err := r.sync(cmd.Context())
		if err != nil {
			return err
		}
		conv, err := a.Workspace.CreateConversation(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s  %s\n", conv.ID, conv.Title)
		return nil
	})
	return cmd
}

func newDeleteCmd(r *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <conversation-id>",
		Short: "Delete a conversation from this device",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = r.run(func(cmd *cobra.Command, args []string) error {
		a, err := r.open(cmd.Context())
		if err != nil {
			return err
		}
		if err := a.Workspace.DeleteConversation(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	})
	return cmd
}

func newHistoryCmd(r *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <conversation-id>",
		Short: "Show the messages of a conversation",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = r.run(func(cmd *cobra.Command, args []string) error {
		a, err := r.sync(cmd.Context())
		if err != nil {
			return err
		}
		if err := a.Workspace.SelectConversation(cmd.Context(), args[0]); err != nil {
			return err
		}
		conv, _ := a.Workspace.Snapshot().Conversation(args[0])
		printConversation(cmd, conv)
		return nil
	})
	return cmd
}

func newSyncCmd(r *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync <conversation-id>",
		Short: "Replace a conversation's messages with the backend history",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = r.run(func(cmd *cobra.Command, args []string) error {
		a, err := r.sync(cmd.Context())
		if err != nil {
			return err
		}
		if err := a.Workspace.ResyncHistory(cmd.Context(), args[0]); err != nil {
			if errors.Is(err, entities.ErrUnsupported) {
				return fmt.Errorf("the configured backend keeps no history")
			}
			return err
		}
		conv, _ := a.Workspace.Snapshot().Conversation(args[0])
		fmt.Fprintf(cmd.OutOrStdout(), "Synchronized %d messages\n", len(conv.Messages))
		return nil
	})
	return cmd
}

func printConversation(cmd *cobra.Command, conv entities.Conversation) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTitle(conv.Title))
	if len(conv.Messages) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("No messages yet."))
		return
	}
	for _, m := range conv.Messages {
		fmt.Fprintln(out, renderMessage(m))
		fmt.Fprintln(out)
	}
}
