// Package cli implements the aoassistant command line.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/ao-assistant/internal/app"
	"github.com/0xcro3dile/ao-assistant/internal/config"
	"github.com/0xcro3dile/ao-assistant/internal/domain/entities"
)

// runtime builds the App on first use and shares it between the command
// and its helpers.
type runtime struct {
	loadConfig func() (*config.Config, error)
	app        *app.App
}

func (r *runtime) open(ctx context.Context) (*app.App, error) {
	if r.app != nil {
		return r.app, nil
	}
	cfg, err := r.loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	r.app = a
	return a, nil
}

// sync opens the App and reconciles the workspace with the backend. Being
// offline or signed out is reported but the local state stays usable.
func (r *runtime) sync(ctx context.Context) (*app.App, error) {
	a, err := r.open(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.Workspace.Load(ctx); err != nil {
		if errors.Is(err, entities.ErrNoSession) {
			return nil, fmt.Errorf("not signed in: run `aoassistant login` first")
		}
		slog.Warn("backend sync failed, showing local state", "error", err)
	}
	return a, nil
}

func (r *runtime) close() {
	if r.app == nil {
		return
	}
	if err := r.app.Close(); err != nil {
		slog.Warn("failed to close app", "error", err)
	}
	r.app = nil
}

// run wraps a command body so the App is closed however it returns.
func (r *runtime) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer r.close()
		return fn(cmd, args)
	}
}

// NewRootCmd builds the command tree. loadConfig is called once, by the
// first command that needs the App.
func NewRootCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	r := &runtime{loadConfig: loadConfig}

	root := &cobra.Command{
		Use:   "aoassistant",
		Short: "AO Assistant is a document-aware chat client",
		Long: `AO Assistant talks to a chat backend on your behalf: it keeps your
conversations, uploads documents for retrieval-augmented answers and
streams replies with their citations.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newLoginCmd(r),
		newSignupCmd(r),
		newLogoutCmd(r),
		newResetPasswordCmd(r),
		newWhoamiCmd(r),
		newConversationsCmd(r),
		newNewCmd(r),
		newDeleteCmd(r),
		newHistoryCmd(r),
		newSyncCmd(r),
		newChatCmd(r),
		newUploadCmd(r),
		newProfileDocsCmd(r),
		newSettingsCmd(r),
		newWatchCmd(r),
		newServeCmd(r),
	)
	return root
}

// Execute runs the command line with configuration from the environment.
func Execute(ctx context.Context) error {
	return NewRootCmd(config.Load).ExecuteContext(ctx)
}

// readSecret returns flagValue, or the first line of in when it is empty.
func readSecret(in io.Reader, out io.Writer, prompt, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading %s: %w", strings.TrimSuffix(strings.ToLower(prompt), ": "), err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s is required", strings.TrimSuffix(strings.ToLower(prompt), ": "))
	}
	return line, nil
}
