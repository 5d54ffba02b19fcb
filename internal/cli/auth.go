package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCmd(r *runtime) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in to the assistant",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (read from stdin when omitted)")

	cmd.RunE = r.run(func(cmd *cobra.Command, args []string) error {
		secret, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ", password)
		if err != nil {
			return err
		}
		a, err := r.open(cmd.Context())
		if err != nil {
			return err
		}
		session, err := a.Auth.SignIn(cmd.Context(), args[0], secret)
		if err != nil {
			return fmt.Errorf("sign in: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", session.User.Email)
		return nil
	})
	return cmd
}

func newSignupCmd(r *runtime) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "signup <email>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (read from stdin when omitted)")

	cmd.RunE = r.run(func(cmd *cobra.Command, args []string) error {
		secret, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ", password)
		if err != nil {
			return err
		}
		a, err := r.open(cmd.Context())
		if err != nil {
			return err
		}
		if err := a.Auth.SignUp(cmd.Context(), args[0], secret); err != nil {
			return fmt.Errorf("sign up: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Account created. Check your inbox if a confirmation is required.")
		return nil
	})
	return cmd
}

func newLogoutCmd(r *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = r.run(func(cmd *cobra.Command, args []string) error {
		a, err := r.open(cmd.Context())
		if err != nil {
			return err
		}
		if err := a.Auth.SignOut(cmd.Context()); err != nil {
			return fmt.Errorf("sign out: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	})
	return cmd
}

func newResetPasswordCmd(r *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-password <email>",
		Short: "Email a password recovery link",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = r.run(func(cmd *cobra.Command, args []string) error {
		a, err := r.open(cmd.Context())
		if err != nil {
			return err
		}
		if err := a.Auth.ResetPassword(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("reset password: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recovery email sent to %s\n", args[0])
		return nil
	})
	return cmd
}

func newWhoamiCmd(r *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = r.run(func(cmd *cobra.Command, args []string) error {
		a, err := r.open(cmd.Context())
		if err != nil {
			return err
		}
		user := a.Workspace.Snapshot().User
		if user == nil {
			fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("Not signed in."))
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", user.Email, user.ID)
		return nil
	})
	return cmd
}
