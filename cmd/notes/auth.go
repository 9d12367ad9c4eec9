package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
)

// passwordEnv is read when --password is not given.
const passwordEnv = "NOTES_PASSWORD"

func password(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(passwordEnv)
}

func newSignUpCmd(with wrapper) *cobra.Command {
	var req note.SignUpRequest
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: with(func(ctx context.Context, cmd *cobra.Command, rt *runtime, _ []string) error {
			req.Password = password(req.Password)
			if req.ConfirmPassword == "" {
				req.ConfirmPassword = req.Password
			}
			user, err := rt.workspace.SignUp(ctx, req)
			if err != nil {
				return err
			}
			if user == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Check %s to confirm your account, then sign in.\n", req.Email)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s.\n", user.DisplayName())
			return nil
		}),
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "Your name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password (or set "+passwordEnv+")")
	cmd.Flags().StringVar(&req.ConfirmPassword, "confirm", "", "Repeat the password (defaults to --password)")
	return cmd
}

func newSignInCmd(with wrapper) *cobra.Command {
	var creds note.Credentials
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in",
		Args:  cobra.NoArgs,
		RunE: with(func(ctx context.Context, cmd *cobra.Command, rt *runtime, _ []string) error {
			creds.Password = password(creds.Password)
			user, err := rt.workspace.SignIn(ctx, creds)
			if err != nil {
				return err
			}
			c, err := rt.workspace.Notes(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%d notes).\n", user.DisplayName(), len(c.Notes()))
			return nil
		}),
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&creds.Password, "password", "", "Password (or set "+passwordEnv+")")
	return cmd
}

func newSignOutCmd(with wrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: with(func(ctx context.Context, cmd *cobra.Command, rt *runtime, _ []string) error {
			if err := rt.workspace.SignOut(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		}),
	}
}

func newWhoAmICmd(with wrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: with(func(ctx context.Context, cmd *cobra.Command, rt *runtime, _ []string) error {
			user, err := rt.workspace.Session().Resolve(ctx)
			if err != nil {
				return err
			}
			if user == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", user.DisplayName(), user.Email)
			return nil
		}),
	}
}

func newProfileCmd(with wrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show your profile",
		Args:  cobra.NoArgs,
		RunE: with(func(ctx context.Context, cmd *cobra.Command, rt *runtime, _ []string) error {
			if _, err := notesFor(ctx, rt); err != nil {
				return err
			}
			p, err := rt.remote.Profile(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\tjoined %s\n", p.ID, p.Name, p.Email, p.CreatedAt.Format("2006-01-02"))
			return nil
		}),
	}
}
