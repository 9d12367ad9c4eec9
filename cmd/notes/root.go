package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/DaX-523/notes-ai-1811/internal/app"
	"github.com/DaX-523/notes-ai-1811/internal/config"
	"github.com/DaX-523/notes-ai-1811/internal/di"
	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
)

// remote is the part of the API that sits outside the note cache.
type remote interface {
	SummarizeAll(ctx context.Context) (string, error)
	Profile(ctx context.Context) (note.Profile, error)
}

type runtime struct {
	workspace *app.Workspace
	remote    remote
}

type opener func() (*runtime, func(), error)

type summaryRemote struct {
	*di.CLI
}

func (r summaryRemote) SummarizeAll(ctx context.Context) (string, error) {
	return r.Summarizer.SummarizeAll(ctx)
}

func (r summaryRemote) Profile(ctx context.Context) (note.Profile, error) {
	return r.API.Profile(ctx)
}

func openRuntime() (*runtime, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	cli, cleanup, err := di.InitializeCLI(cfg)
	if err != nil {
		return nil, nil, err
	}
	return &runtime{workspace: cli.Workspace, remote: summaryRemote{cli}}, cleanup, nil
}

func newRootCmd(open opener) *cobra.Command {
	var timeout time.Duration

	root := &cobra.Command{
		Use:           "notes",
		Short:         "Write notes and summarize them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Give up after this long")

	// with opens the runtime for one command and waits for every mutation
	// it started to settle before returning.
	with := wrapper(func(fn action) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			rt, cleanup, err := open()
			if err != nil {
				return report(cmd, err)
			}
			defer cleanup()

			runErr := fn(ctx, cmd, rt, args)
			if closeErr := rt.workspace.Close(ctx); closeErr != nil && runErr == nil {
				runErr = closeErr
			}
			return report(cmd, runErr)
		}
	})

	root.AddCommand(
		newSignUpCmd(with),
		newSignInCmd(with),
		newSignOutCmd(with),
		newWhoAmICmd(with),
		newListCmd(with),
		newFindCmd(with),
		newCreateCmd(with),
		newEditCmd(with),
		newDeleteCmd(with),
		newSummarizeCmd(with),
		newSummarizeAllCmd(with),
		newProfileCmd(with),
	)
	return root
}

// action is the body of a command, run against an open runtime.
type action func(ctx context.Context, cmd *cobra.Command, rt *runtime, args []string) error

type wrapper func(action) func(*cobra.Command, []string) error

func report(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	var unifiedErr *apperrors.UnifiedError
	if apperrors.As(err, &unifiedErr) {
		msg = apperrors.UserMessage(err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Error:", msg)
	return err
}
