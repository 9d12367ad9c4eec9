package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DaX-523/notes-ai-1811/internal/cache"
	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
)

// notesFor resolves the session and returns the signed-in user's cache.
func notesFor(ctx context.Context, rt *runtime) (*cache.MutationCache, error) {
	if _, err := rt.workspace.Start(ctx); err != nil {
		return nil, err
	}
	return rt.workspace.Notes(ctx)
}

// settle waits for m and then for any refresh it triggered.
func settle(ctx context.Context, c *cache.MutationCache, m *cache.Mutation) (note.Note, error) {
	n, err := m.Wait(ctx)
	if err != nil {
		return note.Note{}, err
	}
	return n, c.WaitIdle(ctx)
}

func printNotes(w io.Writer, list []note.Note, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}
	if len(list) == 0 {
		fmt.Fprintln(w, "No notes.")
		return nil
	}
	for _, n := range list {
		summary := ""
		if n.HasSummary() {
			summary = "  [" + firstLine(n.SummaryText()) + "]"
		}
		fmt.Fprintf(w, "%s\t%s\t%s%s\n", n.ID, n.CreatedAt.Local().Format("2006-01-02 15:04"), n.Title, summary)
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func newListCmd(with wrapper) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your notes, newest first",
		Args:  cobra.NoArgs,
		RunE: with(func(ctx context.Context, cmd *cobra.Command, rt *runtime, _ []string) error {
			c, err := notesFor(ctx, rt)
			if err != nil {
				return err
			}
			return printNotes(cmd.OutOrStdout(), c.Notes(), asJSON)
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func newFindCmd(with wrapper) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "find <query>",
		Short: "Fuzzy-search your notes by title and content",
		Args:  cobra.MinimumNArgs(1),
		RunE: with(func(ctx context.Context, cmd *cobra.Command, rt *runtime, args []string) error {
			c, err := notesFor(ctx, rt)
			if err != nil {
				return err
			}
			return printNotes(cmd.OutOrStdout(), c.Search(strings.Join(args, " ")), asJSON)
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func newCreateCmd(with wrapper) *cobra.Command {
	var title, content string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a note",
		Args:  cobra.NoArgs,
		RunE: with(func(ctx context.Context, cmd *cobra.Command, rt *runtime, _ []string) error {
			c, err := notesFor(ctx, rt)
			if err != nil {
				return err
			}
			n, err := settle(ctx, c, c.Create(ctx, title, content))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", n.ID)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Note title")
	cmd.Flags().StringVarP(&content, "content", "c", "", "Note body")
	return cmd
}

func newEditCmd(with wrapper) *cobra.Command {
	var title, content string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a note's title or content",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(ctx context.Context, cmd *cobra.Command, rt *runtime, args []string) error {
			c, err := notesFor(ctx, rt)
			if err != nil {
				return err
			}
			n, ok := c.Get(args[0])
			if !ok {
				n = note.Note{ID: args[0]}
			}
			if cmd.Flags().Changed("title") {
				n.Title = title
			}
			if cmd.Flags().Changed("content") {
				n.Content = content
			}
			if _, err := settle(ctx, c, c.Update(ctx, n)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", n.ID)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().StringVarP(&content, "content", "c", "", "New body")
	return cmd
}

func newDeleteCmd(with wrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(ctx context.Context, cmd *cobra.Command, rt *runtime, args []string) error {
			c, err := notesFor(ctx, rt)
			if err != nil {
				return err
			}
			if _, err := settle(ctx, c, c.Delete(ctx, args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		}),
	}
}

func newSummarizeCmd(with wrapper) *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   "summarize <id>",
		Short: "Generate a summary for a note, or set one with --text",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(ctx context.Context, cmd *cobra.Command, rt *runtime, args []string) error {
			c, err := notesFor(ctx, rt)
			if err != nil {
				return err
			}
			var m *cache.Mutation
			if cmd.Flags().Changed("text") {
				m = c.SetSummary(ctx, args[0], text)
			} else {
				m = c.Summarize(ctx, args[0])
			}
			n, err := settle(ctx, c, m)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n.SummaryText())
			return nil
		}),
	}
	cmd.Flags().StringVar(&text, "text", "", "Use this summary instead of generating one")
	return cmd
}

func newSummarizeAllCmd(with wrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize-all",
		Short: "Summarize all of your notes together",
		Args:  cobra.NoArgs,
		RunE: with(func(ctx context.Context, cmd *cobra.Command, rt *runtime, _ []string) error {
			if _, err := notesFor(ctx, rt); err != nil {
				return err
			}
			summary, err := rt.remote.SummarizeAll(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		}),
	}
}
