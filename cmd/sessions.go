package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/guilhermegouw/parley/internal/session"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Manage sessions",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		Args:  cobra.NoArgs,
		RunE:  runSessionsList,
	}
	list.Flags().Bool("archived", false, "Show archived sessions instead of active ones")

	cmd.AddCommand(
		list,
		&cobra.Command{
			Use:   "show <session-id>",
			Short: "Print a session's messages",
			Args:  cobra.ExactArgs(1),
			RunE:  runSessionsShow,
		},
		&cobra.Command{
			Use:   "rename <session-id> [title]",
			Short: "Set a session title; omit it to clear",
			Args:  cobra.RangeArgs(1, 2),
			RunE:  runSessionsRename,
		},
		&cobra.Command{
			Use:   "archive <session-id>",
			Short: "Move a session to the archived view",
			Args:  cobra.ExactArgs(1),
			RunE:  runSessionsArchive(true),
		},
		&cobra.Command{
			Use:   "unarchive <session-id>",
			Short: "Move a session back to the active view",
			Args:  cobra.ExactArgs(1),
			RunE:  runSessionsArchive(false),
		},
		&cobra.Command{
			Use:   "delete <session-id>",
			Short: "Delete a session and its messages",
			Args:  cobra.ExactArgs(1),
			RunE:  runSessionsDelete,
		},
	)
	return cmd
}

func runSessionsList(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	a, err := newApp(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // best effort on exit

	archived, _ := cmd.Flags().GetBool("archived") //nolint:errcheck // flag is registered above
	sessions, err := a.orch.ListSessions(ctx, a.owner, archived)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tMODE\tCREATED")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.DisplayTitle(), s.Mode, s.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	a, err := newApp(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // best effort on exit

	tr, err := a.orch.SelectSession(ctx, a.owner, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  [%s]\n\n", tr.Session.DisplayTitle(), tr.Session.Mode)
	for _, m := range tr.Messages {
		fmt.Fprintf(out, "%s: %s\n", m.Role, m.Content)
	}
	return nil
}

func runSessionsRename(cmd *cobra.Command, args []string) error {
	title := ""
	if len(args) == 2 {
		title = args[1]
	}
	return withSession(cmd, args[0], func(a *app) (*session.Session, error) {
		return a.orch.RenameSession(commandContext(cmd), a.owner, args[0], title)
	})
}

func runSessionsArchive(archived bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, args[0], func(a *app) (*session.Session, error) {
			if archived {
				return a.orch.ArchiveSession(commandContext(cmd), a.owner, args[0])
			}
			return a.orch.UnarchiveSession(commandContext(cmd), a.owner, args[0])
		})
	}
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	a, err := newApp(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // best effort on exit

	if err := a.orch.DeleteSession(ctx, a.owner, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
	return nil
}

// withSession runs a session update and prints the result.
func withSession(cmd *cobra.Command, id string, fn func(a *app) (*session.Session, error)) error {
	a, err := newApp(commandContext(cmd), cmd, false)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // best effort on exit

	s, err := fn(a)
	if err != nil {
		return fmt.Errorf("session %s: %w", id, err)
	}
	state := "active"
	if s.Archived {
		state = "archived"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  [%s, %s]\n", s.ID, s.DisplayTitle(), s.Mode, state)
	return nil
}
