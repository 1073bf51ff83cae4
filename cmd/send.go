package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guilhermegouw/parley/internal/conversation"
)

func newSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send [text...]",
		Short: "Send one message and print the reply",
		Long: `Send a message to a session and print the assistant's reply.

Without --session a new session is started. With no arguments the message
is read from standard input.`,
		RunE: runSend,
	}
	cmd.Flags().StringP("session", "s", "", "Session ID to continue")
	return cmd
}

func runSend(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		text = string(data)
	}
	// A blank message is a no-op: nothing is stored and no model is needed.
	if strings.TrimSpace(text) == "" {
		return nil
	}

	ctx := commandContext(cmd)
	a, err := newApp(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // best effort on exit

	sessionID, _ := cmd.Flags().GetString("session") //nolint:errcheck // flag is registered above
	res, err := a.orch.Submit(ctx, a.owner, sessionID, text)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch res.State {
	case conversation.TurnRejected:
		a.logger.DebugContext(ctx, "blank message ignored")
	case conversation.TurnPartialFailure:
		fmt.Fprintf(cmd.ErrOrStderr(), "session %s (%s): no reply: %v\n", res.Session.ID, res.Session.Mode, res.Err)
		return fmt.Errorf("generation failed")
	default:
		fmt.Fprintln(out, res.AssistantMessage.Content)
		fmt.Fprintf(cmd.ErrOrStderr(), "session %s (%s, %s)\n",
			res.Session.ID, res.Session.Mode, res.AssistantMessage.Model)
	}
	return nil
}
