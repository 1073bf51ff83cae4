package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the session API and the live event stream.

Routes:
  GET    /api/sessions[?archived=true]   List sessions
  POST   /api/sessions                   Create a session
  GET    /api/sessions/{id}              Session with its messages
  PATCH  /api/sessions/{id}              Rename or (un)archive
  DELETE /api/sessions/{id}              Delete a session
  POST   /api/sessions/{id}/messages     Send a message
  POST   /api/messages                   Send a message to a new session
  GET    /api/events                     Websocket event stream

Callers identify themselves with the X-User-ID header.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck // best effort on exit

	addr := a.cfg.Server.Addr
	if v, _ := cmd.Flags().GetString("addr"); v != "" { //nolint:errcheck // flag is registered above
		addr = v
	}

	a.logger.Info("starting server",
		"addr", addr,
		"storage", a.cfg.Storage.Type,
		"classifier", a.cfg.Classifier.Type,
		"generator", a.cfg.Generator.Type,
	)

	if err := a.server().ListenAndServe(ctx, addr, a.cfg.Server.ShutdownTimeout.Std()); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	a.logger.Info("server stopped")
	return nil
}

// commandContext returns the command's context, or Background when run
// outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
