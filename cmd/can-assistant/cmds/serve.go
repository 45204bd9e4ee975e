package cmds

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/go-go-golems/can-assistant/pkg/webchat"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser chat over websockets",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			router, err := a.newEventRouter()
			if err != nil {
				return err
			}

			opts := []webchat.ServerOption{
				webchat.WithAddr(a.settings.Server.Addr),
				webchat.WithDiagnostics(a.diagnostics),
				webchat.WithLoadingDelays(a.settings.Loading.SearchingAfter, a.settings.Loading.ProcessingAfter),
			}
			h, err := a.healthChecker()
			if err != nil {
				return err
			}
			if h != nil {
				opts = append(opts, webchat.WithHealthChecker(h))
			}

			srv, err := webchat.NewServer(a.catalog, router, a.newTransport, opts...)
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	return cmd
}
