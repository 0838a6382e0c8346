package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/mathlan/internal/factory"
	"github.com/mcoot/mathlan/internal/model"
)

func newDiscoverCmd(e *env) *cobra.Command {
	var (
		wait  time.Duration
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List rooms announced on the local network",
		Long: `Listen for room announcements and print the hosts seen.

By default it listens for --wait and prints the list once. With --watch it
prints the list every time it changes until Ctrl+C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := factory.New(e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close(context.Background()) }()

			sub := app.Controller.Events(64)
			defer sub.Close()

			if err := app.Controller.StartDiscovery(0); err != nil {
				return err
			}

			if watch {
				return watchHosts(ctx, sub.C(), e.out)
			}

			select {
			case <-ctx.Done():
			case <-time.After(wait):
			}
			e.out.Print(app.Controller.Hosts())
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Int("port", 41234, "Discovery port")
	flags.DurationVar(&wait, "wait", 3*time.Second, "How long to listen before printing")
	flags.BoolVar(&watch, "watch", false, "Print the host list whenever it changes")
	bindFlag(e.v, flags, "discovery.port", "port")

	return cmd
}

func watchHosts(ctx context.Context, events <-chan model.Event, out *Output) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if event.Type == model.EventHosts {
				out.PrintEvent(event)
			}
		}
	}
}
