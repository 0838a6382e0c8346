package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/mathlan/internal/factory"
	"github.com/mcoot/mathlan/internal/host"
	"github.com/mcoot/mathlan/internal/lan"
	"github.com/mcoot/mathlan/internal/model"
)

func newJoinCmd(e *env) *cobra.Command {
	var (
		room   string
		rejoin string
		wait   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "join [address]",
		Short: "Join a hosted room",
		Long: `Join a room by address (host or host:port) or, with --room, by the
room code a host is announcing. Type answers as numbers; "help" lists the
other console commands.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && room == "" {
				return fmt.Errorf("an address or --room is required")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := factory.New(e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close(context.Background()) }()

			sub := app.Controller.Events(256)
			defer sub.Close()

			var hostAddr string
			var port int
			if len(args) == 1 {
				hostAddr, port, err = ParseAddress(args[0], host.DefaultPort)
			} else {
				hostAddr, port, err = findRoom(ctx, app.Controller, model.RoomCode(room), wait)
			}
			if err != nil {
				return err
			}

			if rejoin != "" {
				err = app.Controller.Rejoin(ctx, hostAddr, port, model.PlayerID(rejoin))
			} else {
				err = app.Controller.Join(ctx, hostAddr, port, e.cfg.Client.Name, e.cfg.Client.Color)
			}
			if err != nil {
				return err
			}

			c := &console{
				ctrl:  app.Controller,
				clock: app.Clock,
				out:   e.out,
			}
			return c.run(ctx, cmd.InOrStdin(), sub)
		},
	}

	flags := cmd.Flags()
	flags.String("name", "Player", "Display name")
	flags.String("color", "", "Player color (default picked by the host)")
	flags.StringVar(&room, "room", "", "Find the host announcing this room code")
	flags.StringVar(&rejoin, "rejoin", "", "Reclaim an existing player id instead of joining")
	flags.DurationVar(&wait, "wait", 5*time.Second, "How long to search for --room")
	bindFlag(e.v, flags, "client.name", "name")
	bindFlag(e.v, flags, "client.color", "color")

	return cmd
}

// ParseAddress splits host[:port], using defaultPort when none is given
func ParseAddress(addr string, defaultPort int) (string, int, error) {
	h, p, err := net.SplitHostPort(addr)
	if err != nil {
		// No port; SplitHostPort rejects bare hosts
		if addr == "" {
			return "", 0, fmt.Errorf("empty address")
		}
		return addr, defaultPort, nil
	}
	port, err := strconv.Atoi(p)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in %q", addr)
	}
	if h == "" {
		return "", 0, fmt.Errorf("missing host in %q", addr)
	}
	return h, port, nil
}

// findRoom listens for announcements until one carries the room code
func findRoom(ctx context.Context, ctrl *lan.Controller, room model.RoomCode, wait time.Duration) (string, int, error) {
	if err := ctrl.StartDiscovery(0); err != nil {
		return "", 0, err
	}
	defer ctrl.StopDiscovery()

	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		for _, h := range ctrl.Hosts() {
			if h.RoomCode == room {
				return h.HostIP, h.WsPort, nil
			}
		}
		select {
		case <-ctx.Done():
			return "", 0, fmt.Errorf("room %s not found", room)
		case <-ticker.C:
		}
	}
}
