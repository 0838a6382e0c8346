package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/mathlan/internal/factory"
	"github.com/mcoot/mathlan/internal/lan"
)

func newHostCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Host a room and announce it on the network",
		Long: `Host a room, announce it over UDP broadcast and relay its events.

With --play the operator takes part as the host-local player. Type "help"
for the console commands; "start" begins the round once someone is ready.
Press Ctrl+C to stop hosting.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHost(cmd, e)
		},
	}

	flags := cmd.Flags()
	flags.String("name", "Host", "Host name shown to players")
	flags.String("mode", "party", "Game mode: duel, party, nitro, serpents")
	flags.Int("max-players", 8, "Seats for network players")
	flags.Int("port", 9898, "Session port (0 picks a free port)")
	flags.String("bind", "", "Interface to listen on (default all)")
	flags.String("advertise-ip", "", "Address announced to players (default first LAN IPv4)")
	flags.Bool("play", false, "Play as the host-local player")
	flags.String("profile", "", "Profile key for loading and saving weak facts")
	flags.Bool("no-announce", false, "Do not broadcast discovery announcements")
	flags.String("difficulty", "medium", "Difficulty preset: easy, medium, hard, custom")
	flags.IntSlice("tables", nil, "Times tables to draw from (overrides the preset)")
	flags.Int("questions", 20, "Questions per round")
	flags.Int("timer", 180, "Round time limit in seconds")
	flags.Int64("seed", -1, "Question seed (-1 picks one per round)")

	bindFlag(e.v, flags, "host.name", "name")
	bindFlag(e.v, flags, "host.mode", "mode")
	bindFlag(e.v, flags, "host.max_players", "max-players")
	bindFlag(e.v, flags, "host.port", "port")
	bindFlag(e.v, flags, "host.bind_host", "bind")
	bindFlag(e.v, flags, "host.advertise_ip", "advertise-ip")
	bindFlag(e.v, flags, "host.play", "play")
	bindFlag(e.v, flags, "host.profile_key", "profile")
	bindFlag(e.v, flags, "host.disable_announce", "no-announce")
	bindFlag(e.v, flags, "game.difficulty", "difficulty")
	bindFlag(e.v, flags, "game.tables", "tables")
	bindFlag(e.v, flags, "game.question_count", "questions")
	bindFlag(e.v, flags, "game.timer_seconds", "timer")
	bindFlag(e.v, flags, "game.seed", "seed")

	return cmd
}

func runHost(cmd *cobra.Command, e *env) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := factory.New(e.cfg, e.logger)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close(context.Background()) }()

	sub := app.Controller.Events(256)
	defer sub.Close()

	started, err := app.Controller.StartHost(ctx, lan.HostOptions{})
	if err != nil {
		return err
	}
	e.out.Print(started)

	c := &console{
		ctrl:      app.Controller,
		clock:     app.Clock,
		out:       e.out,
		hosting:   true,
		keepAlive: true,
	}
	return c.run(ctx, cmd.InOrStdin(), sub)
}
