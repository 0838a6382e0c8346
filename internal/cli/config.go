package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mcoot/mathlan/internal/config"
)

// env is the state shared by every command in one tree
type env struct {
	v          *viper.Viper
	configFile string
	logWriter  io.Writer

	cfg    *config.Config
	logger *slog.Logger
	out    *Output
}

// load resolves the layered config and builds the logger and output for cmd
func (e *env) load(cmd *cobra.Command) error {
	cfg, err := config.Load(e.v, e.configFile)
	if err != nil {
		return err
	}
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown output format %q", format)
	}

	e.cfg = cfg
	e.logger = NewLogger(e.logWriter, cfg.Log.Format, level)
	slog.SetDefault(e.logger)
	e.out = NewOutput(cmd.OutOrStdout(), format)
	return nil
}

// NewLogger builds a JSON or text slog logger writing to w
func NewLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// bindFlag binds a flag to a config key so flags override env and file values
func bindFlag(v *viper.Viper, flags *pflag.FlagSet, key, name string) {
	if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", name, err))
	}
}
