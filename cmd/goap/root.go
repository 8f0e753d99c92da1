package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joeycumines/go-goap/internal/config"
	"github.com/joeycumines/go-goap/internal/goap"
	"github.com/joeycumines/go-goap/internal/logging"
	"github.com/joeycumines/go-goap/internal/telemetry"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// app is the state shared by every subcommand once the root pre-run has
// loaded configuration.
type app struct {
	v          *viper.Viper
	configFile string

	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
	telemetry *telemetry.Provider
}

// Execute runs the CLI with args, cancelling on interrupt.
func Execute(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	return run(ctx, args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{v: config.NewViper()}
	cmd := a.rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	return errors.Join(err, a.teardown(ctx))
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "goap",
		Short: "Goal-oriented action planning",
		Long: `goap plans and executes action sequences that reach a goal.

Scenarios are YAML files declaring an initial world state, a goal and a set
of actions with preconditions, effects and costs. A name without a path
selects a builtin scenario.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/goap/config.yaml)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text, json)")
	flags.Int("max-iterations", 0, "node expansions before a search gives up")
	flags.String("heuristic", "", "search heuristic (unsatisfied, zero)")
	flags.Int("max-replans", 0, "replan budget before execution fails")
	for key, name := range map[string]string{
		"log.level":              "log-level",
		"log.format":             "log-format",
		"planner.max_iterations": "max-iterations",
		"planner.heuristic":      "heuristic",
		"executor.max_replans":   "max-replans",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(name))
	}

	root.AddCommand(
		newPlanCmd(a),
		newValidateCmd(a),
		newRunCmd(a),
		newPizzaCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	file := a.configFile
	if file == "" {
		var err error
		if file, err = config.ConfigFile(); err != nil {
			return err
		}
	}
	cfg, err := config.Load(a.v, file)
	if err != nil {
		return err
	}
	a.cfg = cfg
	goap.SetExprCacheSize(cfg.Planner.ExprCacheSize)

	logger, closer, err := logging.New(logging.Options{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		File:      cfg.Log.File,
		MaxSizeMB: cfg.Log.MaxSizeMB,
		MaxFiles:  cfg.Log.MaxFiles,
		Writer:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.logger, a.logCloser = logger, closer

	a.telemetry, err = telemetry.Setup(cmd.Context(), telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
	})
	if err != nil {
		return err
	}
	a.logger.Debug("configuration loaded", "file", file, "tracing", a.telemetry.Enabled())
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	var errs []error
	if a.telemetry != nil {
		// the command context may already be cancelled
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		errs = append(errs, a.telemetry.Shutdown(shutdownCtx))
		a.telemetry = nil
	}
	if a.logCloser != nil {
		errs = append(errs, a.logCloser.Close())
		a.logCloser = nil
	}
	return errors.Join(errs...)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "goap %s\n", version)
			return err
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration and every known option",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			schema := config.DefaultSchema()
			fmt.Fprintln(out, "Effective configuration:")
			for _, opt := range schema.Options() {
				fmt.Fprintf(out, "  %-26s %s\n", opt.Key, a.v.GetString(opt.Key))
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Options:")
			_, err := io.WriteString(out, schema.FormatHelp())
			return err
		},
	}
}
