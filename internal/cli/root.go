// Package cli implements the starcalc command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	service "github.com/nmgenxys/starcalc/internal/app"
	"github.com/nmgenxys/starcalc/internal/config"
	"github.com/nmgenxys/starcalc/internal/report"
	"github.com/nmgenxys/starcalc/pkg/logger"
	"github.com/nmgenxys/starcalc/pkg/metrics"
)

// globalFlags holds the persistent flags shared by every command.
type globalFlags struct {
	configFile string
	output     string
	outputFile string
	planType   string
	logLevel   string
}

// session is the state a command runs with once configuration is loaded and
// the service has started.
type session struct {
	cfg      *config.Config
	svc      *service.Service
	renderer *report.Renderer
	flags    *globalFlags
	cmd      *cobra.Command
}

// NewRootCommand builds the command tree. Every call returns fresh commands.
func NewRootCommand(version string) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "starcalc",
		Short: "Compute Medicare Star Ratings and what-if projections.",
		Long: `starcalc classifies contract measure scores into 1-5 star ratings,
averages them into Part C, Part D and overall scores, and projects how
the averages move when measure values change.`,
		Version:            version,
		SilenceErrors:      true,
		SilenceUsage:       true,
		DisableSuggestions: true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "YAML config file (defaults to $"+config.EnvConfig+")")
	pf.StringVarP(&flags.output, "output", "o", "", "Output format: text, json, csv or parquet")
	pf.StringVar(&flags.outputFile, "output-file", "", "Write output to this file instead of stdout")
	pf.StringVar(&flags.planType, "plan-type", "", "Part D plan type: MA-PD or PDP")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	root.AddCommand(
		newRateCommand(flags),
		newSummaryCommand(flags),
		newProjectCommand(flags),
		newSimulateCommand(flags),
		newContractsCommand(flags),
		newLeaderboardCommand(flags),
		newThresholdsCommand(flags),
		newMCPCommand(flags),
	)
	return root
}

// Execute runs the command tree with ctx and os.Args.
func Execute(ctx context.Context, version string) error {
	return NewRootCommand(version).ExecuteContext(ctx)
}

// setup loads configuration, applies flag overrides and starts the service.
// Callers must close the returned session.
func setup(cmd *cobra.Command, flags *globalFlags) (*session, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	path := flags.configFile
	if path == "" {
		path = os.Getenv(config.EnvConfig)
	}
	cfg, err := config.LoadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if flags.output != "" {
		cfg.Output = flags.output
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Logs never share stdout with command output or the MCP stream.
	if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr()), logger.WithFormat(cfg.LogFormat)); err != nil {
		return nil, err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	metrics.Configure(service.MetricsOptionsFromConfig(cfg)...)

	format, err := report.ParseFormat(cfg.Output)
	if err != nil {
		return nil, err
	}

	svc := service.New(service.OptionsFromConfig(cfg)...)
	if err := svc.Start(ctx); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	return &session{
		cfg:      cfg,
		svc:      svc,
		renderer: report.New(format, cfg.Precision),
		flags:    flags,
		cmd:      cmd,
	}, nil
}

func (s *session) close() { s.svc.Stop() }

func (s *session) context() context.Context {
	if ctx := s.cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// render writes v in the configured format.
func (s *session) render(v any) error {
	return s.renderer.RenderTo(s.flags.outputFile, s.cmd.OutOrStdout(), v)
}

// run wraps a command body with setup and teardown.
func run(flags *globalFlags, body func(s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := setup(cmd, flags)
		if err != nil {
			return err
		}
		defer s.close()
		return body(s, args)
	}
}
