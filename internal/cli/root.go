package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/admitguard/admitguard/internal/config"
	"github.com/admitguard/admitguard/internal/version"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "admitguard",
	Short: "Admission eligibility determination with audited exceptions",
	Long: `admitguard: eligibility engine for admission candidates.
Checks candidates against strict and soft rules, lets soft rules be waived
with a written rationale, and records every submitted decision in an
append-only audit log.`,
	Version:           version.String(),
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

var (
	configFlag       string
	logFormatFlag    string
	logLevelFlag     string
	logOutputFlag    string
	otelFlag         bool
	otelEndpointFlag string
	noColorFlag      bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFlag, "config", "", "Path to config file (default ~/.admitguard/config.yaml)")
	pf.StringVar(&logFormatFlag, "log-format", "", "Log format: pretty, jsonl or off")
	pf.StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn or error")
	pf.StringVar(&logOutputFlag, "log-output", "", "Log destination: stderr or a file path")
	pf.BoolVar(&otelFlag, "otel", false, "Enable OpenTelemetry tracing")
	pf.StringVar(&otelEndpointFlag, "otel-endpoint", "", "OTLP endpoint")
	pf.BoolVar(&noColorFlag, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(GetEvaluateCmd())
	rootCmd.AddCommand(GetSessionCmd())
	rootCmd.AddCommand(GetRulesCmd())
	rootCmd.AddCommand(GetAuditCmd())
}

func Execute() {
	err := rootCmd.Execute()
	if a := active; a != nil {
		a.close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
		os.Exit(1)
	}
}

// setup runs before every subcommand: config, logger, tracing
func setup(cmd *cobra.Command, args []string) error {
	if noColorFlag {
		color.NoColor = true
	}

	if err := config.LoadDotEnv(".env", filepath.Join(config.Dir(), ".env")); err != nil {
		return err
	}
	cfg, err := config.Load(configFlag)
	if err != nil {
		return err
	}

	if logFormatFlag != "" {
		cfg.Logging.Format = logFormatFlag
	}
	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}
	if logOutputFlag != "" {
		cfg.Logging.Output = logOutputFlag
	}
	if otelFlag {
		cfg.OTel.Enabled = true
	}
	if otelEndpointFlag != "" {
		cfg.OTel.Endpoint = otelEndpointFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, ctx, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	active = a
	cmd.SetContext(ctx)
	return nil
}
