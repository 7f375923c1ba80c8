package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/loomworks/loom/cmd/loom/internal"
	"github.com/loomworks/loom/internal/config"
	"github.com/loomworks/loom/internal/observability"
	"github.com/loomworks/loom/pkg/version"
)

// appConfig holds the loaded configuration for the running command.
var appConfig *config.Config

// tracingShutdown flushes the tracer provider installed during setup.
var tracingShutdown func(context.Context) error

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Loom - workflow automation graph toolkit",
	Long: `Loom builds, inspects, and runs workflow automation graphs.

Flow modules (.flow files) describe workflows as a graph of typed nodes
connected by transitions. Loom parses and validates modules, renders
them in canonical form, computes layout positions, and tracks live
executions against a workflow execution service.`,
	PersistentPreRunE: setup,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute runs the root command with signal handling
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	flushTraces()
	return err
}

// flushTraces drains pending spans before the process exits.
func flushTraces() {
	if tracingShutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracingShutdown(ctx); err != nil {
		slog.Warn("tracing shutdown failed", "error", err)
	}
}

// setup runs before every command to load configuration and wire logging
func setup(cmd *cobra.Command, args []string) error {
	flags, err := ParseGlobalFlags(cmd)
	if err != nil {
		return err
	}

	// Version, help, and completion work without a config file.
	switch cmd.Name() {
	case "version", "help", "completion", cobra.ShellCompRequestCmd:
		return nil
	}

	path := flags.ConfigFile
	if path == "" {
		path = config.DefaultPath()
	}

	loader := config.NewLoader(config.NewValidator())
	cfg, err := loader.LoadWithDefaults(path)
	if err != nil {
		return internal.WrapError(internal.ExitConfigError, "failed to load configuration", err)
	}
	appConfig = cfg

	configureLogging(cfg, flags)

	if cfg.Tracing.Enabled {
		tp, err := observability.Setup(cmd.Context(), cfg.Tracing)
		if err != nil {
			return internal.WrapError(internal.ExitConfigError, "failed to initialize tracing", err)
		}
		tracingShutdown = func(ctx context.Context) error {
			return observability.Shutdown(ctx, tp)
		}
	}
	return nil
}

// activeConfig returns the loaded configuration, falling back to
// defaults when a command runs without the root setup.
func activeConfig() *config.Config {
	if appConfig != nil {
		return appConfig
	}
	return config.DefaultConfig()
}

// configureLogging installs the default slog handler per config and flags
func configureLogging(cfg *config.Config, flags *GlobalFlags) {
	level := parseLogLevel(cfg.Logging.Level)
	if flags.IsVerbose() {
		level = slog.LevelDebug
	}
	if flags.IsQuiet() {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func init() {
	RegisterGlobalFlags(rootCmd)
	versionCmd.Flags().StringVarP(&versionOutput, "output", "o", "", "Output format (text, json, yaml)")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(fmtCmd)
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}

var versionOutput string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := internal.ParseFormat(versionOutput)
		if err != nil {
			return err
		}
		if format == internal.FormatText {
			cmd.Println(version.String())
			return nil
		}
		return internal.Encode(cmd.OutOrStdout(), format, version.Get())
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for loom.

To load completions:

Bash:

  $ source <(loom completion bash)

Zsh:

  $ loom completion zsh > "${fpath[1]}/_loom"

Fish:

  $ loom completion fish | source

PowerShell:

  PS> loom completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case "bash":
			_ = cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			_ = cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			_ = cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			_ = cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
		}
	},
}
