package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tinytelemetry/rsvexclude/internal/console"
	"github.com/tinytelemetry/rsvexclude/internal/pipeline"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

type options struct {
	configPath string
	noWait     bool
}

func main() {
	os.Exit(execute(os.Args[1:]))
}

func execute(args []string) int {
	var opts options
	exitCode := 0

	root := &cobra.Command{
		Use:   "rsvexclude",
		Short: "Generate an RSV exclusion file from EasyNPC choices",
		Long: `rsvexclude reads EasyNPC's Profile.log, finds every NPC whose face
comes from one of the configured plugins, and writes an RSV exclusion
directive packed into an archive ready to install as a mod.

Settings come from config.toml beside the executable or in the working
directory (override with --config).`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			exitCode = run(cmd, opts)
			return nil
		},
	}

	flags := root.Flags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default is config.toml beside the executable or in the working directory)")
	flags.String("profile", "", `EasyNPC Profile.log to read ("-" reads stdin)`)
	flags.String("output-dir", "", "directory to create easynpc_rsv_excluder_output in (default is beside the executable)")
	flags.String("archiver", "", "archive format: 7z or zip")
	flags.String("archiver-path", "", "7-Zip executable (default is 7z on PATH)")
	flags.String("state-db", "", "DuckDB file to record the reduced NPC state in")
	flags.BoolVar(&opts.noWait, "no-wait", false, "exit without waiting for Enter")

	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return exitCode
}

func run(cmd *cobra.Command, opts options) int {
	cleanupLogger := configureRuntimeLogger()
	defer cleanupLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer := console.New(cmd.OutOrStdout())
	printer.Banner(version)

	runner := &pipeline.Runner{
		LoadConfig: func(context.Context) (pipeline.Config, error) {
			return loadConfig(opts.configPath, cmd.Flags())
		},
		Printer: printer,
	}
	out, err := runner.Run(ctx)
	if err != nil {
		log.Printf("run failed in state %s: %v", out.State, err)
	}

	if !opts.noWait && stdinIsTerminal() {
		if werr := console.WaitForKeypress(os.Stdin, cmd.OutOrStdout(), ""); werr != nil {
			log.Printf("keypress prompt: %v", werr)
		}
	}
	return pipeline.ExitCode(out.State)
}

func stdinIsTerminal() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func configureRuntimeLogger() func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	home, err := os.UserHomeDir()
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logDir := filepath.Join(home, ".local", "state", "rsvexclude")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logPath := filepath.Join(logDir, "rsvexclude.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		log.SetOutput(os.Stderr)
		_ = f.Close()
	}
}
