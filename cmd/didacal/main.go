package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"didacal/internal/build"
	"didacal/internal/config"
	appLog "didacal/internal/log"
	"didacal/internal/web"
	"didacal/internal/window"
)

const version = "0.1.0"

// flagConfig holds CLI flag values that override the config file.
type flagConfig struct {
	configPath string
	sheet      string
	timezone   string
	today      string
	debug      bool

	icsPath string
	pngPath string
	listen  string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, window.ErrEmptyWindow):
		fmt.Fprintln(stderr, window.EmptyMessage)
	default:
		fmt.Fprintln(stderr, "Error:", err)
	}
	return 1
}

func newRootCommand() *cobra.Command {
	var flags flagConfig

	cmd := &cobra.Command{
		Use:   "didacal [flags] <input.xlsx|url> [output.html]",
		Short: "Render the upcoming month of a didactics schedule workbook as an HTML calendar",
		Long: "Reads a didactics schedule (.xlsx) and writes a static HTML calendar covering the\n" +
			"first of the current month through the same day next month.",
		Args:          cobra.RangeArgs(1, 2),
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(&flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("ics") {
				cfg.ICSOutput = flags.icsPath
			}
			if cmd.Flags().Changed("png") {
				cfg.PreviewPNG = flags.pngPath
			}

			output := cfg.Output
			if len(args) == 2 {
				output = args[1]
			}
			return generate(cmd, cfg, &flags, args[0], output)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Path to YAML config file (created with defaults if missing)")
	pf.StringVar(&flags.sheet, "sheet", "", "Worksheet name (default: first sheet)")
	pf.StringVar(&flags.timezone, "timezone", "", "IANA timezone used to decide today (overrides config)")
	pf.StringVar(&flags.today, "today", "", "Override today's date (YYYY-MM-DD)")
	pf.BoolVar(&flags.debug, "debug", false, "Enable debug logging")

	cmd.Flags().StringVar(&flags.icsPath, "ics", "", "Also write the window as an iCalendar file")
	cmd.Flags().StringVar(&flags.pngPath, "png", "", "Also write a PNG screenshot of the page (needs Chromium)")

	cmd.AddCommand(newServeCommand(&flags))
	return cmd
}

func newServeCommand(flags *flagConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [flags] <input.xlsx|url>",
		Short: "Serve the calendar over HTTP, re-reading the workbook on a cron schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if flags.listen != "" {
				cfg.Listen = flags.listen
			}
			if flags.today != "" {
				appLog.Info("--today is ignored by serve; the server follows the clock")
			}

			appLog.Info("effective config",
				"listen", cfg.Listen,
				"timezone", cfg.Timezone,
				"refresh", cfg.RefreshCron,
				"sheet", cfg.Sheet,
				"basic_auth", cfg.BasicAuth != nil,
			)

			// Root context with cancellation on SIGINT/SIGTERM.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return web.StartServer(ctx, cfg, args[0])
		},
	}
	cmd.Flags().StringVar(&flags.listen, "listen", "", "HTTP listen address (overrides config)")
	return cmd
}

// loadConfig reads the config file and applies the shared flag overrides.
func loadConfig(flags *flagConfig) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", flags.configPath, err)
	}
	if flags.sheet != "" {
		cfg.Sheet = flags.sheet
	}
	if flags.timezone != "" {
		cfg.Timezone = flags.timezone
	}

	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	} else {
		appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
	}
	return cfg, nil
}

// resolveToday returns the --today date, or the current date in the
// configured timezone.
func resolveToday(flags *flagConfig, cfg *config.Config) (time.Time, error) {
	if flags.today == "" {
		return time.Now().In(cfg.Location()), nil
	}
	t, err := time.Parse(time.DateOnly, flags.today)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --today %q: want YYYY-MM-DD", flags.today)
	}
	return t, nil
}

func generate(cmd *cobra.Command, cfg *config.Config, flags *flagConfig, input, output string) error {
	today, err := resolveToday(flags, cfg)
	if err != nil {
		return err
	}

	appLog.Info("didacal starting", "version", version, "input", input, "today", today.Format(time.DateOnly))

	res, err := build.Generate(cmd.Context(), build.OptionsFromConfig(cfg, input, today))
	if err != nil {
		return err
	}

	err = res.Write(cmd.Context(), build.Outputs{
		HTML:       output,
		ICS:        cfg.ICSOutput,
		PreviewPNG: cfg.PreviewPNG,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Wrote %s\n", output)
	if cfg.ICSOutput != "" {
		fmt.Fprintf(out, "✓ Wrote %s\n", cfg.ICSOutput)
	}
	if cfg.PreviewPNG != "" {
		fmt.Fprintf(out, "✓ Wrote %s\n", cfg.PreviewPNG)
	}
	return nil
}
