package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/vesaa/sysadvisor/internal/analyzer"
	"github.com/vesaa/sysadvisor/internal/collector"
	"github.com/vesaa/sysadvisor/internal/config"
	apperrors "github.com/vesaa/sysadvisor/internal/errors"
	"github.com/vesaa/sysadvisor/internal/invoke"
	"github.com/vesaa/sysadvisor/internal/notify"
	"github.com/vesaa/sysadvisor/internal/pipeline"
	"github.com/vesaa/sysadvisor/internal/recorder"
	"github.com/vesaa/sysadvisor/internal/report"
	"github.com/vesaa/sysadvisor/internal/server"
	"github.com/vesaa/sysadvisor/internal/store"
)

const (
	defaultWatchInterval = 5
	defaultCheckInterval = 300
)

// loadConfig is swapped in tests.
var loadConfig = config.Load

func newRootCmd() *cobra.Command {
	var (
		jsonOut  bool
		watch    bool
		interval int
		noAI     bool
	)

	root := &cobra.Command{
		Use:   "sysadvisor",
		Short: "Host resource snapshot with recommendations",
		Long: `SysAdvisor samples CPU, memory and the heaviest processes, asks a
chat-completions model for up to three recommendations and prints a report.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateInterval("--interval", interval); err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			setupLogging(cfg.LogLevel, cfg.LogFormat)

			p, err := buildPipeline(cfg, noAI)
			if err != nil {
				return err
			}

			mode := report.ModeText
			if jsonOut {
				mode = report.ModeJSON
			}
			out := cmd.OutOrStdout()

			if !watch {
				res, err := p.Run(cmd.Context())
				if err != nil {
					return err
				}
				return report.Render(out, res, mode)
			}

			return pipeline.Loop(cmd.Context(), pipeline.LoopOptions{
				Interval: time.Duration(interval) * time.Second,
				Logger:   slog.Default(),
			}, func(ctx context.Context) error {
				res, err := p.Run(ctx)
				if err != nil {
					return err
				}
				return report.RenderWatch(out, res, mode)
			})
		},
	}
	root.Flags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	root.Flags().BoolVar(&watch, "watch", false, "Continuous monitoring mode")
	root.Flags().IntVar(&interval, "interval", defaultWatchInterval, "Update interval in seconds")
	root.PersistentFlags().BoolVar(&noAI, "no-ai", false, "Skip the recommendation request")

	root.AddCommand(newAlertCmd(), newRecordCmd(), newServeCmd(), newVersionCmd())
	return root
}

// ── alert subcommand ──────────────────────────────────────────────────────────

func newAlertCmd() *cobra.Command {
	var (
		cpuThresh int
		memThresh int
		every     int
		monitor   bool
	)
	cmd := &cobra.Command{
		Use:   "alert",
		Short: "Email a report when CPU or memory crosses a threshold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			th := notify.Thresholds{CPU: cpuThresh, Memory: memThresh}
			if err := th.Validate(); err != nil {
				return err
			}
			if err := validateInterval("--time", every); err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			setupLogging(cfg.LogLevel, cfg.LogFormat)

			mailer, err := notify.NewSMTPMailer(cfg)
			if err != nil {
				slog.Error("mail is not configured", "error", err)
				return err
			}
			src, err := selfInvoker(cmd, cfg)
			if err != nil {
				return err
			}

			n := notify.New(src, mailer, th, slog.Default())
			slog.Info("alert monitor started", "cpu_threshold", th.CPU, "memory_threshold", th.Memory)
			if !monitor {
				_, err := n.Check(cmd.Context())
				return err
			}
			return pipeline.Loop(cmd.Context(), pipeline.LoopOptions{
				Interval: time.Duration(every) * time.Second,
				Logger:   slog.Default(),
			}, func(ctx context.Context) error {
				_, err := n.Check(ctx)
				return err
			})
		},
	}
	cmd.Flags().IntVar(&cpuThresh, "cpu-thresh", notify.DefaultThresholds.CPU, "CPU threshold to notify (0-100)")
	cmd.Flags().IntVar(&memThresh, "mem-thresh", notify.DefaultThresholds.Memory, "Memory threshold to notify (0-100)")
	cmd.Flags().IntVar(&every, "time", defaultCheckInterval, "Check interval in seconds")
	cmd.Flags().BoolVar(&monitor, "monitor", false, "Run continuously")
	return cmd
}

// ── record subcommand ─────────────────────────────────────────────────────────

func newRecordCmd() *cobra.Command {
	var (
		output  string
		dbPath  string
		every   int
		monitor bool
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Append performance rows to a CSV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateInterval("--time", every); err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			setupLogging(cfg.LogLevel, cfg.LogFormat)

			if output == "" {
				output = cfg.CSVPath
			}
			if err := recorder.ValidatePath(output); err != nil {
				return err
			}
			if dbPath == "" {
				dbPath = cfg.DBPath
			}

			var history recorder.HistoryAppender
			if dbPath != "" {
				st, err := store.Open(dbPath)
				if err != nil {
					return fmt.Errorf("opening history store: %w", err)
				}
				defer st.Close()
				history = st
			}

			src, err := selfInvoker(cmd, cfg)
			if err != nil {
				return err
			}
			rec := recorder.New(src, output, history, slog.Default())

			slog.Info("performance logging started", "output", output)
			if !monitor {
				return rec.Record(cmd.Context())
			}
			err = pipeline.Loop(cmd.Context(), pipeline.LoopOptions{
				Interval:               time.Duration(every) * time.Second,
				MaxConsecutiveFailures: recorder.MaxConsecutiveFailures,
				Logger:                 slog.Default(),
			}, rec.Record)
			if errors.Is(err, pipeline.ErrTooManyFailures) {
				slog.Error("too many consecutive failures, stopping")
			}
			return err
		},
	}
	cmd.Flags().StringVar(&output, "output", "", "Output CSV file (default from config: system_performance.csv)")
	cmd.Flags().StringVar(&dbPath, "db", "", "Also store rows in this SQLite history database")
	cmd.Flags().IntVar(&every, "time", defaultCheckInterval, "Check interval in seconds")
	cmd.Flags().BoolVar(&monitor, "monitor", false, "Run continuously")
	return cmd
}

// ── serve subcommand ──────────────────────────────────────────────────────────

func newServeCmd() *cobra.Command {
	var (
		addr   string
		dbPath string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the SysAdvisor HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			setupLogging(cfg.LogLevel, cfg.LogFormat)
			printBanner(cmd, "SERVER")

			noAI, _ := cmd.Flags().GetBool("no-ai")
			p, err := buildPipeline(cfg, noAI)
			if err != nil {
				return err
			}

			if addr == "" {
				addr = cfg.ServerAddr
			}
			if dbPath == "" {
				dbPath = cfg.DBPath
			}

			var history server.History
			if dbPath != "" {
				st, err := store.Open(dbPath)
				if err != nil {
					return fmt.Errorf("opening history store: %w", err)
				}
				defer st.Close()
				history = st
			}

			auth := server.NewAuth(cfg.JWTSecret, cfg.AdminUser, cfg.AdminPass)
			fmt.Fprintf(cmd.ErrOrStderr(), "  ✓ API (JWT)     → http://%s/api\n", addr)
			fmt.Fprintf(cmd.ErrOrStderr(), "  ✓ Default login: %s / %s\n\n", cfg.AdminUser, cfg.AdminPass)
			return server.New(p, history, auth, slog.Default()).ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config: 127.0.0.1:8086)")
	cmd.Flags().StringVar(&dbPath, "db", "", "History database served by /api/history")
	return cmd
}

// ── version subcommand ────────────────────────────────────────────────────────

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print SysAdvisor version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "SysAdvisor %s  |  Author: vesaa\n", version)
		},
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func printBanner(cmd *cobra.Command, mode string) {
	fmt.Fprintf(cmd.ErrOrStderr(), "\n  ► SysAdvisor %s  |  Author: vesaa  |  Mode: %s\n\n", version, mode)
}

func validateInterval(flag string, seconds int) error {
	if seconds < 1 {
		return apperrors.Newf(apperrors.ErrCodeValidation, "%s must be at least 1 second, got %d", flag, seconds)
	}
	return nil
}

// buildPipeline wires the host collector and, unless disabled, the analyzer.
func buildPipeline(cfg *config.Config, noAI bool) (*pipeline.Pipeline, error) {
	c := collector.NewCollector(collector.HostSource{}, cfg.SampleInterval, slog.Default())
	if noAI {
		return pipeline.New(c, nil, slog.Default()), nil
	}
	completer, err := analyzer.NewOpenAICompleter(cfg)
	if err != nil {
		slog.Error("analysis is not configured", "error", err)
		return nil, err
	}
	a := analyzer.New(completer, cfg.AnalysisTimeout, slog.Default())
	return pipeline.New(c, a, slog.Default()), nil
}

// selfInvoker re-executes this binary, passing --no-ai through.
func selfInvoker(cmd *cobra.Command, cfg *config.Config) (*invoke.Invoker, error) {
	var extra []string
	if noAI, _ := cmd.Flags().GetBool("no-ai"); noAI {
		extra = append(extra, "--no-ai")
	}
	inv, err := invoke.Self(extra...)
	if err != nil {
		return nil, err
	}
	inv.Timeout = cfg.SubprocessTimeout()
	return inv, nil
}
