package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dbhist/histcheck/internal/checkrun"
	"github.com/dbhist/histcheck/internal/config"
	"github.com/dbhist/histcheck/internal/history"
	"github.com/dbhist/histcheck/internal/render"
	"github.com/dbhist/histcheck/internal/sccdriver"
	"github.com/dbhist/histcheck/internal/telemetry"
	"github.com/dbhist/histcheck/internal/workload"
	"github.com/dbhist/histcheck/pkg/logging"
)

func optionsFromFlags(historyFile string) config.Options {
	return config.Options{
		Models:          flagModels,
		Anomalies:       flagAnomalies,
		HistoryFile:     historyFile,
		SCCTimeoutMS:    flagSCCTimeoutMS,
		Concurrency:     flagConcurrency,
		CheckLostUpdate: flagCheckLostUpdate,
		OutputDir:       flagOutputDir,
		Watch:           flagWatch,
	}
}

func loadOptions(historyFile string) (config.Options, error) {
	if flagConfigFile == "" {
		opts := optionsFromFlags(historyFile)
		if err := opts.Validate(); err != nil {
			return config.Options{}, err
		}
		return opts, nil
	}

	data, err := os.ReadFile(flagConfigFile)
	if err != nil {
		return config.Options{}, fmt.Errorf("reading config file: %w", err)
	}
	switch filepath.Ext(flagConfigFile) {
	case ".json":
		return config.DecodeJSON(data)
	default:
		return config.DecodeYAML(data)
	}
}

func loadHistory(path string) (*history.History, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading history file: %w", err)
	}

	var h history.History
	switch filepath.Ext(path) {
	case ".json":
		err = json.Unmarshal(data, &h)
	default:
		err = yaml.Unmarshal(data, &h)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing history file: %w", err)
	}
	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("invalid history: %w", err)
	}
	return &h, nil
}

func newLogger() *logging.Logger {
	var level logging.Level
	switch flagLogLevel {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	default:
		level = logging.LevelInfo
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  flagLogDir,
		Service: "histcheck",
		JSON:    flagJSONLogs,
	})
}

func printSummary(res *checkrun.Result) {
	fmt.Printf("models:      %s\n", strings.Join(res.Opts.Models, ","))
	fmt.Printf("valid:       %t\n", res.Verdict.Valid)
	fmt.Printf("unknown:     %t\n", res.Verdict.Unknown)
	fmt.Printf("duration:    %s\n", res.Duration)
	if len(res.Verdict.Anomalies) > 0 {
		fmt.Printf("anomalies:   %v\n", res.Verdict.Anomalies)
	}
	if len(res.Verdict.Reportable) > 0 {
		fmt.Printf("reportable:  %v\n", res.Verdict.Reportable)
	}
	if len(res.LostUpdates) > 0 {
		fmt.Printf("lost updates: %d\n", len(res.LostUpdates))
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Close()

	historyFile := args[0]
	opts, err := loadOptions(historyFile)
	if err != nil {
		exitCode = 1
		return err
	}

	providers, err := telemetry.SetupStdout(cmd.Context())
	if err == nil {
		defer providers.Shutdown(context.Background())
	}

	run := func() error {
		h, err := loadHistory(opts.HistoryFile)
		if err != nil {
			return err
		}
		res, err := checkWithProgress(cmd.Context(), logger, h, opts)
		if err != nil {
			return err
		}
		printSummary(res)
		if opts.OutputDir != "" {
			w := render.NewWriter(opts.OutputDir, nil)
			if err := w.WriteReport(res.Report); err != nil {
				return fmt.Errorf("writing rendered report: %w", err)
			}
		}
		if !res.Verdict.Valid {
			exitCode = 1
		}
		return nil
	}

	if err := run(); err != nil {
		exitCode = 1
		return err
	}

	if !opts.Watch {
		return nil
	}

	logger.Info("watching history file for changes", slog.String("path", opts.HistoryFile))
	return render.WatchFile(cmd.Context(), opts.HistoryFile, func() {
		if err := run(); err != nil {
			logger.Error("check failed after file change", slog.String("error", err.Error()))
		}
	})
}

// checkWithProgress runs one check, rendering progress as a bubbletea TUI
// when stdout is a terminal and as structured log lines otherwise.
func checkWithProgress(ctx context.Context, logger *logging.Logger, h *history.History, opts config.Options) (*checkrun.Result, error) {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return checkrun.Run(ctx, logger.Slog(), h, opts, func(e sccdriver.SCCEvent) {
			logger.Info("scc searched",
				slog.Int("size", e.SCCSize),
				slog.Bool("timed_out", e.TimedOut),
				slog.Any("anomalies", e.Anomalies),
			)
		})
	}
	return runWithTUI(ctx, logger, h, opts)
}

func runGen(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Close()

	gen := workload.New(workload.Options{
		KeyCount:        flagWorkloadKeys,
		Distribution:    workload.Distribution(flagWorkloadDist),
		KeyDistBase:     flagWorkloadDistBase,
		MinTxnLength:    flagWorkloadMinTxnLen,
		MaxTxnLength:    flagWorkloadMaxTxnLen,
		MaxWritesPerKey: flagWorkloadMaxWrites,
		OpsPerTxn:       flagWorkloadOps,
		Rate:            flagWorkloadRate,
		Seed:            flagWorkloadSeed,
	})

	h := &history.History{}
	for i := 0; i < flagWorkloadTxns; i++ {
		txn, err := gen.Next(cmd.Context())
		if err != nil {
			exitCode = 1
			return fmt.Errorf("generating transaction: %w", err)
		}
		h.Txns = append(h.Txns, txn)
	}

	opts := config.Options{
		Models:          flagModels,
		Anomalies:       flagAnomalies,
		HistoryFile:     "(generated)",
		SCCTimeoutMS:    flagSCCTimeoutMS,
		Concurrency:     flagConcurrency,
		CheckLostUpdate: flagCheckLostUpdate,
		OutputDir:       flagOutputDir,
	}
	if err := opts.Validate(); err != nil {
		exitCode = 1
		return err
	}

	res, err := checkWithProgress(cmd.Context(), logger, h, opts)
	if err != nil {
		exitCode = 1
		return err
	}
	printSummary(res)
	if opts.OutputDir != "" {
		w := render.NewWriter(opts.OutputDir, nil)
		if err := w.WriteReport(res.Report); err != nil {
			return fmt.Errorf("writing rendered report: %w", err)
		}
	}
	if !res.Verdict.Valid {
		exitCode = 1
	}
	return nil
}
