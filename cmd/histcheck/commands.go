package main

import (
	"github.com/spf13/cobra"
)

// exitCode is set by a command's RunE on a handled failure so main can
// os.Exit after cobra has already printed the error, matching spec §7's
// "configuration errors cause the CLI to exit non-zero" requirement
// without cobra's own exit-code handling getting in the way of RunE
// returning a plain error for a human-readable message.
var exitCode int

var (
	flagModels          []string
	flagAnomalies       []string
	flagSCCTimeoutMS    int
	flagConcurrency     int
	flagCheckLostUpdate bool
	flagOutputDir       string
	flagWatch           bool
	flagConfigFile      string

	flagLogLevel string
	flagLogDir   string
	flagJSONLogs bool

	flagWorkloadKeys      int
	flagWorkloadOps       int
	flagWorkloadTxns      int
	flagWorkloadDist      string
	flagWorkloadDistBase  float64
	flagWorkloadMinTxnLen int
	flagWorkloadMaxTxnLen int
	flagWorkloadMaxWrites int
	flagWorkloadRate      float64
	flagWorkloadSeed      int64

	rootCmd = &cobra.Command{
		Use:   "histcheck",
		Short: "Detect transactional-isolation anomalies in a database history",
		Long: `histcheck classifies cycles in a multi-relational dependency graph
built from a recorded transaction history into Adya's anomaly taxonomy,
scans for lost updates, and renders a verdict against a declared
consistency model.`,
	}

	checkCmd = &cobra.Command{
		Use:   "check [history-file]",
		Short: "Check a recorded history against a consistency model",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheck,
	}

	genCmd = &cobra.Command{
		Use:   "gen",
		Short: "Generate a synthetic history with internal/workload and check it",
		RunE:  runGen,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogDir, "log-dir", "", "Directory to additionally write log files to")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLogs, "json-logs", false, "Emit logs as JSON instead of text")

	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringSliceVar(&flagModels, "model", []string{"serializable"}, "Consistency model(s) to check against (repeatable, or comma-separated)")
	checkCmd.Flags().StringSliceVar(&flagAnomalies, "anomaly", nil, "Extra anomaly kind(s) to prohibit regardless of --model (repeatable, or comma-separated)")
	checkCmd.Flags().IntVar(&flagSCCTimeoutMS, "scc-timeout-ms", 5000, "Per-SCC search timeout in milliseconds (0 disables)")
	checkCmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "Max SCCs searched in parallel (0 = GOMAXPROCS default)")
	checkCmd.Flags().BoolVar(&flagCheckLostUpdate, "check-lost-update", true, "Additionally run the linear lost-update scan")
	checkCmd.Flags().StringVar(&flagOutputDir, "output-dir", "", "Directory to write <type>.txt and dot/<type>.dot reports to")
	checkCmd.Flags().BoolVar(&flagWatch, "watch", false, "Re-run the check whenever the history file changes")
	checkCmd.Flags().StringVar(&flagConfigFile, "config", "", "YAML or JSON file overriding the above flags")

	rootCmd.AddCommand(genCmd)
	genCmd.Flags().StringSliceVar(&flagModels, "model", []string{"serializable"}, "Consistency model(s) to check against (repeatable, or comma-separated)")
	genCmd.Flags().StringSliceVar(&flagAnomalies, "anomaly", nil, "Extra anomaly kind(s) to prohibit regardless of --model (repeatable, or comma-separated)")
	genCmd.Flags().IntVar(&flagSCCTimeoutMS, "scc-timeout-ms", 5000, "Per-SCC search timeout in milliseconds (0 disables)")
	genCmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "Max SCCs searched in parallel (0 = GOMAXPROCS default)")
	genCmd.Flags().BoolVar(&flagCheckLostUpdate, "check-lost-update", true, "Additionally run the linear lost-update scan")
	genCmd.Flags().StringVar(&flagOutputDir, "output-dir", "", "Directory to write <type>.txt and dot/<type>.dot reports to")
	genCmd.Flags().IntVar(&flagWorkloadKeys, "keys", 0, "Number of distinct keys in the synthetic workload (0 = distribution default)")
	genCmd.Flags().IntVar(&flagWorkloadOps, "ops-per-txn", 0, "Fix every transaction to this many micro-ops (0 = draw uniformly from --min-txn-length/--max-txn-length)")
	genCmd.Flags().IntVar(&flagWorkloadTxns, "txns", 200, "Number of transactions to generate")
	genCmd.Flags().StringVar(&flagWorkloadDist, "distribution", "uniform", "Key distribution: uniform or exponential")
	genCmd.Flags().Float64Var(&flagWorkloadDistBase, "key-dist-base", 2, "Base of the exponential key selection formula")
	genCmd.Flags().IntVar(&flagWorkloadMinTxnLen, "min-txn-length", 1, "Minimum micro-ops per generated transaction")
	genCmd.Flags().IntVar(&flagWorkloadMaxTxnLen, "max-txn-length", 2, "Maximum micro-ops per generated transaction")
	genCmd.Flags().IntVar(&flagWorkloadMaxWrites, "max-writes-per-key", 32, "Writes to a key before it's retired and replaced")
	genCmd.Flags().Float64Var(&flagWorkloadRate, "rate", 0, "Pace generation to this many micro-ops/sec (0 disables pacing)")
	genCmd.Flags().Int64Var(&flagWorkloadSeed, "seed", 1, "Deterministic RNG seed")
}
