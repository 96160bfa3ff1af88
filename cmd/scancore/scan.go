package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forensix/scancore/cmd/scancore/logger"
	"github.com/forensix/scancore/config"
	"github.com/forensix/scancore/feature"
	"github.com/forensix/scancore/internal/carvestore"
	"github.com/forensix/scancore/internal/scanners/echo"
	"github.com/forensix/scancore/internal/sqlsink"
	"github.com/forensix/scancore/sbuf"
	"github.com/forensix/scancore/scanner"
)

var (
	scanOutdir        string
	scanEnable        []string
	scanDisable       []string
	scanHashAlgorithm string
	scanMaxDepth      int
	scanContextWindow int
	scanSettings      []string
	scanSQLDSN        string
	scanDupAlerts     bool
	scanSettingsFile  string
)

func init() {
	cmd := newScanCmd()
	cmd.Flags().StringVar(&scanOutdir, "outdir", "", "output directory for feature files and carved files (empty = "+config.NoOutdir+", disables recorders)")
	cmd.Flags().StringSliceVar(&scanEnable, "enable", nil, "scanner to enable, or ALL_SCANNERS (repeatable)")
	cmd.Flags().StringSliceVar(&scanDisable, "disable", nil, "scanner to disable, or ALL_SCANNERS (repeatable)")
	cmd.Flags().StringVar(&scanHashAlgorithm, "hash-algorithm", "sha1", "content hash algorithm: md5, sha1, or sha256")
	cmd.Flags().IntVar(&scanMaxDepth, "max-depth", 7, "maximum recursion depth before MAX_DEPTH_REACHED")
	cmd.Flags().IntVar(&scanContextWindow, "context-window", 16, "default feature context window, in bytes")
	cmd.Flags().StringSliceVar(&scanSettings, "set", nil, "scanner knob as key=value (repeatable)")
	cmd.Flags().StringVar(&scanSQLDSN, "sql-dsn", "", "Postgres DSN; when set, feature recorders write through the SQL backend instead of text files")
	cmd.Flags().BoolVar(&scanDupAlerts, "dup-data-alerts", false, "emit a DUP_SBUF alert for every previously-seen buffer, not just the byte count")
	cmd.Flags().StringVar(&scanSettingsFile, "settings-file", "", "KEY=VALUE file to seed scanner knobs from, applied before --set")
	rootCmd.AddCommand(cmd)
}

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <input>",
		Short: "Run one input file through the pipeline",
		Long: `scan maps <input> as a root safer buffer, runs it through every
enabled scanner, and flushes feature recorders and histograms on exit.

Example:
  scancore scan evidence.dd --outdir out --enable ALL_SCANNERS
  scancore scan evidence.dd --outdir out --enable echo --context-window 32`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(args[0])
		},
	}
}

func runScan(input string) error {
	algo, err := config.ParseHashAlgorithm(scanHashAlgorithm)
	if err != nil {
		return err
	}

	cfg := config.New(input, scanOutdir)
	cfg.HashAlgorithm = algo
	cfg.MaxDepth = scanMaxDepth
	cfg.ContextWindowDefault = scanContextWindow
	cfg.DupDataAlerts = scanDupAlerts
	cfg.SQLDataSourceName = scanSQLDSN

	if scanSettingsFile != "" {
		if err := cfg.LoadSettingsFile(scanSettingsFile); err != nil {
			return fmt.Errorf("scancore: %w", err)
		}
	}
	for _, kv := range scanSettings {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("scancore: malformed --set value %q, want key=value", kv)
		}
		cfg.Set(key, value)
	}
	for _, name := range scanEnable {
		cfg.Enable(name)
	}
	for _, name := range scanDisable {
		cfg.Disable(name)
	}

	var backend feature.Backend
	if cfg.SQLDataSourceName != "" {
		sqlBackend, err := sqlsink.Open(cfg.SQLDataSourceName)
		if err != nil {
			return fmt.Errorf("scancore: %w", err)
		}
		defer sqlBackend.Close()
		backend = sqlBackend
	} else {
		backend = feature.NewFileBackend(cfg.Outdir)
	}

	var carveStore feature.CarveStore
	if cfg.Outdir != config.NoOutdir {
		local, err := carvestore.NewLocal(cfg.Outdir, 256)
		if err != nil {
			return fmt.Errorf("scancore: %w", err)
		}
		carveStore = local
	}

	fset, err := feature.NewSet(feature.Options{
		Outdir:               cfg.Outdir,
		HashAlgorithm:        cfg.HashAlgorithm,
		ContextWindowDefault: cfg.ContextWindowDefault,
		Debug:                cfg.Debug,
		Backend:              backend,
		CarveStore:           carveStore,
	})
	if err != nil {
		return fmt.Errorf("scancore: %w", err)
	}

	set := scanner.NewSet(cfg, fset, logger.L)
	if err := set.AddScanner(echo.New()); err != nil {
		return fmt.Errorf("scancore: %w", err)
	}

	if err := set.ApplyScannerCommands(); err != nil {
		return fatalExit(err)
	}
	if err := set.PhaseScan(); err != nil {
		return fatalExit(err)
	}

	root, err := sbuf.MapFile(input)
	if err != nil {
		return fmt.Errorf("scancore: %w", err)
	}

	if cfg.Debug.ExitEarly {
		fmt.Printf("%s: bufsize=%d pagesize=%d\n", input, root.BufSize(), root.PageSize())
		return root.Close()
	}

	if err := set.ProcessSbuf(root); err != nil {
		return fatalExit(err)
	}

	if err := set.Shutdown(); err != nil {
		return fatalExit(err)
	}

	for _, snap := range set.StatsSnapshot() {
		logger.Info("scanner stats", "scanner", snap.Scanner, "calls", snap.Calls, "nanos", snap.Nanos)
	}
	return nil
}

// fatalExit wraps err so cobra's error path reports it plainly; a
// *scanner.CoreError with Fatal set indicates a driver/programmer bug
// rather than a per-scanner failure the dispatch loop already isolated.
func fatalExit(err error) error {
	var coreErr *scanner.CoreError
	if errors.As(err, &coreErr) && coreErr.Fatal {
		return fmt.Errorf("scancore: fatal: %w", coreErr.Err)
	}
	return fmt.Errorf("scancore: %w", err)
}
