package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/BaSui01/seriesflow/config"
	"github.com/BaSui01/seriesflow/internal/database"
	"github.com/BaSui01/seriesflow/internal/history"
	"github.com/BaSui01/seriesflow/internal/migration"
	"go.uber.org/zap"
)

// =============================================================================
// 🗂️ 运行历史
// =============================================================================

// openHistory 按需迁移后打开运行历史存储，调用方负责关闭 pool
func openHistory(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*history.Store, *database.PoolManager, error) {
	if cfg.AutoMigrate {
		info, err := migration.Up(ctx, cfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("migrate run history: %w", err)
		}
		logger.Info("run history schema ready", zap.Uint("version", info.CurrentVersion))
	}
	pool, err := database.Open(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return history.NewStore(pool, logger), pool, nil
}

// recordRun 写入一条运行记录。失败只记日志，不影响命令结果。
func recordRun(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger, run *history.Run) {
	if !cfg.Enabled {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	store, pool, err := openHistory(ctx, cfg, logger)
	if err != nil {
		logger.Warn("run history not available", zap.Error(err))
		return
	}
	defer pool.Close()

	if err := store.Record(ctx, run); err != nil {
		logger.Warn("failed to record run", zap.Error(err))
	}
}

// =============================================================================
// 📜 runs 命令
// =============================================================================

func runRuns(args []string) int {
	return runsMain(args, os.Stdout)
}

func runsMain(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	gen := fs.String("generator", "", "Only runs of this generator")
	role := fs.String("role", "", "Only runs of this role: client, server, publisher")
	status := fs.String("status", "", "Only runs with this status: completed, failed")
	limit := fs.Int("limit", history.DefaultListLimit, "Maximum number of runs")
	summary := fs.Bool("summary", false, "Aggregate per generator instead of listing")
	asJSON := fs.Bool("json", false, "Print JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if !cfg.Database.Enabled {
		fmt.Fprintln(os.Stderr, "run history is disabled (database.enabled=false)")
		return 1
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	store, pool, err := openHistory(ctx, cfg.Database, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "runs failed: %v\n", err)
		return 1
	}
	defer pool.Close()

	if *summary {
		sums, err := store.Summaries(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "runs failed: %v\n", err)
			return 1
		}
		if *asJSON {
			return encodeJSON(out, sums)
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "GENERATOR\tRUNS\tFAILED\tVALUES")
		for _, s := range sums {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", s.Generator, s.Runs, s.Failed, s.Values)
		}
		_ = tw.Flush()
		return 0
	}

	runs, err := store.List(ctx, history.Filter{
		Generator: *gen,
		Role:      history.Role(*role),
		Status:    history.Status(*status),
		Limit:     *limit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "runs failed: %v\n", err)
		return 1
	}
	if *asJSON {
		return encodeJSON(out, runs)
	}
	printRuns(out, runs)
	return 0
}

func printRuns(out io.Writer, runs []history.Run) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tROLE\tGENERATOR\tTRANSPORT\tCYCLES\tVALUES\tSTATUS\tDURATION")
	for _, r := range runs {
		status := string(r.Status)
		if r.ErrorCode != "" {
			status += " (" + r.ErrorCode + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.StartedAt.Format(time.RFC3339), r.Role, r.Generator, r.Transport,
			r.Cycles, r.ValueCount, status, r.Duration().Round(time.Millisecond))
	}
	_ = tw.Flush()
}

func encodeJSON(out io.Writer, v any) int {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}

// =============================================================================
// 🔧 migrate 命令
// =============================================================================

func runMigrate(args []string) int {
	return migrateMain(args, os.Stdout)
}

func migrateMain(args []string, out io.Writer) int {
	if len(args) < 1 {
		printMigrateUsage(out)
		return 1
	}
	sub, rest := args[0], args[1:]
	if sub == "help" || sub == "-h" || sub == "--help" {
		printMigrateUsage(out)
		return 0
	}

	fs := flag.NewFlagSet("migrate "+sub, flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	if err := fs.Parse(rest); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	m, err := migration.NewMigratorFromConfig(cfg.Database, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create migrator: %v\n", err)
		return 1
	}
	defer m.Close()

	cli := migration.NewCLI(m)
	cli.SetOutput(out)
	ctx := context.Background()

	switch sub {
	case "up":
		err = cli.RunUp(ctx)
	case "down":
		err = cli.RunDown(ctx)
	case "reset":
		err = cli.RunDownAll(ctx)
	case "status":
		err = cli.RunStatus(ctx)
	case "version":
		err = cli.RunVersion(ctx)
	case "goto", "force":
		if fs.NArg() < 1 {
			fmt.Fprintf(os.Stderr, "migrate %s requires a version argument\n", sub)
			return 1
		}
		v, perr := strconv.Atoi(fs.Arg(0))
		if perr != nil || (sub == "goto" && v < 0) {
			fmt.Fprintf(os.Stderr, "invalid version %q\n", fs.Arg(0))
			return 1
		}
		if sub == "goto" {
			err = cli.RunGoto(ctx, uint(v))
		} else {
			err = cli.RunForce(ctx, v)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown migrate subcommand: %s\n", sub)
		printMigrateUsage(out)
		return 1
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s failed: %v\n", sub, err)
		return 1
	}
	return 0
}

func printMigrateUsage(out io.Writer) {
	fmt.Fprintln(out, `Run history schema migrations

Usage:
  seriesflow migrate <subcommand> [--config <path>] [version]

Subcommands:
  up        Apply all pending migrations
  down      Roll back the last migration
  reset     Roll back all migrations
  status    Show migration status
  version   Show current migration version
  goto N    Migrate to version N
  force N   Set the version without running migrations`)
}
