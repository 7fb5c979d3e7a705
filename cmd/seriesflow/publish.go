package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/BaSui01/seriesflow/generator"
	"github.com/BaSui01/seriesflow/internal/history"
	"github.com/BaSui01/seriesflow/internal/telemetry"
	"github.com/BaSui01/seriesflow/session"
	"github.com/BaSui01/seriesflow/transport/redisq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// =============================================================================
// 📤 publish 命令
// =============================================================================

// publish configures gen in-process and pushes one run onto the redis list.
// Coordination goes through a loopback client so the parameters pass the
// same negotiation as a remote session. The returned run is filled in even
// when publishing fails.
func publish(ctx context.Context, rdb redis.UniversalClient, qc redisq.Config, gen string, overrides map[string]any, logger *zap.Logger, opts session.Options) (history.StreamRun, error) {
	srv := session.NewServer(generator.DefaultRegistry(), opts)
	cli := session.NewClient(session.NewLoopback(srv), nil, opts)
	run := history.StreamRun{
		SessionID: srv.ID(),
		Generator: gen,
		Transport: "redis",
		Subject:   qc.Key,
		Started:   time.Now(),
	}
	finish := func(err error) (history.StreamRun, error) {
		run.Finished = time.Now()
		run.Err = err
		return run, err
	}

	if _, err := cli.Choose(ctx, gen); err != nil {
		return finish(err)
	}
	if _, err := cli.Configure(ctx, overrides); err != nil {
		return finish(err)
	}
	if payload, ok := srv.Payload(); ok {
		run.DataType = payload.DataType
	}

	pub := redisq.NewPublisher(rdb, qc.Key, qc.TTL, logger)
	frames, err := pub.Publish(ctx, srv)
	run.Frames = frames
	run.Values = pub.Values()
	return finish(err)
}

func runPublish(args []string) int {
	fs := flag.NewFlagSet("publish", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	gen := fs.String("generator", "", "Generator handle")
	key := fs.String("key", "", "Redis list key")
	overrides := overrideFlags{}
	fs.Var(overrides, "set", "Parameter override key=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	given := visited(fs)
	if given["generator"] {
		cfg.Client.Generator = *gen
	}
	if given["key"] {
		cfg.Redis.Key = *key
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	providers, err := telemetry.Init(cfg.Telemetry, logger, telemetry.WithRole("publish"))
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() { _ = providers.Shutdown(context.Background()) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	qc := queueConfig(cfg.Redis)
	rdb, err := redisq.Connect(ctx, qc, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "publish failed: %v\n", err)
		return 1
	}
	defer rdb.Close()

	opts := sessionOptions(cfg.Stream, logger, providers.Tracer("seriesflow/publish"), nil, "server")
	run, err := publish(ctx, rdb, qc, cfg.Client.Generator, overrides.merge(cfg.Client.Overrides), logger, opts)
	recordRun(ctx, cfg.Database, logger, history.ServerRun(history.RolePublisher, run))
	if err != nil {
		fmt.Fprintf(os.Stderr, "publish failed: %v\n", err)
		return 1
	}
	fmt.Printf("published %d frames (%d values) to %s in %s\n",
		run.Frames, run.Values, qc.Key, run.Finished.Sub(run.Started).Round(time.Millisecond))
	return 0
}

// =============================================================================
// 📋 generators 命令
// =============================================================================

func runGenerators(args []string) int {
	fs := flag.NewFlagSet("generators", flag.ContinueOnError)
	spec := fs.String("spec", "", "Print the parameter spec of one generator as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := listGenerators(os.Stdout, generator.DefaultRegistry(), *spec); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func listGenerators(out io.Writer, registry *generator.Registry, handle string) error {
	if handle != "" {
		gen, err := registry.Lookup(handle)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(gen.Spec())
	}

	desc := registry.Describe()
	handles := make([]string, 0, len(desc))
	for h := range desc {
		handles = append(handles, h)
	}
	sort.Strings(handles)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HANDLE\tDESCRIPTION")
	for _, h := range handles {
		fmt.Fprintf(tw, "%s\t%s\n", h, desc[h])
	}
	return tw.Flush()
}

// =============================================================================
// 🔑 token 命令
// =============================================================================

func runToken(args []string) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	subject := fs.String("subject", "seriesflow-client", "Token subject")
	ttl := fs.Duration("ttl", time.Hour, "Token lifetime")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	token, err := issueToken(cfg.Server.JWTSecret, *subject, *ttl, time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(token)
	return 0
}
