package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BaSui01/seriesflow/buffer"
	"github.com/BaSui01/seriesflow/config"
	"github.com/BaSui01/seriesflow/demux"
	"github.com/BaSui01/seriesflow/generator"
	"github.com/BaSui01/seriesflow/internal/history"
	"github.com/BaSui01/seriesflow/internal/telemetry"
	"github.com/BaSui01/seriesflow/receptor"
	"github.com/BaSui01/seriesflow/session"
	"github.com/BaSui01/seriesflow/transport"
	"github.com/BaSui01/seriesflow/transport/redisq"
	"github.com/BaSui01/seriesflow/transport/ws"
	"github.com/BaSui01/seriesflow/types"
	"go.uber.org/zap"
)

// fetchSummary is the JSON printed by the fetch command.
type fetchSummary struct {
	SessionID string                `json:"session_id"`
	Generator string                `json:"generator,omitempty"`
	Transport string                `json:"transport"`
	Payload   demux.Payload         `json:"payload"`
	Cycles    int                   `json:"cycles"`
	Demux     demux.Stats           `json:"demux"`
	Buffer    buffer.Stats          `json:"buffer"`
	Values    int                   `json:"values"`
	Real      [][]float64           `json:"real,omitempty"`
	Complex   [][]transport.Complex `json:"complex,omitempty"`
}

func summarize(res session.Result, transportName string, dump bool) fetchSummary {
	s := fetchSummary{
		SessionID: res.SessionID,
		Generator: res.Generator,
		Transport: transportName,
		Payload:   res.Payload,
		Cycles:    res.Cycles,
		Demux:     res.Demux,
		Buffer:    res.Buffer,
		Values:    res.Buffer.Delivered,
	}
	if !dump {
		return s
	}
	switch acc := res.Receptor.(type) {
	case *receptor.Accumulator[float64]:
		s.Real = acc.Whole()
	case *receptor.Accumulator[complex128]:
		for _, series := range acc.Whole() {
			out := make([]transport.Complex, len(series))
			for i, c := range series {
				out[i] = transport.Complex{Real: real(c), Imag: imag(c)}
			}
			s.Complex = append(s.Complex, out)
		}
	}
	return s
}

// fetch runs one client session over the configured transport.
func fetch(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts session.Options) (session.Result, error) {
	cc := cfg.Client
	switch cc.Transport {
	case "ws":
		header := http.Header{}
		if cc.Token != "" {
			header.Set("Authorization", "Bearer "+cc.Token)
		}
		conn, err := ws.Dial(ctx, cc.ServerURL, ws.DialOptions{Header: header, Logger: logger})
		if err != nil {
			return session.Result{}, err
		}
		defer conn.Close()
		return session.NewClient(conn, nil, opts).Run(ctx, session.RunRequest{
			Generator: cc.Generator,
			Receptor:  cc.Receptor,
			Overrides: cc.Overrides,
		})

	case "local":
		srv := session.NewServer(generator.DefaultRegistry(), opts)
		return session.NewClient(session.NewLoopback(srv), nil, opts).Run(ctx, session.RunRequest{
			Generator: cc.Generator,
			Receptor:  cc.Receptor,
			Overrides: cc.Overrides,
		})

	case "redis":
		qc := queueConfig(cfg.Redis)
		rdb, err := redisq.Connect(ctx, qc, logger)
		if err != nil {
			return session.Result{}, err
		}
		defer rdb.Close()
		payload, err := redisq.ReadPayload(ctx, rdb, qc.Key)
		if err != nil {
			return session.Result{}, err
		}
		sub := redisq.NewSubscriber(rdb, qc.Key, qc.BlockTimeout)
		return session.NewClient(sub, nil, opts).Consume(ctx, payload, cc.Receptor)

	default:
		return session.Result{}, types.Errorf(types.ErrInvalidArgument, "unknown transport %q", cc.Transport)
	}
}

func runFetch(args []string) int {
	return fetchMain(args, os.Stdout)
}

func fetchMain(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	transportName := fs.String("transport", "", "Transport: ws, redis or local")
	url := fs.String("url", "", "Session endpoint URL")
	gen := fs.String("generator", "", "Generator handle")
	rec := fs.String("receptor", "", "Receptor handle")
	token := fs.String("token", "", "Bearer token")
	dump := fs.Bool("dump", false, "Include received series in the summary")
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
	if given["transport"] {
		cfg.Client.Transport = *transportName
	}
	if given["url"] {
		cfg.Client.ServerURL = *url
	}
	if given["generator"] {
		cfg.Client.Generator = *gen
	}
	if given["receptor"] {
		cfg.Client.Receptor = *rec
	}
	if given["token"] {
		cfg.Client.Token = *token
	}
	cfg.Client.Overrides = overrides.merge(cfg.Client.Overrides)

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	providers, err := telemetry.Init(cfg.Telemetry, logger, telemetry.WithRole("fetch"))
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() { _ = providers.Shutdown(context.Background()) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if cfg.Client.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Client.Timeout)
		defer cancel()
	}

	opts := sessionOptions(cfg.Stream, logger, providers.Tracer("seriesflow/client"), nil, "client")
	started := time.Now()
	res, err := fetch(ctx, cfg, logger, opts)
	run := history.ClientRun(res, cfg.Client.Transport, started, time.Now(), err)
	if run.Generator == "" {
		run.Generator = cfg.Client.Generator
	}
	recordRun(ctx, cfg.Database, logger, run)
	if err != nil {
		logger.Error("fetch failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "fetch failed: %v\n", err)
		return 1
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summarize(res, cfg.Client.Transport, *dump)); err != nil {
		fmt.Fprintf(os.Stderr, "write summary: %v\n", err)
		return 1
	}
	return 0
}
