package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/BaSui01/seriesflow/config"
	"github.com/BaSui01/seriesflow/demux"
	"github.com/BaSui01/seriesflow/internal/metrics"
	"github.com/BaSui01/seriesflow/session"
	"github.com/BaSui01/seriesflow/transport/redisq"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// overrideFlags collects repeated --set key=value pairs.
type overrideFlags map[string]any

func (o overrideFlags) String() string {
	parts := make([]string, 0, len(o))
	for k, v := range o {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, ",")
}

// Set parses one pair. Integers and floats are typed, everything else is
// kept as a string so bound checks can reject it.
func (o overrideFlags) Set(s string) error {
	key, raw, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	raw = strings.TrimSpace(raw)
	if i, err := strconv.Atoi(raw); err == nil {
		o[key] = i
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		o[key] = f
		return nil
	}
	o[key] = raw
	return nil
}

// merge returns base overlaid with o.
func (o overrideFlags) merge(base map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(o))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range o {
		out[k] = v
	}
	return out
}

// visited reports the flags explicitly given on the command line.
func visited(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// sessionOptions maps stream settings onto session options. collector may be
// nil, in which case no metrics are recorded.
func sessionOptions(cfg config.StreamConfig, logger *zap.Logger, tracer trace.Tracer, collector *metrics.Collector, role string) session.Options {
	policy, err := demux.ParseShrinkPolicy(cfg.ShrinkPolicy)
	if err != nil {
		policy = demux.ShrinkLeading
	}
	opts := session.Options{
		InitialCapacity:    cfg.InitialCapacity,
		GrowthFactor:       cfg.GrowthFactor,
		RepeatedFieldCount: cfg.RepeatedFieldCount,
		ShrinkPolicy:       policy,
		PaceHz:             cfg.PaceHz,
		Logger:             logger,
		Tracer:             tracer,
	}
	if collector != nil {
		opts.Metrics = collector
		opts.BufferObserver = collector.BufferObserver(role)
	}
	return opts
}

func queueConfig(cfg config.RedisConfig) redisq.Config {
	return redisq.Config{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MaxRetries:   cfg.MaxRetries,
		Key:          cfg.Key,
		BlockTimeout: cfg.BlockTimeout,
		TTL:          cfg.TTL,
		TLS:          cfg.TLS,
	}
}
