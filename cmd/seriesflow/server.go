package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BaSui01/seriesflow/api/handlers"
	"github.com/BaSui01/seriesflow/config"
	"github.com/BaSui01/seriesflow/generator"
	"github.com/BaSui01/seriesflow/internal/database"
	"github.com/BaSui01/seriesflow/internal/history"
	"github.com/BaSui01/seriesflow/internal/metrics"
	"github.com/BaSui01/seriesflow/internal/server"
	"github.com/BaSui01/seriesflow/internal/telemetry"
	"github.com/BaSui01/seriesflow/transport/redisq"
	"github.com/BaSui01/seriesflow/transport/ws"
	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 SeriesFlow 的主服务器：API（WebSocket 会话、生成器目录、健康检查）
// 与 Prometheus 指标分别监听两个端口
type Server struct {
	cfg       *config.Config
	logger    *zap.Logger
	providers *telemetry.Providers
	collector *metrics.Collector

	registry *generator.Registry
	stream   *ws.Handler

	healthHandler    *handlers.HealthHandler
	generatorHandler *handlers.GeneratorHandler
	runHandler       *handlers.RunHandler

	// 就绪检查使用的 Redis 客户端，可为 nil
	rdb *redis.Client

	// 运行历史，未启用数据库时为 nil
	history *history.Store
	pool    *database.PoolManager
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger, providers *telemetry.Providers, collector *metrics.Collector) *Server {
	registry := generator.DefaultRegistry()
	opts := sessionOptions(cfg.Stream, logger, providers.Tracer("seriesflow/session"), collector, "server")

	var accept *websocket.AcceptOptions
	if len(cfg.Server.AllowedOrigins) > 0 {
		accept = &websocket.AcceptOptions{OriginPatterns: cfg.Server.AllowedOrigins}
	}

	s := &Server{
		cfg:              cfg,
		logger:           logger,
		providers:        providers,
		collector:        collector,
		registry:         registry,
		stream:           ws.NewHandler(registry, opts, accept),
		healthHandler:    handlers.NewHealthHandler(logger),
		generatorHandler: handlers.NewGeneratorHandler(registry, logger),
	}
	collector.TrackActiveSessions(s.stream.Active)
	return s
}

// WithReadinessRedis 将 Redis PING 纳入 /ready 检查
func (s *Server) WithReadinessRedis(rdb *redis.Client) *Server {
	s.rdb = rdb
	s.healthHandler.RegisterCheck(handlers.NewRedisHealthCheck("redis", rdb))
	return s
}

// WithHistory 记录每次服务端运行，开放 /v1/runs 并将数据库纳入 /ready 检查
func (s *Server) WithHistory(store *history.Store, pool *database.PoolManager) *Server {
	s.history = store
	s.pool = pool
	s.runHandler = handlers.NewRunHandler(store, s.logger)
	s.stream.OnRun(s.recordRun)
	s.healthHandler.RegisterCheck(handlers.NewCheck("database", store.Ping))
	return s
}

func (s *Server) recordRun(ctx context.Context, r ws.RunReport) {
	// 对端断开后仍需落库
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	run := history.ServerRun(history.RoleServer, history.StreamRun{
		SessionID: r.SessionID,
		Generator: r.Generator,
		Transport: "ws",
		Subject:   r.Subject,
		DataType:  r.DataType,
		Frames:    r.Frames,
		Values:    r.Values,
		Started:   r.Started,
		Finished:  r.Finished,
		Err:       r.Err,
	})
	if err := s.history.Record(ctx, run); err != nil {
		s.logger.Warn("failed to record run", zap.String("session_id", r.SessionID), zap.Error(err))
	}
}

// Handler 构建 API 路由与中间件链。ctx 结束时限流器的清理协程随之退出。
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()

	// 健康检查端点
	mux.HandleFunc("GET /health", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /healthz", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /ready", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// 生成器目录
	mux.HandleFunc("GET /v1/generators", s.generatorHandler.HandleList)
	mux.HandleFunc("GET /v1/generators/{handle}", s.generatorHandler.HandleSpec)

	// 运行历史
	if s.runHandler != nil {
		mux.HandleFunc("GET /v1/runs", s.runHandler.HandleList)
		mux.HandleFunc("GET /v1/runs/summary", s.runHandler.HandleSummary)
		mux.HandleFunc("GET /v1/runs/{run_id}", s.runHandler.HandleGet)
	}

	// WebSocket 会话
	mux.Handle("GET /v1/stream", s.stream)

	skipAuthPaths := []string{"/health", "/healthz", "/ready", "/version"}
	return Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.collector),
		OTelTracing(),
		CORS(s.cfg.Server.AllowedOrigins),
		RateLimiter(ctx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
		JWTAuth(s.cfg.Server.JWTSecret, skipAuthPaths, s.logger),
	)
}

// Run 启动 API 与指标服务器，阻塞直到 ctx 结束或任一服务器失败
func (s *Server) Run(ctx context.Context) error {
	apiConfig := server.FromServerConfig(s.cfg.Server, s.cfg.Server.HTTPPort)
	// 流式会话可能长于任何固定写超时
	apiConfig.WriteTimeout = 0
	metricsConfig := server.FromServerConfig(s.cfg.Server, s.cfg.Server.MetricsPort)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	g, ctx := errgroup.WithContext(ctx)
	api := server.NewManager("api", s.Handler(ctx), apiConfig, s.logger)
	api.OnShutdown(s.stream.Shutdown)
	metricsServer := server.NewManager("metrics", metricsMux, metricsConfig, s.logger)

	g.Go(func() error { return api.Run(ctx) })
	g.Go(func() error { return metricsServer.Run(ctx) })

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Bool("auth_enabled", s.cfg.Server.JWTSecret != ""),
	)

	err := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if perr := s.providers.Shutdown(shutdownCtx); perr != nil {
		s.logger.Warn("telemetry shutdown error", zap.Error(perr))
	}
	if s.rdb != nil {
		_ = s.rdb.Close()
	}
	if s.pool != nil {
		_ = s.pool.Close()
	}
	return err
}

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	readyRedis := fs.Bool("ready-redis", false, "Include a redis PING in /ready")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting SeriesFlow",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	providers, err := telemetry.Init(cfg.Telemetry, logger, telemetry.WithRole("serve"))
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := NewServer(cfg, logger, providers, metrics.NewCollector("seriesflow", logger))
	if *readyRedis {
		rdb, err := redisq.Connect(ctx, queueConfig(cfg.Redis), logger)
		if err != nil {
			logger.Error("redis not available", zap.Error(err))
			return 1
		}
		srv.WithReadinessRedis(rdb)
	}
	if cfg.Database.Enabled {
		store, pool, err := openHistory(ctx, cfg.Database, logger)
		if err != nil {
			logger.Error("run history not available", zap.Error(err))
			return 1
		}
		srv.WithHistory(store, pool)
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return 1
	}

	logger.Info("SeriesFlow stopped")
	return 0
}
