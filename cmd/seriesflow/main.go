// =============================================================================
// SeriesFlow 主入口
// =============================================================================
// 时间序列生成与接收服务：WebSocket 协调/流式端点、Redis 列表发布、
// 健康检查与 Prometheus 指标
//
// 使用方法:
//
//	seriesflow serve                                  # 启动服务
//	seriesflow serve --config config.yaml             # 指定配置文件
//	seriesflow fetch --generator cexp --set num_samples=55 --set phase_increment=0.01
//	seriesflow publish --generator sinusoids --set num_cycles=4
//	seriesflow generators                             # 列出生成器
//	seriesflow runs --summary                         # 查看运行历史
//	seriesflow migrate up                             # 执行数据库迁移
//	seriesflow token --subject probe                  # 签发访问令牌
//	seriesflow version                                # 显示版本信息
//	seriesflow health                                 # 健康检查
// =============================================================================

package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/seriesflow/config"
	"github.com/BaSui01/seriesflow/internal/tlsutil"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var code int
	switch os.Args[1] {
	case "serve":
		code = runServe(os.Args[2:])
	case "fetch":
		code = runFetch(os.Args[2:])
	case "publish":
		code = runPublish(os.Args[2:])
	case "generators":
		code = runGenerators(os.Args[2:])
	case "runs":
		code = runRuns(os.Args[2:])
	case "migrate":
		code = runMigrate(os.Args[2:])
	case "token":
		code = runToken(os.Args[2:])
	case "version":
		printVersion()
	case "health":
		code = runHealthCheck(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		code = 1
	}
	os.Exit(code)
}

// loadConfig 加载配置文件与环境变量并校验
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader().WithValidator((*config.Config).Validate)
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	return loader.Load()
}

// =============================================================================
// 🏥 健康检查命令
// =============================================================================

func runHealthCheck(args []string) int {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "Server address")
	_ = fs.Parse(args)

	client := tlsutil.HTTPClient(*addr, 5*time.Second)
	resp, err := client.Get(*addr + "/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: status %d\n", resp.StatusCode)
		return 1
	}

	fmt.Println("OK")
	return 0
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("SeriesFlow %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`SeriesFlow - time-series generation and retrieval

Usage:
  seriesflow <command> [options]

Commands:
  serve       Start the websocket session server and metrics endpoint
  fetch       Run one client session and print a summary
  publish     Configure a generator locally and publish its run to redis
  generators  List available generators or show one parameter spec
  runs        List recorded runs (requires database.enabled)
  migrate     Manage the run history schema
  token       Issue an HS256 access token signed with server.jwt_secret
  version     Show version information
  health      Check server health
  help        Show this help message

Common options:
  --config <path>     Path to configuration file (YAML)
  --generator <name>  Generator handle (cexp, sinusoids, iq_matrix)
  --set key=value     Parameter override, repeatable

Options for 'fetch':
  --transport ws|redis|local
  --url <ws url>      Session endpoint, e.g. ws://localhost:8080/v1/stream
  --receptor <name>   accumulate or log
  --dump              Include received series in the summary

Examples:
  seriesflow serve --config /etc/seriesflow/config.yaml
  seriesflow fetch --transport local --generator cexp --set num_samples=55 --set phase_increment=0.01
  seriesflow publish --generator iq_matrix --set num_frames=3
  seriesflow fetch --transport redis
  seriesflow generators --spec cexp
  seriesflow runs --generator cexp --status failed
  seriesflow migrate status
  seriesflow health --addr http://localhost:8080`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       encoding == "console",
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}
	return logger
}
