// Package main 提供 ddsspy 命令行入口
//
// ddsspy 加入一个域，通过内置订阅者打印发现的参与者、主题、写端和读端，
// 并订阅分布式日志主题。loopback 传输只在进程内可见，
// -demo 会在同一进程内启动若干演示参与者作为观察对象。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	dds "github.com/dep2p/go-dds"
	"github.com/dep2p/go-dds/config"
	"github.com/dep2p/go-dds/internal/util/logger"
)

var log = logger.Logger("ddsspy")

// version 构建时通过 -ldflags 注入
var version = "dev"

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
var (
	domain      = flag.Uint("domain", 0, "域 ID")
	configFile  = flag.String("config", "", "配置文件路径（.json / .yaml）")
	preset      = flag.String("preset", "", "预设配置 (default/embedded/persistent)")
	dataDir     = flag.String("data-dir", "", "数据目录，设置后启用持久化存储")
	demo        = flag.Int("demo", 1, "进程内演示参与者数量（0 = 不启动）")
	interval    = flag.Duration("interval", time.Second, "轮询与演示发布间隔")
	metricsAddr = flag.String("metrics-addr", "", "Prometheus 指标监听地址，如 :9464")
	logFile     = flag.String("log", "", "日志文件路径（默认输出到控制台）")
	showVersion = flag.Bool("version", false, "显示版本信息")
	showHelp    = flag.Bool("help", false, "显示帮助信息")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *showVersion {
		fmt.Printf("ddsspy %s\n", version)
		return nil
	}
	if *showHelp {
		printHelp()
		return nil
	}

	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return fmt.Errorf("打开日志文件失败: %w", err)
		}
		defer func() { _ = f.Close() }()
		logger.SetOutput(f)
	}

	cfg, err := buildConfig()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	factory, err := dds.NewFactory(dds.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() { _ = factory.Finalize() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	spy, err := newSpy(factory, uint32(*domain))
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	if *metricsAddr != "" {
		g.Go(func() error { return serveMetrics(ctx, factory, *metricsAddr) })
	}
	for i := 0; i < *demo; i++ {
		i := i
		g.Go(func() error { return runDemo(ctx, factory, uint32(*domain), i, *interval) })
	}
	g.Go(func() error { return spy.run(ctx, *interval) })

	fmt.Printf("ddsspy %s 已加入域 %d，按 Ctrl+C 退出\n", version, *domain)
	log.Info("spy started", "domain", *domain, "demo", *demo)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Println("\n正在关闭...")
	return nil
}

// buildConfig 构建配置
//
// 优先级（从高到低）：命令行参数、环境变量、配置文件、预设。
func buildConfig() (*config.Config, error) {
	cfg := config.NewConfig()
	if *configFile != "" {
		loaded, err := config.LoadFile(*configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if *preset != "" {
		if err := config.ApplyPreset(cfg, *preset); err != nil {
			return nil, err
		}
	}
	applyEnvOverrides(cfg)
	if isFlagSet("data-dir") && *dataDir != "" {
		cfg.Storage.DataDir = *dataDir
		cfg.Storage.EnablePersistence = true
	}
	return cfg, cfg.Validate()
}

// isFlagSet 检查命令行参数是否被显式设置
func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// serveMetrics 暴露工厂的 Prometheus 注册表
func serveMetrics(ctx context.Context, f *dds.Factory, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(f.MetricsRegistry(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

func printHelp() {
	fmt.Println("ddsspy - DDS 域观察工具")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  ddsspy [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Println("  DDS_PRESET             预设名称")
	fmt.Println("  DDS_DATA_DIR           数据目录（启用持久化）")
	fmt.Println("  DDS_LEASE_DURATION     参与者租约，如 10s")
	fmt.Println("  DDS_ANNOUNCE_PERIOD    通告周期，如 3s")
	fmt.Println("  DDS_LOG_LEVEL          日志级别，如 discovery=debug,info")
	fmt.Println("  DDS_LOG_FORMAT         日志格式 (text/json)")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  ddsspy -domain 3 -demo 2")
	fmt.Println("  ddsspy -config dds.yaml -metrics-addr :9464")
	fmt.Println("  ddsspy -data-dir ./data -demo 0")
}
