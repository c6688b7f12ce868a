package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/BaSui01/cacheflow/api/handlers"
	"github.com/BaSui01/cacheflow/config"
	"github.com/BaSui01/cacheflow/internal/metrics"
	"github.com/BaSui01/cacheflow/internal/server"
	"github.com/BaSui01/cacheflow/internal/telemetry"
	"github.com/BaSui01/cacheflow/provider"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 CacheFlow 的主服务器
type Server struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	otel       *telemetry.Providers

	// 缓存提供者与管理接口
	provider *provider.CachingProvider
	admin    *provider.Admin

	// HTTP 服务器管理器
	httpManager *server.Manager

	// Handlers
	healthHandler *handlers.HealthHandler
	cacheHandler  *handlers.CacheHandler

	// 指标
	registry  *prometheus.Registry
	collector *metrics.Collector

	// 热更新管理器
	hotReloadManager *config.HotReloadManager
	configAPIHandler *config.ConfigAPIHandler
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, configPath string, logger *zap.Logger, otel *telemetry.Providers) *Server {
	return &Server{
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
		otel:       otel,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start() error {
	// 1. 初始化指标（进程专属注册表，附带 Go 运行时指标）
	s.registry = prometheus.NewRegistry()
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.collector = metrics.NewCollectorWith(s.registry, s.cfg.Metrics.Namespace, s.logger)

	// 2. 初始化缓存提供者
	if err := s.initProvider(); err != nil {
		return fmt.Errorf("failed to init provider: %w", err)
	}

	// 3. 初始化 Handlers
	if err := s.initHandlers(); err != nil {
		return fmt.Errorf("failed to init handlers: %w", err)
	}

	// 4. 初始化热更新管理器
	if err := s.initHotReloadManager(); err != nil {
		return fmt.Errorf("failed to init hot reload manager: %w", err)
	}

	// 5. 启动 HTTP 服务器
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Bool("hot_reload_enabled", s.configPath != ""),
	)

	return nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initProvider 初始化缓存提供者
func (s *Server) initProvider() error {
	opts := []provider.Option{provider.WithCollector(s.collector)}
	if s.otel != nil {
		opts = append(opts, provider.WithTracer(s.otel.Tracer("cacheflow/provider")))
	}

	p, err := provider.New(s.cfg, s.logger, opts...)
	if err != nil {
		return err
	}
	s.provider = p

	admin, err := p.Admin()
	if err != nil {
		return err
	}
	s.admin = admin

	// OTLP 侧上报活跃缓存数，与 Prometheus 指标对齐
	if meter := s.otel.Meter("cacheflow/provider"); meter != nil {
		_, err := meter.Int64ObservableGauge("cacheflow.caches.active",
			otelmetric.WithDescription("Number of active caches in the default manager"),
			otelmetric.WithInt64Callback(func(_ context.Context, o otelmetric.Int64Observer) error {
				names, err := s.admin.CacheNames()
				if err != nil {
					return err
				}
				o.Observe(int64(len(names)))
				return nil
			}),
		)
		if err != nil {
			s.logger.Warn("Failed to register caches gauge", zap.Error(err))
		}
	}

	s.logger.Info("Caching provider initialized",
		zap.String("uri", p.DefaultURI()),
		zap.String("scope", p.DefaultScope()),
	)
	return nil
}

// initHandlers 初始化所有 handlers
func (s *Server) initHandlers() error {
	s.cacheHandler = handlers.NewCacheHandler(s.admin, s.logger)

	// 健康检查 handler：为每个已启用的后端注册 ping 检查
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	for name, ping := range s.provider.Pings() {
		s.healthHandler.RegisterCheck(handlers.NewPingCheck(name, ping))
	}

	s.logger.Info("Handlers initialized")
	return nil
}

// initHotReloadManager 初始化热更新管理器
func (s *Server) initHotReloadManager() error {
	opts := []config.HotReloadOption{
		config.WithHotReloadLogger(s.logger),
	}

	if s.configPath != "" {
		opts = append(opts, config.WithConfigPath(s.configPath))
	}

	s.hotReloadManager = config.NewHotReloadManager(s.cfg, opts...)

	// 注册配置变更回调
	s.hotReloadManager.OnChange(func(change config.ConfigChange) {
		s.logger.Info("Configuration changed",
			zap.String("path", change.Path),
			zap.String("source", change.Source),
			zap.Bool("requires_restart", change.RequiresRestart),
		)
	})

	// 配置重载后调整提供者的可热更参数（模板、默认值、清扫间隔）
	s.hotReloadManager.OnReload(func(oldConfig, newConfig *config.Config) {
		s.logger.Info("Configuration reloaded")
		s.cfg = newConfig
		s.provider.Retune(newConfig)
	})

	// 启动热更新管理器
	ctx := context.Background()
	if err := s.hotReloadManager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start hot reload manager: %w", err)
	}

	// 创建配置 API 处理器
	s.configAPIHandler = config.NewConfigAPIHandler(s.hotReloadManager)

	return nil
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// startHTTPServer 启动 HTTP 服务器
func (s *Server) startHTTPServer() error {
	mux := server.NewMux(server.Routes{
		Caches:    s.cacheHandler,
		Health:    s.healthHandler,
		ConfigAPI: s.configAPIHandler,
		Metrics:   promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}),
		Collector: s.collector,
		Logger:    s.logger,
		APIKey:    s.cfg.Server.APIKey,
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	})

	// 外层中间件链；管理路由的鉴权在 NewMux 内完成
	handler := Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
	)

	s.httpManager = server.NewManager(handler, server.FromServerConfig(s.cfg.Server), s.logger)

	// 启动服务器（非阻塞）
	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号并优雅关闭
func (s *Server) WaitForShutdown() {
	// 使用 httpManager 的 WaitForShutdown（它会监听信号）
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}

	// 执行清理
	s.Shutdown()
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx := context.Background()

	// 1. 停止热更新管理器
	if s.hotReloadManager != nil {
		if err := s.hotReloadManager.Stop(); err != nil {
			s.logger.Error("Hot reload manager shutdown error", zap.Error(err))
		}
	}

	// 2. 关闭 HTTP 服务器（停止接收新请求）
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	// 3. 关闭缓存提供者（关闭所有管理器与后端连接）
	if s.provider != nil {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("Caching provider shutdown error", zap.Error(err))
		}
	}

	// 4. 刷新并关闭遥测
	if s.otel != nil {
		flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.otel.Shutdown(flushCtx); err != nil {
			s.logger.Error("Telemetry shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("Graceful shutdown completed")
}
