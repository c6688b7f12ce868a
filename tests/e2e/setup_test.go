// E2E 测试环境与通用辅助函数。
//
// 提供端到端测试的统一初始化与资源清理逻辑。
//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/cacheflow/api/handlers"
	"github.com/BaSui01/cacheflow/config"
	"github.com/BaSui01/cacheflow/internal/metrics"
	"github.com/BaSui01/cacheflow/internal/server"
	"github.com/BaSui01/cacheflow/provider"
	"github.com/BaSui01/cacheflow/testutil"
	"github.com/BaSui01/cacheflow/testutil/fixtures"
)

// --- 测试环境 ---

// TestEnv E2E 测试环境：完整组装的提供者 + HTTP 服务
type TestEnv struct {
	Config   *config.Config
	Logger   *zap.Logger
	Provider *provider.CachingProvider
	Server   *server.Manager
	Registry *prometheus.Registry
	BaseURL  string
	APIKey   string

	ctx    context.Context
	cancel context.CancelFunc
}

// --- 环境设置 ---

// NewTestEnv 创建新的测试环境并启动完整 HTTP 服务
func NewTestEnv(t *testing.T, mutators ...func(*config.Config)) *TestEnv {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)

	cfg := fixtures.TestConfig()
	for _, mutate := range mutators {
		mutate(cfg)
	}

	logger := zap.NewNop()

	p, err := provider.New(cfg, logger)
	if err != nil {
		cancel()
		t.Fatalf("new provider: %v", err)
	}

	admin, err := p.Admin()
	if err != nil {
		cancel()
		t.Fatalf("provider admin: %v", err)
	}

	// 指标与配置 API 与生产装配保持一致
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollectorWith(registry, "cacheflow_e2e", logger)

	hotReload := config.NewHotReloadManager(cfg)
	configAPI := config.NewConfigAPIHandler(hotReload)

	healthHandler := handlers.NewHealthHandler(logger)
	for name, ping := range p.Pings() {
		healthHandler.RegisterCheck(handlers.NewPingCheck(name, ping))
	}

	mux := server.NewMux(server.Routes{
		Caches:    handlers.NewCacheHandler(admin, logger),
		Health:    healthHandler,
		ConfigAPI: configAPI,
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Collector: collector,
		Logger:    logger,
		APIKey:    cfg.Server.APIKey,
		Version:   "e2e",
	})

	srvCfg := server.FromServerConfig(cfg.Server)
	srvCfg.Addr = "127.0.0.1:0"
	srv := server.NewManager(mux, srvCfg, logger)
	if err := srv.Start(); err != nil {
		cancel()
		t.Fatalf("start server: %v", err)
	}

	env := &TestEnv{
		Config:   cfg,
		Logger:   logger,
		Provider: p,
		Server:   srv,
		Registry: registry,
		BaseURL:  "http://" + srv.BoundAddr(),
		APIKey:   cfg.Server.APIKey,
		ctx:      ctx,
		cancel:   cancel,
	}

	t.Cleanup(func() {
		env.Cleanup()
	})

	return env
}

// Context 返回测试上下文
func (e *TestEnv) Context() context.Context {
	return e.ctx
}

// Cleanup 清理测试环境
func (e *TestEnv) Cleanup() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = e.Server.Shutdown(shutdownCtx)
	_ = e.Provider.Close()
	e.cancel()
}

// --- HTTP 辅助 ---

// Request 发送请求并返回状态码与响应体
func (e *TestEnv) Request(t *testing.T, method, path string, body string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(e.ctx, method, e.BaseURL+path, reader)
	if err != nil {
		t.Fatalf("build request %s %s: %v", method, path, err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if e.APIKey != "" {
		req.Header.Set("X-API-Key", e.APIKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request %s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response %s %s: %v", method, path, err)
	}
	return resp.StatusCode, data
}

// RequestJSON 发送请求并解码统一响应信封
func (e *TestEnv) RequestJSON(t *testing.T, method, path string, body string) (int, handlers.Response) {
	t.Helper()

	status, data := e.Request(t, method, path, body)
	var envelope handlers.Response
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("decode envelope %s %s: %v\nbody: %s", method, path, err, data)
	}
	return status, envelope
}

// --- 环境检查 ---

// SkipIfNoRedis 如果没有 Redis 则跳过测试
func SkipIfNoRedis(t *testing.T) {
	t.Helper()
	if os.Getenv("CACHEFLOW_REDIS_ADDR") == "" {
		t.Skip("Skipping test: Redis not configured (set CACHEFLOW_REDIS_ADDR)")
	}
}

// SkipIfNoPostgres 如果没有 PostgreSQL 则跳过测试
func SkipIfNoPostgres(t *testing.T) {
	t.Helper()
	if os.Getenv("CACHEFLOW_STORES_SQL_HOST") == "" {
		t.Skip("Skipping test: PostgreSQL not configured (set CACHEFLOW_STORES_SQL_HOST)")
	}
}

// SkipIfShort 如果是短测试模式则跳过
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping long-running test in short mode")
	}
}

// --- 测试辅助 ---

// WaitForCondition 等待条件满足
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()
	if !testutil.WaitFor(condition, timeout) {
		t.Fatalf("Condition not met within %v: %s", timeout, msg)
	}
}

// CreateTempFile 创建带内容的临时文件
func CreateTempFile(t *testing.T, dir, pattern, content string) string {
	t.Helper()
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}

	return f.Name()
}
