package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/cacheflow/api/handlers"
	"github.com/BaSui01/cacheflow/config"
	"github.com/BaSui01/cacheflow/internal/metrics"
)

// =============================================================================
// 🗺️ 路由装配
// =============================================================================

// Routes 汇集守护进程对外暴露的全部处理器。
// 可选字段为 nil 时对应的路由组不注册。
type Routes struct {
	// 缓存管理 API（/api/v1/caches...）
	Caches *handlers.CacheHandler

	// 健康检查与版本端点（/health /healthz /ready /version）
	Health *handlers.HealthHandler

	// 配置管理 API（/api/v1/config...），nil 时禁用
	ConfigAPI *config.ConfigAPIHandler

	// Prometheus 指标端点（/metrics），nil 时禁用
	Metrics http.Handler

	// 请求指标采集，nil 时不记录
	Collector *metrics.Collector

	Logger *zap.Logger

	// 管理 API 密钥，空则所有请求放行
	APIKey string

	Version   string
	BuildTime string
	GitCommit string
}

// NewMux 构建路由表。/api/v1 下的管理路由统一经过 API 密钥鉴权；
// 健康检查、版本与指标端点保持开放，供负载均衡器与采集器访问。
func NewMux(rt Routes) http.Handler {
	if rt.Logger == nil {
		rt.Logger = zap.NewNop()
	}

	mux := http.NewServeMux()

	if rt.Health != nil {
		mux.HandleFunc("GET /health", rt.Health.HandleHealth)
		mux.HandleFunc("GET /healthz", rt.Health.HandleHealth)
		mux.HandleFunc("GET /ready", rt.Health.HandleReady)
		mux.HandleFunc("GET /version", rt.Health.HandleVersion(rt.Version, rt.BuildTime, rt.GitCommit))
	}

	if rt.Metrics != nil {
		mux.Handle("GET /metrics", rt.Metrics)
	}

	// 管理路由共用一套鉴权；方法分发在各处理器内部完成，
	// 以便 405 响应保持统一的 JSON 信封。
	guard := config.NewConfigAPIMiddleware(rt.ConfigAPI, rt.APIKey)
	auth := guard.RequireAuth

	if rt.Caches != nil {
		mux.HandleFunc("/api/v1/caches", auth(rt.Caches.HandleCaches))
		mux.HandleFunc("/api/v1/caches/{name}", auth(rt.Caches.HandleCache))
		mux.HandleFunc("/api/v1/caches/{name}/clear", auth(rt.Caches.HandleClear))
		mux.HandleFunc("/api/v1/caches/{name}/entries/{key}", auth(rt.Caches.HandleEntry))
	}

	if rt.ConfigAPI != nil {
		mux.HandleFunc("/api/v1/config", auth(rt.ConfigAPI.HandleConfig))
		mux.HandleFunc("/api/v1/config/reload", auth(rt.ConfigAPI.HandleReload))
		mux.HandleFunc("/api/v1/config/fields", auth(rt.ConfigAPI.HandleFields))
		mux.HandleFunc("/api/v1/config/changes", auth(rt.ConfigAPI.HandleChanges))
	}

	if rt.Collector != nil {
		return instrument(mux, rt.Collector)
	}
	return mux
}

// instrument 以路由模式为标签记录每个请求的计数与时延。
// 使用匹配到的模式而非原始路径，避免按键名展开的标签基数爆炸。
func instrument(mux *http.ServeMux, collector *metrics.Collector) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := handlers.NewResponseWriter(w)
		mux.ServeHTTP(rw, r)

		_, pattern := mux.Handler(r)
		if pattern == "" {
			pattern = "unmatched"
		}
		collector.RecordHTTPRequest(r.Method, pattern, rw.StatusCode, time.Since(start))
	})
}
