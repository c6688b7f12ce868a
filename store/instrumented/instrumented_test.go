package instrumented

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"github.com/BaSui01/cacheflow/cache"
	"github.com/BaSui01/cacheflow/internal/metrics"
	"github.com/BaSui01/cacheflow/store/memory"
)

func setupStore(t *testing.T) (*Store, *prometheus.Registry, *tracetest.SpanRecorder) {
	t.Helper()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollectorWith(reg, "cacheflow", zap.NewNop())

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	inner := memory.New("orders", cache.DefaultConfig(), memory.Config{}, zap.NewNop())
	store := Wrap(inner, "memory", collector, provider.Tracer("test"))
	t.Cleanup(func() { _ = store.Close() })
	return store, reg, recorder
}

func TestWrapDelegatesIdentity(t *testing.T) {
	t.Parallel()

	store, _, _ := setupStore(t)

	assert.Equal(t, "orders", store.Name())
	assert.Equal(t, cache.WildcardSignature().KeyType(), store.KeyType())
	assert.Equal(t, cache.WildcardSignature().ValueType(), store.ValueType())
	assert.Equal(t, "orders", store.Unwrap().Name())
}

func TestGetRecordsHitAndMiss(t *testing.T) {
	t.Parallel()

	store, reg, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k1", "v1"))

	value, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "v1", value)

	_, err = store.Get(ctx, "absent")
	require.True(t, cache.IsNotFound(err))
	_, err = store.Get(ctx, "absent")
	require.True(t, cache.IsNotFound(err))

	expected := `
# HELP cacheflow_cache_hits_total Total number of cache hits
# TYPE cacheflow_cache_hits_total counter
cacheflow_cache_hits_total{cache="orders",store="memory"} 1
# HELP cacheflow_cache_misses_total Total number of cache misses
# TYPE cacheflow_cache_misses_total counter
cacheflow_cache_misses_total{cache="orders",store="memory"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"cacheflow_cache_hits_total", "cacheflow_cache_misses_total"))
}

func TestOperationsRecordOutcome(t *testing.T) {
	t.Parallel()

	store, reg, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", 1))
	require.NoError(t, store.Remove(ctx, "k"))
	require.NoError(t, store.Clear(ctx))

	// 类型不匹配的键触发 error 状态
	err := store.Put(ctx, nil, 1)
	require.Error(t, err)

	expected := `
# HELP cacheflow_cache_operations_total Total number of cache operations by outcome
# TYPE cacheflow_cache_operations_total counter
cacheflow_cache_operations_total{cache="orders",operation="clear",status="success",store="memory"} 1
cacheflow_cache_operations_total{cache="orders",operation="put",status="error",store="memory"} 1
cacheflow_cache_operations_total{cache="orders",operation="put",status="success",store="memory"} 1
cacheflow_cache_operations_total{cache="orders",operation="remove",status="success",store="memory"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"cacheflow_cache_operations_total"))

	// 直方图也被填充
	count, err := testutil.GatherAndCount(reg, "cacheflow_cache_operation_duration_seconds")
	require.NoError(t, err)
	assert.Greater(t, count, 0)
}

func TestEmitsSpansWithAttributes(t *testing.T) {
	t.Parallel()

	store, _, recorder := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", "v"))
	_, err := store.Get(ctx, "k")
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "cache.put", spans[0].Name())
	assert.Equal(t, "cache.get", spans[1].Name())

	attrs := spans[0].Attributes()
	found := map[string]string{}
	for _, kv := range attrs {
		found[string(kv.Key)] = kv.Value.AsString()
	}
	assert.Equal(t, "orders", found["cache.name"])
	assert.Equal(t, "memory", found["cache.backend"])
}

func TestSpanCarriesErrorAttribute(t *testing.T) {
	t.Parallel()

	store, _, recorder := setupStore(t)

	_, err := store.Get(context.Background(), "missing")
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	var errAttr string
	for _, kv := range spans[0].Attributes() {
		if string(kv.Key) == "error" {
			errAttr = kv.Value.AsString()
		}
	}
	assert.NotEmpty(t, errAttr)
}

func TestFactoryRecordsLifecycle(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollectorWith(reg, "cacheflow", zap.NewNop())

	factory := Factory(memory.Factory(memory.Config{}, zap.NewNop()), "memory", collector, nil)

	c, err := factory(context.Background(), "sessions", cache.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, c.Close())
	// 重复关闭不再计数
	require.NoError(t, c.Close())

	expected := `
# HELP cacheflow_caches_created_total Total number of caches constructed
# TYPE cacheflow_caches_created_total counter
cacheflow_caches_created_total{store="memory"} 1
# HELP cacheflow_caches_closed_total Total number of caches closed
# TYPE cacheflow_caches_closed_total counter
cacheflow_caches_closed_total{store="memory"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"cacheflow_caches_created_total", "cacheflow_caches_closed_total"))
}

func TestFactoryPropagatesError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("backend down")
	failing := cache.Factory(func(ctx context.Context, name string, cfg cache.Config) (cache.Cache, error) {
		return nil, wantErr
	})

	factory := Factory(failing, "memory", nil, nil)
	_, err := factory(context.Background(), "orders", cache.DefaultConfig())
	assert.ErrorIs(t, err, wantErr)
}

func TestNilCollectorAndTracerAreSafe(t *testing.T) {
	t.Parallel()

	inner := memory.New("orders", cache.DefaultConfig(), memory.Config{}, zap.NewNop())
	store := Wrap(inner, "memory", nil, nil)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "k", "v"))
	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)
	require.NoError(t, store.Clear(ctx))
}

func TestManagerIntegration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollectorWith(reg, "cacheflow", zap.NewNop())

	manager, err := cache.NewManager(cache.Options{
		Factory: Factory(memory.Factory(memory.Config{}, zap.NewNop()), "memory", collector, nil),
	}, zap.NewNop())
	require.NoError(t, err)
	defer manager.Close()

	c, err := manager.CreateCache(context.Background(), "orders", cache.DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, c.Put(context.Background(), "k", "v"))
	_, err = c.Get(context.Background(), "k")
	require.NoError(t, err)

	require.NoError(t, manager.DestroyCache(context.Background(), "orders"))

	count, err := testutil.GatherAndCount(reg, "cacheflow_caches_closed_total")
	require.NoError(t, err)
	assert.Greater(t, count, 0)

	// 耗时直方图不为空，说明操作经过了包装层
	count, err = testutil.GatherAndCount(reg, "cacheflow_cache_operation_duration_seconds")
	require.NoError(t, err)
	assert.Greater(t, count, 0)
}
