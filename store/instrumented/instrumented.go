// 包 instrumented 为任意缓存实现透明叠加指标与分布式追踪.
package instrumented

import (
	"context"
	"reflect"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/BaSui01/cacheflow/cache"
	"github.com/BaSui01/cacheflow/internal/metrics"
)

// Store 包装底层缓存，为每次操作记录 Prometheus 指标和 OpenTelemetry span.
// collector 为 nil 时只追踪，tracer 为 nil 时只记指标，二者均可独立缺省.
type Store struct {
	inner     cache.Cache
	backend   string
	collector *metrics.Collector
	tracer    oteltrace.Tracer
	closed    atomic.Bool
}

var _ cache.Cache = (*Store)(nil)

// Wrap 包装一个已创建的缓存. backend 标识底层实现（memory/redis/sql）.
func Wrap(inner cache.Cache, backend string, collector *metrics.Collector, tracer oteltrace.Tracer) *Store {
	return &Store{
		inner:     inner,
		backend:   backend,
		collector: collector,
		tracer:    tracer,
	}
}

// Factory 包装缓存工厂，对产出的每个缓存套用 Wrap 并记录创建计数.
func Factory(next cache.Factory, backend string, collector *metrics.Collector, tracer oteltrace.Tracer) cache.Factory {
	return func(ctx context.Context, name string, cfg cache.Config) (cache.Cache, error) {
		inner, err := next(ctx, name, cfg)
		if err != nil {
			return nil, err
		}
		if collector != nil {
			collector.RecordCacheCreated(backend)
		}
		return Wrap(inner, backend, collector, tracer), nil
	}
}

// Unwrap 返回被包装的底层缓存.
func (s *Store) Unwrap() cache.Cache { return s.inner }

func (s *Store) Name() string            { return s.inner.Name() }
func (s *Store) KeyType() reflect.Type   { return s.inner.KeyType() }
func (s *Store) ValueType() reflect.Type { return s.inner.ValueType() }

// Get 委托底层读取，按命中/未命中/错误分别计数.
func (s *Store) Get(ctx context.Context, key any) (any, error) {
	ctx, span := s.startSpan(ctx, "cache.get")
	start := time.Now()
	value, err := s.inner.Get(ctx, key)
	endSpan(span, err)

	switch {
	case err == nil:
		if s.collector != nil {
			s.collector.RecordCacheHit(s.inner.Name(), s.backend)
		}
		s.record("get", "hit", start)
	case cache.IsNotFound(err):
		if s.collector != nil {
			s.collector.RecordCacheMiss(s.inner.Name(), s.backend)
		}
		s.record("get", "miss", start)
	default:
		s.record("get", "error", start)
	}
	return value, err
}

func (s *Store) Put(ctx context.Context, key, value any) error {
	ctx, span := s.startSpan(ctx, "cache.put")
	start := time.Now()
	err := s.inner.Put(ctx, key, value)
	endSpan(span, err)
	s.record("put", outcome(err), start)
	return err
}

func (s *Store) Remove(ctx context.Context, key any) error {
	ctx, span := s.startSpan(ctx, "cache.remove")
	start := time.Now()
	err := s.inner.Remove(ctx, key)
	endSpan(span, err)
	s.record("remove", outcome(err), start)
	return err
}

func (s *Store) Clear(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "cache.clear")
	start := time.Now()
	err := s.inner.Clear(ctx)
	endSpan(span, err)
	s.record("clear", outcome(err), start)
	return err
}

// Close 关闭底层缓存. 销毁计数只在首次关闭时记录，保持重复 Close 幂等.
func (s *Store) Close() error {
	err := s.inner.Close()
	if err == nil && s.collector != nil && s.closed.CompareAndSwap(false, true) {
		s.collector.RecordCacheClosed(s.backend)
	}
	return err
}

func (s *Store) startSpan(ctx context.Context, op string) (context.Context, oteltrace.Span) {
	if s.tracer == nil {
		return ctx, nil
	}
	ctx, span := s.tracer.Start(ctx, op)
	span.SetAttributes(
		attribute.String("cache.name", s.inner.Name()),
		attribute.String("cache.backend", s.backend),
	)
	return ctx, span
}

func endSpan(span oteltrace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.SetAttributes(attribute.String("error", err.Error()))
	}
	span.End()
}

func (s *Store) record(op, status string, start time.Time) {
	if s.collector == nil {
		return
	}
	s.collector.RecordCacheOperation(s.inner.Name(), s.backend, op, status, time.Since(start))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
