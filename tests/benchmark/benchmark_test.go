// =============================================================================
// 🚀 CacheFlow 性能基准测试
// =============================================================================
// 覆盖关键路径的性能测试，包括：
// - Memory 存储读写与淘汰
// - 管理器注册表查找
// - 类型签名计算与键编码
// - 提供者管理面解析
//
// 运行方式:
//   go test -bench=. -benchmem ./tests/benchmark/...
//   go test -bench=BenchmarkMemoryStore -benchmem ./tests/benchmark/...
// =============================================================================

package benchmark

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/BaSui01/cacheflow/cache"
	"github.com/BaSui01/cacheflow/internal/keycodec"
	"github.com/BaSui01/cacheflow/provider"
	"github.com/BaSui01/cacheflow/store/memory"
	"github.com/BaSui01/cacheflow/testutil/fixtures"
)

// =============================================================================
// 🗄️ Memory Store Benchmarks
// =============================================================================

// BenchmarkMemoryStore_Put 测试内存存储写入性能
func BenchmarkMemoryStore_Put(b *testing.B) {
	ctx := context.Background()
	s := memory.New("bench", cache.DefaultConfig(), memory.Config{}, zap.NewNop())
	defer s.Close()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = s.Put(ctx, fmt.Sprintf("key-%d", i%10000), i)
	}
}

// BenchmarkMemoryStore_Get 测试内存存储命中读取性能
func BenchmarkMemoryStore_Get(b *testing.B) {
	ctx := context.Background()
	s := memory.New("bench", cache.DefaultConfig(), memory.Config{}, zap.NewNop())
	defer s.Close()

	for i := 0; i < 10000; i++ {
		_ = s.Put(ctx, fmt.Sprintf("key-%d", i), i)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _ = s.Get(ctx, fmt.Sprintf("key-%d", i%10000))
	}
}

// BenchmarkMemoryStore_Miss 测试未命中路径性能
func BenchmarkMemoryStore_Miss(b *testing.B) {
	ctx := context.Background()
	s := memory.New("bench", cache.DefaultConfig(), memory.Config{}, zap.NewNop())
	defer s.Close()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _ = s.Get(ctx, "absent")
	}
}

// BenchmarkMemoryStore_EvictionChurn 测试容量上限下的持续淘汰
func BenchmarkMemoryStore_EvictionChurn(b *testing.B) {
	ctx := context.Background()
	s := memory.New("bench", cache.DefaultConfig().WithCapacity(1024), memory.Config{}, zap.NewNop())
	defer s.Close()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = s.Put(ctx, fmt.Sprintf("key-%d", i), i)
	}
}

// BenchmarkMemoryStore_Concurrent 测试并发读写性能
func BenchmarkMemoryStore_Concurrent(b *testing.B) {
	ctx := context.Background()
	s := memory.New("bench", cache.DefaultConfig(), memory.Config{}, zap.NewNop())
	defer s.Close()

	for i := 0; i < 1024; i++ {
		_ = s.Put(ctx, fmt.Sprintf("key-%d", i), i)
	}

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			key := fmt.Sprintf("key-%d", i%1024)
			if i%8 == 0 {
				_ = s.Put(ctx, key, i)
			} else {
				_, _ = s.Get(ctx, key)
			}
			i++
		}
	})
}

// =============================================================================
// 🗂️ Manager Benchmarks
// =============================================================================

func newBenchManager(b *testing.B) *cache.Manager {
	b.Helper()

	mgr, err := cache.NewManager(cache.Options{
		Factory: func(ctx context.Context, name string, cfg cache.Config) (cache.Cache, error) {
			return memory.New(name, cfg, memory.Config{}, zap.NewNop()), nil
		},
	}, zap.NewNop())
	if err != nil {
		b.Fatalf("new manager: %v", err)
	}
	b.Cleanup(func() { _ = mgr.Close() })
	return mgr
}

// BenchmarkManager_LookupCache 测试注册表按签名查找性能
func BenchmarkManager_LookupCache(b *testing.B) {
	ctx := context.Background()
	mgr := newBenchManager(b)

	cfg := cache.ConfigFor[string, string]()
	for i := 0; i < 100; i++ {
		if _, err := mgr.CreateCache(ctx, fmt.Sprintf("cache-%d", i), cfg); err != nil {
			b.Fatalf("create: %v", err)
		}
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		name := fmt.Sprintf("cache-%d", i%100)
		if _, ok, err := mgr.LookupCache(name, cfg.KeyType, cfg.ValueType); err != nil || !ok {
			b.Fatalf("lookup %s: ok=%v err=%v", name, ok, err)
		}
	}
}

// BenchmarkManager_CreateDestroy 测试创建加销毁整个生命周期
func BenchmarkManager_CreateDestroy(b *testing.B) {
	ctx := context.Background()
	mgr := newBenchManager(b)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		name := fmt.Sprintf("churn-%d", i)
		if _, err := mgr.CreateCache(ctx, name, cache.DefaultConfig()); err != nil {
			b.Fatalf("create: %v", err)
		}
		if err := mgr.DestroyCache(ctx, name); err != nil {
			b.Fatalf("destroy: %v", err)
		}
	}
}

// =============================================================================
// 🔑 Signature & Key Codec Benchmarks
// =============================================================================

// BenchmarkTypeSignature_Compute 测试类型签名构造性能
func BenchmarkTypeSignature_Compute(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = cache.SignatureOf[string, int64]()
	}
}

// BenchmarkKeycodec_EncodeString 测试字符串键编码
func BenchmarkKeycodec_EncodeString(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = keycodec.Encode("user-session-key-12345")
	}
}

// BenchmarkKeycodec_EncodeInt 测试整型键编码
func BenchmarkKeycodec_EncodeInt(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = keycodec.Encode(int64(1234567890))
	}
}

// BenchmarkKeycodec_EncodeComposite 测试复合键哈希编码
func BenchmarkKeycodec_EncodeComposite(b *testing.B) {
	key := fixtures.SampleUser()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = keycodec.Encode(key)
	}
}

// =============================================================================
// 🏗️ Provider Benchmarks
// =============================================================================

// BenchmarkAdmin_ResolveCache 测试管理面三级解析（记录签名命中）
func BenchmarkAdmin_ResolveCache(b *testing.B) {
	ctx := context.Background()
	p, err := provider.New(fixtures.TemplatedConfig(), zap.NewNop())
	if err != nil {
		b.Fatalf("new provider: %v", err)
	}
	defer p.Close()

	admin, err := p.Admin()
	if err != nil {
		b.Fatalf("admin: %v", err)
	}
	if _, err := admin.CreateCache(ctx, "users", "", cache.ConfigFor[string, string]()); err != nil {
		b.Fatalf("create: %v", err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, ok, err := admin.ResolveCache("users"); err != nil || !ok {
			b.Fatalf("resolve: ok=%v err=%v", ok, err)
		}
	}
}

// BenchmarkProvider_GetManager 测试管理器缓存命中路径
func BenchmarkProvider_GetManager(b *testing.B) {
	p, err := provider.New(fixtures.TestConfig(), zap.NewNop())
	if err != nil {
		b.Fatalf("new provider: %v", err)
	}
	defer p.Close()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := p.GetManager("", "", nil); err != nil {
			b.Fatalf("get manager: %v", err)
		}
	}
}
