// =============================================================================
// 🏭 MockFactory - 缓存工厂模拟实现
// =============================================================================
// 用于测试的 cache.Factory 模拟，记录每次创建并返回可检查的 MockCache
//
// 使用方法:
//
//	f := mocks.NewMockFactory()
//	mgr := cache.NewManager(f.Factory())
//	mgr.CreateCache(ctx, "users", cache.DefaultConfig())
//	f.Created() // => ["users"]
// =============================================================================
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/cacheflow/cache"
)

// =============================================================================
// 🎯 MockFactory 结构
// =============================================================================

// MockFactoryCall 记录一次工厂调用
type MockFactoryCall struct {
	Name   string
	Config cache.Config
}

// MockFactory 是 cache.Factory 的模拟实现
type MockFactory struct {
	mu sync.Mutex

	// 错误注入
	err       error
	failAfter int // 第 N 次调用后开始失败（0 表示禁用）

	// 自定义函数（优先于默认行为）
	newFunc cache.Factory

	// 调用记录
	calls  []MockFactoryCall
	caches []*MockCache
}

// =============================================================================
// 🔧 构造函数和 Builder 方法
// =============================================================================

// NewMockFactory 创建新的 MockFactory
func NewMockFactory() *MockFactory {
	return &MockFactory{}
}

// WithError 设置工厂调用的错误
func (f *MockFactory) WithError(err error) *MockFactory {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
	return f
}

// WithFailAfter 设置在 N 次成功创建后开始失败
func (f *MockFactory) WithFailAfter(n int) *MockFactory {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAfter = n
	return f
}

// WithNewFunc 设置自定义创建函数
func (f *MockFactory) WithNewFunc(fn cache.Factory) *MockFactory {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newFunc = fn
	return f
}

// =============================================================================
// 🎯 Factory 实现
// =============================================================================

// Factory 返回可传给 cache.NewManager 的工厂函数
func (f *MockFactory) Factory() cache.Factory {
	return func(ctx context.Context, name string, cfg cache.Config) (cache.Cache, error) {
		f.mu.Lock()
		f.calls = append(f.calls, MockFactoryCall{Name: name, Config: cfg})
		count := len(f.calls)
		err := f.err
		failAfter := f.failAfter
		newFunc := f.newFunc
		f.mu.Unlock()

		if err != nil {
			return nil, err
		}
		if failAfter > 0 && count > failAfter {
			return nil, cache.Errorf(cache.ErrCodeIllegalState, "mock factory failing after %d creations", failAfter)
		}
		if newFunc != nil {
			return newFunc(ctx, name, cfg)
		}

		sig := cache.NewTypeSignature(cfg.KeyType, cfg.ValueType)
		c := NewMockCache(name).WithTypes(sig.KeyType(), sig.ValueType())
		f.mu.Lock()
		f.caches = append(f.caches, c)
		f.mu.Unlock()
		return c, nil
	}
}

// =============================================================================
// 🔍 查询方法
// =============================================================================

// Calls 返回工厂调用记录的副本
func (f *MockFactory) Calls() []MockFactoryCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]MockFactoryCall{}, f.calls...)
}

// CallCount 返回工厂调用次数
func (f *MockFactory) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// Created 返回已创建缓存的名称列表
func (f *MockFactory) Created() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.caches))
	for i, c := range f.caches {
		names[i] = c.Name()
	}
	return names
}

// Cache 按名称返回已创建的 MockCache，未创建时返回 nil
func (f *MockFactory) Cache(name string) *MockCache {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.caches {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// Reset 重置所有状态
func (f *MockFactory) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
	f.caches = nil
	f.err = nil
	f.failAfter = 0
	f.newFunc = nil
}
