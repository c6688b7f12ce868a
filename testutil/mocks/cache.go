// =============================================================================
// 🗄️ MockCache - 缓存模拟实现
// =============================================================================
// 用于测试的 cache.Cache 模拟，支持条目预设、错误注入和调用记录
//
// 使用方法:
//
//	c := mocks.NewMockCache("users")
//	c.Put(ctx, "k", "v")
//	v, err := c.Get(ctx, "k")
// =============================================================================
package mocks

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/BaSui01/cacheflow/cache"
)

// =============================================================================
// 🎯 MockCache 结构
// =============================================================================

// MockCacheCall 记录一次缓存调用
type MockCacheCall struct {
	Method string
	Key    any
	Value  any
}

// MockCache 是 cache.Cache 的模拟实现
type MockCache struct {
	mu sync.RWMutex

	// 标识
	name      string
	keyType   reflect.Type
	valueType reflect.Type

	// 条目存储
	entries map[any]any

	// 错误注入
	getErr    error
	putErr    error
	removeErr error
	clearErr  error
	closeErr  error

	// 行为控制
	delay     time.Duration
	failAfter int // 第 N 次调用后开始失败（0 表示禁用）
	closed    bool

	// 自定义函数（优先于默认行为）
	getFunc func(ctx context.Context, key any) (any, error)
	putFunc func(ctx context.Context, key, value any) error

	// 调用记录
	calls      []MockCacheCall
	callCount  int
	closeCalls int
}

var _ cache.Cache = (*MockCache)(nil)

// =============================================================================
// 🔧 构造函数和 Builder 方法
// =============================================================================

// NewMockCache 创建新的 MockCache，键值类型默认为通配
func NewMockCache(name string) *MockCache {
	return &MockCache{
		name:      name,
		keyType:   cache.WildcardType,
		valueType: cache.WildcardType,
		entries:   map[any]any{},
	}
}

// WithTypes 设置键值类型
func (m *MockCache) WithTypes(keyType, valueType reflect.Type) *MockCache {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keyType = keyType
	m.valueType = valueType
	return m
}

// WithEntry 预设一个条目
func (m *MockCache) WithEntry(key, value any) *MockCache {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return m
}

// WithEntries 批量预设条目
func (m *MockCache) WithEntries(entries map[any]any) *MockCache {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range entries {
		m.entries[k] = v
	}
	return m
}

// WithGetError 设置 Get 方法的错误
func (m *MockCache) WithGetError(err error) *MockCache {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
	return m
}

// WithPutError 设置 Put 方法的错误
func (m *MockCache) WithPutError(err error) *MockCache {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putErr = err
	return m
}

// WithRemoveError 设置 Remove 方法的错误
func (m *MockCache) WithRemoveError(err error) *MockCache {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeErr = err
	return m
}

// WithClearError 设置 Clear 方法的错误
func (m *MockCache) WithClearError(err error) *MockCache {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearErr = err
	return m
}

// WithCloseError 设置 Close 方法的错误
func (m *MockCache) WithCloseError(err error) *MockCache {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeErr = err
	return m
}

// WithDelay 设置每次调用的延迟，用于超时测试
func (m *MockCache) WithDelay(delay time.Duration) *MockCache {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = delay
	return m
}

// WithFailAfter 设置在 N 次成功调用后开始失败
func (m *MockCache) WithFailAfter(n int) *MockCache {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	return m
}

// WithGetFunc 设置自定义 Get 实现
func (m *MockCache) WithGetFunc(fn func(ctx context.Context, key any) (any, error)) *MockCache {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getFunc = fn
	return m
}

// WithPutFunc 设置自定义 Put 实现
func (m *MockCache) WithPutFunc(fn func(ctx context.Context, key, value any) error) *MockCache {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putFunc = fn
	return m
}

// =============================================================================
// 🎯 Cache 接口实现
// =============================================================================

// Name 返回缓存名称
func (m *MockCache) Name() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.name
}

// KeyType 返回键类型
func (m *MockCache) KeyType() reflect.Type {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.keyType
}

// ValueType 返回值类型
func (m *MockCache) ValueType() reflect.Type {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.valueType
}

// Get 查找条目，未命中返回 cache.ErrNotFound
func (m *MockCache) Get(ctx context.Context, key any) (any, error) {
	if err := m.before(ctx, MockCacheCall{Method: "Get", Key: key}); err != nil {
		return nil, err
	}

	m.mu.RLock()
	getFunc := m.getFunc
	getErr := m.getErr
	m.mu.RUnlock()

	if getFunc != nil {
		return getFunc(ctx, key)
	}
	if getErr != nil {
		return nil, getErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	if !ok {
		return nil, cache.ErrNotFound
	}
	return v, nil
}

// Put 写入条目
func (m *MockCache) Put(ctx context.Context, key, value any) error {
	if err := m.before(ctx, MockCacheCall{Method: "Put", Key: key, Value: value}); err != nil {
		return err
	}

	m.mu.RLock()
	putFunc := m.putFunc
	putErr := m.putErr
	m.mu.RUnlock()

	if putFunc != nil {
		return putFunc(ctx, key, value)
	}
	if putErr != nil {
		return putErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

// Remove 删除条目，条目不存在时同样返回 nil
func (m *MockCache) Remove(ctx context.Context, key any) error {
	if err := m.before(ctx, MockCacheCall{Method: "Remove", Key: key}); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.removeErr != nil {
		return m.removeErr
	}

	delete(m.entries, key)
	return nil
}

// Clear 清空所有条目，幂等
func (m *MockCache) Clear(ctx context.Context) error {
	if err := m.before(ctx, MockCacheCall{Method: "Clear"}); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.clearErr != nil {
		return m.clearErr
	}

	m.entries = map[any]any{}
	return nil
}

// Close 关闭缓存，幂等；关闭后的读写返回 ILLEGAL_STATE
func (m *MockCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeCalls++

	if m.closed {
		return nil
	}
	m.closed = true

	return m.closeErr
}

// before 统一处理调用记录、延迟、关闭检查和 failAfter
func (m *MockCache) before(ctx context.Context, call MockCacheCall) error {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.callCount++
	name := m.name
	count := m.callCount
	delay := m.delay
	failAfter := m.failAfter
	closed := m.closed
	m.mu.Unlock()

	if closed {
		return cache.Errorf(cache.ErrCodeIllegalState, "cache %q is closed", name)
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if failAfter > 0 && count > failAfter {
		return cache.Errorf(cache.ErrCodeIllegalState, "mock cache %q failing after %d calls", name, failAfter)
	}

	return ctx.Err()
}

// =============================================================================
// 🔍 查询方法
// =============================================================================

// Calls 返回调用记录的副本
func (m *MockCache) Calls() []MockCacheCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]MockCacheCall{}, m.calls...)
}

// CallCount 返回总调用次数（不含 Close）
func (m *MockCache) CallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.callCount
}

// CloseCalls 返回 Close 调用次数
func (m *MockCache) CloseCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closeCalls
}

// IsClosed 返回缓存是否已关闭
func (m *MockCache) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Len 返回当前条目数
func (m *MockCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Entries 返回条目的浅拷贝
func (m *MockCache) Entries() map[any]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[any]any, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}

// Reset 重置所有状态
func (m *MockCache) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = map[any]any{}
	m.calls = nil
	m.callCount = 0
	m.closeCalls = 0
	m.closed = false
	m.getErr = nil
	m.putErr = nil
	m.removeErr = nil
	m.clearErr = nil
	m.closeErr = nil
	m.getFunc = nil
	m.putFunc = nil
}

// =============================================================================
// 🎭 预设 Cache 工厂
// =============================================================================

// NewTypedCache 创建带具体键值类型的缓存模拟
func NewTypedCache(name string, keyType, valueType reflect.Type) *MockCache {
	return NewMockCache(name).WithTypes(keyType, valueType)
}

// NewPrefilledCache 创建预填充条目的缓存模拟
func NewPrefilledCache(name string, entries map[any]any) *MockCache {
	return NewMockCache(name).WithEntries(entries)
}

// NewErrorCache 创建所有读写都返回指定错误的缓存模拟
func NewErrorCache(name string, err error) *MockCache {
	return NewMockCache(name).
		WithGetError(err).
		WithPutError(err).
		WithRemoveError(err).
		WithClearError(err)
}

// NewClosedCache 创建已关闭的缓存模拟
func NewClosedCache(name string) *MockCache {
	m := NewMockCache(name)
	_ = m.Close()
	return m
}
