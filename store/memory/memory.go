package memory

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/BaSui01/cacheflow/cache"
	"github.com/BaSui01/cacheflow/internal/keycodec"
	"go.uber.org/zap"
)

// =============================================================================
// 💾 进程内 LRU 缓存存储
// =============================================================================

// Config 内存存储配置
type Config struct {
	// 过期清扫周期，0 表示仅惰性过期
	JanitorInterval time.Duration `yaml:"janitor_interval" json:"janitor_interval"`
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		JanitorInterval: 1 * time.Minute,
	}
}

// Store 基于双向链表的 LRU 内存缓存，支持 TTL 惰性过期与后台清扫。
// 所有操作 O(1)，并发安全。
type Store struct {
	name     string
	sig      cache.TypeSignature
	capacity int
	ttl      time.Duration

	mu     sync.RWMutex
	items  map[string]*node
	head   *node // 最近使用
	tail   *node // 最久未使用
	closed bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *zap.Logger
}

type node struct {
	key       string
	value     any
	expiresAt time.Time // 零值表示永不过期
	prev      *node
	next      *node
}

// New 创建内存缓存存储
func New(name string, cfg cache.Config, opts Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		name:     name,
		sig:      cfg.Signature(),
		capacity: cfg.Capacity,
		ttl:      cfg.TTL,
		items:    make(map[string]*node),
		logger:   logger.With(zap.String("component", "memory_store"), zap.String("cache", name)),
	}

	// TTL 开启时启动后台清扫
	if s.ttl > 0 && opts.JanitorInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.wg.Add(1)
		go s.janitorLoop(ctx, opts.JanitorInterval)
	}
	return s
}

// Factory 返回可供 Manager 使用的缓存工厂
func Factory(opts Config, logger *zap.Logger) cache.Factory {
	return func(_ context.Context, name string, cfg cache.Config) (cache.Cache, error) {
		return New(name, cfg, opts, logger), nil
	}
}

// Name 返回缓存名称
func (s *Store) Name() string { return s.name }

// KeyType 返回声明的键类型
func (s *Store) KeyType() reflect.Type { return s.sig.KeyType() }

// ValueType 返回声明的值类型
func (s *Store) ValueType() reflect.Type { return s.sig.ValueType() }

// Get 获取缓存值，未命中或已过期返回 ErrNotFound
func (s *Store) Get(_ context.Context, key any) (any, error) {
	if err := s.sig.CheckKey(key); err != nil {
		return nil, err
	}
	k := keycodec.Encode(key)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errClosed(s.name)
	}

	n, ok := s.items[k]
	if !ok {
		return nil, cache.ErrNotFound
	}

	// 惰性过期检查
	if !n.expiresAt.IsZero() && time.Now().After(n.expiresAt) {
		s.removeNode(n)
		delete(s.items, k)
		return nil, cache.ErrNotFound
	}

	// 移动到头部（O(1) 操作）
	s.moveToHead(n)
	return n.value, nil
}

// Put 写入缓存值，已存在则覆盖并移动到头部
func (s *Store) Put(_ context.Context, key, value any) error {
	if err := s.sig.CheckKey(key); err != nil {
		return err
	}
	if err := s.sig.CheckValue(value); err != nil {
		return err
	}
	k := keycodec.Encode(key)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed(s.name)
	}

	var expiresAt time.Time
	if s.ttl > 0 {
		expiresAt = time.Now().Add(s.ttl)
	}

	if n, ok := s.items[k]; ok {
		n.value = value
		n.expiresAt = expiresAt
		s.moveToHead(n)
		return nil
	}

	// 容量满时淘汰最久未使用的
	if s.capacity > 0 && len(s.items) >= s.capacity {
		s.evictTail()
	}

	n := &node{key: k, value: value, expiresAt: expiresAt}
	s.items[k] = n
	s.addToHead(n)
	return nil
}

// Remove 删除缓存键，键不存在不报错
func (s *Store) Remove(_ context.Context, key any) error {
	if err := s.sig.CheckKey(key); err != nil {
		return err
	}
	k := keycodec.Encode(key)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed(s.name)
	}
	if n, ok := s.items[k]; ok {
		s.removeNode(n)
		delete(s.items, k)
	}
	return nil
}

// Clear 清空全部条目，缓存本身保持可用
func (s *Store) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed(s.name)
	}
	s.items = make(map[string]*node)
	s.head = nil
	s.tail = nil
	return nil
}

// Close 关闭缓存并停止后台清扫，可重复调用
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.items = nil
	s.head = nil
	s.tail = nil
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Debug("memory store closed")
	return nil
}

// Len 返回当前条目数（含未清扫的过期条目）
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// =============================================================================
// 💾 后台过期清扫
// =============================================================================

func (s *Store) janitorLoop(ctx context.Context, interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.deleteExpired()
		}
	}
}

func (s *Store) deleteExpired() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	removed := 0
	for k, n := range s.items {
		if !n.expiresAt.IsZero() && now.After(n.expiresAt) {
			s.removeNode(n)
			delete(s.items, k)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug("expired entries swept", zap.Int("removed", removed))
	}
}

// =============================================================================
// 💾 双向链表操作（调用方须持有写锁）
// =============================================================================

func (s *Store) addToHead(n *node) {
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
}

func (s *Store) removeNode(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		s.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		s.tail = n.prev
	}
	n.prev = nil
	n.next = nil
}

func (s *Store) moveToHead(n *node) {
	if s.head == n {
		return
	}
	s.removeNode(n)
	s.addToHead(n)
}

func (s *Store) evictTail() {
	if s.tail == nil {
		return
	}
	victim := s.tail
	s.removeNode(victim)
	delete(s.items, victim.key)
}

func errClosed(name string) error {
	return cache.Errorf(cache.ErrCodeIllegalState, "cache %q is closed", name)
}
