package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/BaSui01/cacheflow/cache"
	"github.com/BaSui01/cacheflow/internal/keycodec"
	"github.com/BaSui01/cacheflow/internal/tlsutil"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// =============================================================================
// 💾 Redis 缓存存储
// =============================================================================

// Config Redis 连接配置
type Config struct {
	// Redis 地址
	Addr string `yaml:"addr" json:"addr"`

	// 密码
	Password string `yaml:"password" json:"password"`

	// 数据库编号
	DB int `yaml:"db" json:"db"`

	// 最大重试次数
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// 连接池大小
	PoolSize int `yaml:"pool_size" json:"pool_size"`

	// 最小空闲连接数
	MinIdleConns int `yaml:"min_idle_conns" json:"min_idle_conns"`

	// 是否启用 TLS（加固配置：TLS 1.2+，仅 AEAD 密码套件）
	TLS bool `yaml:"tls" json:"tls"`

	// 健康检查间隔
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval"`

	// 键命名空间前缀
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`

	// Clear 扫描批大小
	ScanBatch int64 `yaml:"scan_batch" json:"scan_batch"`
}

// DefaultConfig 返回默认 Redis 配置
func DefaultConfig() Config {
	return Config{
		Addr:                "localhost:6379",
		Password:            "",
		DB:                  0,
		MaxRetries:          3,
		PoolSize:            10,
		MinIdleConns:        2,
		HealthCheckInterval: 30 * time.Second,
		KeyPrefix:           "cacheflow",
		ScanBatch:           200,
	}
}

// Client Redis 连接管理器，同一 Manager 下的全部缓存共享一个连接
type Client struct {
	rdb    *redis.Client
	config Config
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

// New 创建 Redis 连接管理器
func New(config Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := &redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		MaxRetries:   config.MaxRetries,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
	}
	if config.TLS {
		opts.TLSConfig = tlsutil.DefaultTLSConfig()
	}
	rdb := redis.NewClient(opts)

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	c := &Client{
		rdb:    rdb,
		config: config,
		logger: logger.With(zap.String("component", "redis_store")),
	}

	// 启动健康检查
	if config.HealthCheckInterval > 0 {
		go c.healthCheckLoop()
	}

	c.logger.Info("redis store connected",
		zap.String("addr", config.Addr),
		zap.Int("pool_size", config.PoolSize),
	)
	return c, nil
}

// NewWithClient 复用既有 redis 客户端创建连接管理器（测试用）
func NewWithClient(rdb *redis.Client, config Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		rdb:    rdb,
		config: config,
		logger: logger.With(zap.String("component", "redis_store")),
	}
}

// Factory 返回可供 Manager 使用的缓存工厂，scope 用于键命名空间隔离
func (c *Client) Factory(scope string) cache.Factory {
	return func(_ context.Context, name string, cfg cache.Config) (cache.Cache, error) {
		return c.newStore(scope, name, cfg), nil
	}
}

// Ping 检查 Redis 连接
func (c *Client) Ping(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return fmt.Errorf("redis store is closed")
	}
	return c.rdb.Ping(ctx).Err()
}

// Close 关闭共享连接，可重复调用
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.logger.Info("closing redis store")
	return c.rdb.Close()
}

// healthCheckLoop 健康检查循环
func (c *Client) healthCheckLoop() {
	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.RLock()
		if c.closed {
			c.mu.RUnlock()
			return
		}
		c.mu.RUnlock()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.rdb.Ping(ctx).Err(); err != nil {
			c.logger.Error("redis health check failed", zap.Error(err))
		} else {
			c.logger.Debug("redis health check passed")
		}
		cancel()
	}
}

// =============================================================================
// 🎯 单缓存存储
// =============================================================================

// Store 单个命名缓存的 Redis 存储，键按
// <prefix>:<scope>:<cache>: 命名空间隔离，值为 JSON 序列化
type Store struct {
	client *Client
	name   string
	sig    cache.TypeSignature
	prefix string
	ttl    time.Duration
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
}

func (c *Client) newStore(scope, name string, cfg cache.Config) *Store {
	return &Store{
		client: c,
		name:   name,
		sig:    cfg.Signature(),
		prefix: fmt.Sprintf("%s:%s:%s:", c.config.KeyPrefix, scope, name),
		ttl:    cfg.TTL,
		logger: c.logger.With(zap.String("cache", name)),
	}
}

// Name 返回缓存名称
func (s *Store) Name() string { return s.name }

// KeyType 返回声明的键类型
func (s *Store) KeyType() reflect.Type { return s.sig.KeyType() }

// ValueType 返回声明的值类型
func (s *Store) ValueType() reflect.Type { return s.sig.ValueType() }

// Get 获取缓存值，未命中返回 ErrNotFound
func (s *Store) Get(ctx context.Context, key any) (any, error) {
	if err := s.assertUsable(); err != nil {
		return nil, err
	}
	if err := s.sig.CheckKey(key); err != nil {
		return nil, err
	}

	data, err := s.client.rdb.Get(ctx, s.redisKey(key)).Bytes()
	if err == redis.Nil {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		s.logger.Error("redis get failed", zap.Error(err))
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return s.decodeValue(data)
}

// Put 写入缓存值，TTL 为 0 时永不过期
func (s *Store) Put(ctx context.Context, key, value any) error {
	if err := s.assertUsable(); err != nil {
		return err
	}
	if err := s.sig.CheckKey(key); err != nil {
		return err
	}
	if err := s.sig.CheckValue(value); err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	if err := s.client.rdb.Set(ctx, s.redisKey(key), data, s.ttl).Err(); err != nil {
		s.logger.Error("redis set failed", zap.Error(err))
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Remove 删除缓存键，键不存在不报错
func (s *Store) Remove(ctx context.Context, key any) error {
	if err := s.assertUsable(); err != nil {
		return err
	}
	if err := s.sig.CheckKey(key); err != nil {
		return err
	}
	if err := s.client.rdb.Del(ctx, s.redisKey(key)).Err(); err != nil {
		s.logger.Error("redis delete failed", zap.Error(err))
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Clear 按前缀 SCAN 并批量删除本缓存全部键
func (s *Store) Clear(ctx context.Context) error {
	if err := s.assertUsable(); err != nil {
		return err
	}

	var cursor uint64
	deleted := 0
	for {
		keys, next, err := s.client.rdb.Scan(ctx, cursor, s.prefix+"*", s.scanBatch()).Result()
		if err != nil {
			return fmt.Errorf("redis scan failed: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis clear delete failed: %w", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	s.logger.Debug("redis cache cleared", zap.Int("deleted", deleted))
	return nil
}

// Close 标记本缓存关闭；共享连接由 Client.Close 统一释放
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) assertUsable() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return cache.Errorf(cache.ErrCodeIllegalState, "cache %q is closed", s.name)
	}
	return nil
}

func (s *Store) redisKey(key any) string {
	return s.prefix + keycodec.Encode(key)
}

func (s *Store) scanBatch() int64 {
	if s.client.config.ScanBatch > 0 {
		return s.client.config.ScanBatch
	}
	return 200
}

// decodeValue 按声明的值类型反序列化；通配类型解码为 any
func (s *Store) decodeValue(data []byte) (any, error) {
	vt := s.sig.ValueType()
	if vt == cache.WildcardType {
		var out any
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cache value: %w", err)
		}
		return out, nil
	}
	dest := reflect.New(vt)
	if err := json.Unmarshal(data, dest.Interface()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return dest.Elem().Interface(), nil
}
