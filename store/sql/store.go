package sql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BaSui01/cacheflow/cache"
	"github.com/BaSui01/cacheflow/internal/keycodec"
)

// =============================================================================
// 🎯 单缓存存储
// =============================================================================

// Store 单个命名缓存的 SQL 存储，行按 (scope, cache_name) 隔离，
// 值为 JSON 序列化后的 payload
type Store struct {
	backend *Backend
	scope   string
	name    string
	sig     cache.TypeSignature
	ttl     time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
}

func (b *Backend) newStore(scope, name string, cfg cache.Config) *Store {
	return &Store{
		backend: b,
		scope:   scope,
		name:    name,
		sig:     cfg.Signature(),
		ttl:     cfg.TTL,
		logger:  b.logger.With(zap.String("cache", name)),
	}
}

// Name 返回缓存名称
func (s *Store) Name() string { return s.name }

// KeyType 返回声明的键类型
func (s *Store) KeyType() reflect.Type { return s.sig.KeyType() }

// ValueType 返回声明的值类型
func (s *Store) ValueType() reflect.Type { return s.sig.ValueType() }

// Get 获取缓存值，未命中或已过期返回 ErrNotFound
func (s *Store) Get(ctx context.Context, key any) (any, error) {
	if err := s.assertUsable(); err != nil {
		return nil, err
	}
	if err := s.sig.CheckKey(key); err != nil {
		return nil, err
	}

	var entry Entry
	err := s.backend.db.WithContext(ctx).
		Where("scope = ? AND cache_name = ? AND cache_key = ?", s.scope, s.name, keycodec.Encode(key)).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		s.logger.Error("sql get failed", zap.Error(err))
		return nil, fmt.Errorf("sql get failed: %w", err)
	}

	// 惰性过期：后台清扫前读到的过期行按未命中处理并顺手删除
	if entry.ExpiresAt != nil && time.Now().After(*entry.ExpiresAt) {
		s.backend.db.WithContext(ctx).
			Where("scope = ? AND cache_name = ? AND cache_key = ?", entry.Scope, entry.CacheName, entry.CacheKey).
			Where("expires_at IS NOT NULL AND expires_at < ?", time.Now()).
			Delete(&Entry{})
		return nil, cache.ErrNotFound
	}
	return s.decodeValue(entry.Payload)
}

// Put 写入缓存值，同键行执行 upsert
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

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	entry := Entry{
		Scope:     s.scope,
		CacheName: s.name,
		CacheKey:  keycodec.Encode(key),
		Payload:   payload,
	}
	if s.ttl > 0 {
		expires := time.Now().Add(s.ttl)
		entry.ExpiresAt = &expires
	}

	// 并发 upsert 在 MySQL 下可能死锁、SQLite 下可能锁忙，走事务重试
	err = s.backend.pool.WithTransactionRetry(ctx, 3, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "scope"}, {Name: "cache_name"}, {Name: "cache_key"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "expires_at", "updated_at"}),
		}).Create(&entry).Error
	})
	if err != nil {
		s.logger.Error("sql put failed", zap.Error(err))
		return fmt.Errorf("sql put failed: %w", err)
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
	err := s.backend.db.WithContext(ctx).
		Where("scope = ? AND cache_name = ? AND cache_key = ?", s.scope, s.name, keycodec.Encode(key)).
		Delete(&Entry{}).Error
	if err != nil {
		s.logger.Error("sql delete failed", zap.Error(err))
		return fmt.Errorf("sql delete failed: %w", err)
	}
	return nil
}

// Clear 删除本缓存全部行
func (s *Store) Clear(ctx context.Context) error {
	if err := s.assertUsable(); err != nil {
		return err
	}
	res := s.backend.db.WithContext(ctx).
		Where("scope = ? AND cache_name = ?", s.scope, s.name).
		Delete(&Entry{})
	if res.Error != nil {
		s.logger.Error("sql clear failed", zap.Error(res.Error))
		return fmt.Errorf("sql clear failed: %w", res.Error)
	}
	s.logger.Debug("sql cache cleared", zap.Int64("deleted", res.RowsAffected))
	return nil
}

// Close 标记本缓存关闭；共享连接由 Backend.Close 统一释放
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
