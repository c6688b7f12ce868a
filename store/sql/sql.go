package sql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"github.com/BaSui01/cacheflow/cache"
	"github.com/BaSui01/cacheflow/internal/database"
)

// =============================================================================
// 🗄️ SQL 缓存存储后端
// =============================================================================

// Config SQL 存储配置
type Config struct {
	// 数据库驱动：sqlite | mysql | postgres
	Driver string `yaml:"driver" json:"driver"`

	// 连接串
	DSN string `yaml:"dsn" json:"dsn"`

	// 是否自动建表（运维环境建议走 migration CLI）
	AutoMigrate bool `yaml:"auto_migrate" json:"auto_migrate"`

	// 最大空闲连接数
	MaxIdleConns int `yaml:"max_idle_conns" json:"max_idle_conns"`

	// 最大打开连接数
	MaxOpenConns int `yaml:"max_open_conns" json:"max_open_conns"`

	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`

	// 连接最大空闲时间
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`

	// 过期清扫周期，0 表示仅惰性过期
	JanitorInterval time.Duration `yaml:"janitor_interval" json:"janitor_interval"`

	// 单批清扫行数
	JanitorBatch int `yaml:"janitor_batch" json:"janitor_batch"`

	// 清扫批次限速（批/秒），保护业务负载
	JanitorRate float64 `yaml:"janitor_rate" json:"janitor_rate"`
}

// DefaultConfig 返回默认 SQL 存储配置
func DefaultConfig() Config {
	return Config{
		Driver:          "sqlite",
		DSN:             "file:cacheflow.db?cache=shared",
		AutoMigrate:     true,
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
		JanitorInterval: time.Minute,
		JanitorBatch:    500,
		JanitorRate:     4,
	}
}

// Entry 缓存条目表模型，(scope, cache_name, cache_key) 联合主键
type Entry struct {
	Scope     string     `gorm:"primaryKey;size:128"`
	CacheName string     `gorm:"primaryKey;size:128"`
	CacheKey  string     `gorm:"primaryKey;size:512"`
	Payload   []byte
	ExpiresAt *time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定表名
func (Entry) TableName() string {
	return "cache_entries"
}

// Backend SQL 存储后端，持有共享连接池与后台清扫
type Backend struct {
	db      *gorm.DB
	pool    *database.PoolManager
	config  Config
	logger  *zap.Logger
	limiter *rate.Limiter

	cancel context.CancelFunc
	done   chan struct{}
}

// Open 按配置打开数据库并构建存储后端
func Open(config Config, logger *zap.Logger) (*Backend, error) {
	dialector, err := buildDialector(config)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return NewBackend(db, config, logger)
}

// NewBackend 在既有 GORM 连接上构建存储后端（测试注入用）
func NewBackend(db *gorm.DB, config Config, logger *zap.Logger) (*Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// 连接池参数与生命周期交由 PoolManager 统一管理；探活由上层
	// 健康探针按需驱动，不开后台循环
	pool, err := database.NewPoolManager(db, database.PoolConfig{
		MaxIdleConns:    config.MaxIdleConns,
		MaxOpenConns:    config.MaxOpenConns,
		ConnMaxLifetime: config.ConnMaxLifetime,
		ConnMaxIdleTime: config.ConnMaxIdleTime,
	}, logger)
	if err != nil {
		return nil, err
	}

	b := &Backend{
		db:     db,
		pool:   pool,
		config: config,
		logger: logger.With(zap.String("component", "sql_store")),
	}

	if config.AutoMigrate {
		if err := db.AutoMigrate(&Entry{}); err != nil {
			return nil, fmt.Errorf("failed to migrate cache_entries: %w", err)
		}
	}

	// 启动限速后台清扫
	if config.JanitorInterval > 0 {
		r := rate.Limit(config.JanitorRate)
		if r <= 0 {
			r = rate.Inf
		}
		b.limiter = rate.NewLimiter(r, 1)
		ctx, cancel := context.WithCancel(context.Background())
		b.cancel = cancel
		b.done = make(chan struct{})
		go b.janitorLoop(ctx)
	}

	b.logger.Info("sql store initialized",
		zap.String("driver", config.Driver),
		zap.Int("max_open_conns", config.MaxOpenConns),
	)
	return b, nil
}

func buildDialector(config Config) (gorm.Dialector, error) {
	switch config.Driver {
	case "sqlite":
		return sqlite.Open(config.DSN), nil
	case "mysql":
		return mysql.Open(config.DSN), nil
	case "postgres":
		return postgres.Open(config.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: sqlite, mysql, postgres)", config.Driver)
	}
}

// Factory 返回可供 Manager 使用的缓存工厂，scope 用于行级命名空间隔离
func (b *Backend) Factory(scope string) cache.Factory {
	return func(_ context.Context, name string, cfg cache.Config) (cache.Cache, error) {
		return b.newStore(scope, name, cfg), nil
	}
}

// Ping 检查数据库连接
func (b *Backend) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}

// Stats 返回连接池统计信息
func (b *Backend) Stats() sql.DBStats {
	return b.pool.Stats()
}

// DB 返回底层 GORM 实例
func (b *Backend) DB() *gorm.DB {
	return b.db
}

// Close 停止清扫并关闭连接池，可重复调用
func (b *Backend) Close() error {
	if b.cancel != nil {
		b.cancel()
		<-b.done
		b.cancel = nil
	}
	b.logger.Info("closing sql store")
	return b.pool.Close()
}

// =============================================================================
// 🧹 限速过期清扫
// =============================================================================

func (b *Backend) janitorLoop(ctx context.Context) {
	defer close(b.done)
	ticker := time.NewTicker(b.config.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.deleteExpired(ctx)
		}
	}
}

// deleteExpired 分批删除过期行，批间经 limiter 限速
func (b *Backend) deleteExpired(ctx context.Context) {
	now := time.Now()
	batch := b.config.JanitorBatch
	if batch <= 0 {
		batch = 500
	}
	total := int64(0)

	for {
		if err := b.limiter.Wait(ctx); err != nil {
			return
		}

		var victims []Entry
		err := b.db.WithContext(ctx).
			Select("scope", "cache_name", "cache_key").
			Where("expires_at IS NOT NULL AND expires_at < ?", now).
			Limit(batch).
			Find(&victims).Error
		if err != nil {
			b.logger.Error("expired sweep query failed", zap.Error(err))
			return
		}
		if len(victims) == 0 {
			break
		}

		// 按 (scope, cache_name) 分组删除；重查过期条件，避免误删
		// select 之后刚被刷新的行
		groups := make(map[[2]string][]string)
		for _, v := range victims {
			g := [2]string{v.Scope, v.CacheName}
			groups[g] = append(groups[g], v.CacheKey)
		}
		for g, keys := range groups {
			res := b.db.WithContext(ctx).
				Where("scope = ? AND cache_name = ? AND cache_key IN ?", g[0], g[1], keys).
				Where("expires_at IS NOT NULL AND expires_at < ?", now).
				Delete(&Entry{})
			if res.Error != nil {
				b.logger.Error("expired sweep delete failed", zap.Error(res.Error))
				return
			}
			total += res.RowsAffected
		}

		if len(victims) < batch {
			break
		}
	}

	if total > 0 {
		b.logger.Debug("expired entries swept", zap.Int64("removed", total))
	}
}
