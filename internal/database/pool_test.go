package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

// =============================================================================
// 🧪 连接池管理器测试
// =============================================================================

// setupMockPool 基于 sqlmock 构建连接池；关闭 gorm 自动 Ping，
// 避免 Open 阶段消耗 Ping 期望
func setupMockPool(t *testing.T, config PoolConfig) (sqlmock.Sqlmock, *PoolManager) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: mockDB,
	}), &gorm.Config{
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	pm, err := NewPoolManager(gormDB, config, zap.NewNop())
	require.NoError(t, err)
	return mock, pm
}

// setupSQLitePool 基于内存 SQLite 构建连接池；单连接避免独立内存库
func setupSQLitePool(t *testing.T, config PoolConfig, logger *zap.Logger) *PoolManager {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	require.NoError(t, err)

	config.MaxOpenConns = 1
	config.MaxIdleConns = 1
	pm, err := NewPoolManager(db, config, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pm.Close() })
	return pm
}

func TestNewPoolManagerNilDB(t *testing.T) {
	t.Parallel()

	_, err := NewPoolManager(nil, DefaultPoolConfig(), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be nil")
}

func TestNewPoolManagerAppliesSettings(t *testing.T) {
	_, pm := setupMockPool(t, PoolConfig{
		MaxIdleConns:    2,
		MaxOpenConns:    4,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
	})

	assert.NotNil(t, pm.DB())
	assert.Equal(t, 4, pm.Stats().MaxOpenConnections)
}

func TestPoolManagerPingAndClose(t *testing.T) {
	mock, pm := setupMockPool(t, PoolConfig{MaxOpenConns: 1})
	ctx := context.Background()

	mock.ExpectPing()
	assert.NoError(t, pm.Ping(ctx))

	mock.ExpectClose()
	require.NoError(t, pm.Close())
	require.NoError(t, pm.Close(), "close must be idempotent")

	err := pm.Ping(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool is closed")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolManagerPingFailure(t *testing.T) {
	mock, pm := setupMockPool(t, PoolConfig{MaxOpenConns: 1})

	mock.ExpectPing().WillReturnError(errors.New("connection lost"))
	err := pm.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection lost")

	assert.NoError(t, mock.ExpectationsWereMet())
}

// =============================================================================
// 🧪 事务测试
// =============================================================================

func TestWithTransactionCommit(t *testing.T) {
	mock, pm := setupMockPool(t, PoolConfig{MaxOpenConns: 1})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sessions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := pm.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		return tx.Exec("INSERT INTO sessions (id) VALUES (?)", 1).Error
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionRollback(t *testing.T) {
	mock, pm := setupMockPool(t, PoolConfig{MaxOpenConns: 1})

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := pm.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionAfterClose(t *testing.T) {
	mock, pm := setupMockPool(t, PoolConfig{MaxOpenConns: 1})

	mock.ExpectClose()
	require.NoError(t, pm.Close())

	err := pm.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		t.Error("transaction must not run on a closed pool")
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool is closed")
}

func TestWithTransactionRetryRecoversFromDeadlock(t *testing.T) {
	mock, pm := setupMockPool(t, PoolConfig{MaxOpenConns: 1})

	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	attempts := 0
	err := pm.WithTransactionRetry(context.Background(), 3, func(tx *gorm.DB) error {
		attempts++
		if attempts == 1 {
			return errors.New("deadlock detected")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionRetryStopsOnPermanentError(t *testing.T) {
	mock, pm := setupMockPool(t, PoolConfig{MaxOpenConns: 1})

	mock.ExpectBegin()
	mock.ExpectRollback()

	attempts := 0
	err := pm.WithTransactionRetry(context.Background(), 3, func(tx *gorm.DB) error {
		attempts++
		return errors.New("syntax error at or near")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "permanent errors must not be retried")
	assert.NotContains(t, err.Error(), "retries")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionRetryExhaustsAttempts(t *testing.T) {
	mock, pm := setupMockPool(t, PoolConfig{MaxOpenConns: 1})

	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectRollback()

	attempts := 0
	err := pm.WithTransactionRetry(context.Background(), 2, func(tx *gorm.DB) error {
		attempts++
		return errors.New("database is locked")
	})
	require.Error(t, err)
	assert.Equal(t, 2, attempts)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionRetryHonorsContext(t *testing.T) {
	mock, pm := setupMockPool(t, PoolConfig{MaxOpenConns: 1})

	mock.ExpectBegin()
	mock.ExpectRollback()

	ctx, cancel := context.WithCancel(context.Background())
	err := pm.WithTransactionRetry(ctx, 5, func(tx *gorm.DB) error {
		cancel() // 退避等待前取消，重试应立即终止
		return errors.New("deadlock detected")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionSQLiteRoundTrip(t *testing.T) {
	t.Parallel()

	pm := setupSQLitePool(t, PoolConfig{}, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, pm.DB().Exec("CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)").Error)

	err := pm.WithTransaction(ctx, func(tx *gorm.DB) error {
		return tx.Exec("INSERT INTO kv (k, v) VALUES (?, ?)", "a", "1").Error
	})
	require.NoError(t, err)

	err = pm.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Exec("INSERT INTO kv (k, v) VALUES (?, ?)", "b", "2").Error; err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	var n int64
	require.NoError(t, pm.DB().Raw("SELECT COUNT(*) FROM kv").Scan(&n).Error)
	assert.Equal(t, int64(1), n, "rolled back insert must not survive")
}

// =============================================================================
// 🧪 健康检查测试
// =============================================================================

func TestHealthCheckLoopReportsUntilClose(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	pm := setupSQLitePool(t, PoolConfig{
		HealthCheckInterval: 5 * time.Millisecond,
	}, zap.New(core))

	assert.Eventually(t, func() bool {
		return logs.FilterMessage("database health check passed").Len() > 0
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, pm.Close())
}

// =============================================================================
// 🧪 可重试错误分类
// =============================================================================

func TestIsRetryableError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"mysql deadlock", errors.New("Error 1213: Deadlock found when trying to get lock"), true},
		{"postgres serialization", errors.New("ERROR: could not serialize access (SQLSTATE 40001)"), true},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"sqlite table lock", errors.New("database table is locked"), true},
		{"connection reset", errors.New("read tcp: connection reset by peer"), true},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"lock wait timeout", errors.New("Error 1205: Lock wait timeout exceeded"), true},
		{"bad connection", errors.New("driver: bad connection"), true},
		{"syntax error", errors.New("syntax error at or near SELECT"), false},
		{"not found", gorm.ErrRecordNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isRetryableError(tt.err))
		})
	}
}
