// =============================================================================
// 📦 测试数据工厂 - 缓存条目测试数据
// =============================================================================
// 提供预定义的缓存条目、载荷和缓存参数，用于测试
// =============================================================================
package fixtures

import (
	"fmt"
	"time"

	"github.com/BaSui01/cacheflow/cache"
)

// =============================================================================
// 👤 示例值类型
// =============================================================================

// User 是类型化缓存测试使用的示例值类型
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SampleUser 返回单个示例用户
func SampleUser() User {
	return User{
		ID:    1001,
		Name:  "alice",
		Email: "alice@example.com",
	}
}

// SampleUsers 返回以 ID 为键的示例用户条目
func SampleUsers() map[any]any {
	return map[any]any{
		int64(1001): User{ID: 1001, Name: "alice", Email: "alice@example.com"},
		int64(1002): User{ID: 1002, Name: "bob", Email: "bob@example.com"},
		int64(1003): User{ID: 1003, Name: "carol", Email: "carol@example.com"},
	}
}

// =============================================================================
// 🗂️ 条目集合
// =============================================================================

// SessionEntries 返回字符串会话条目
func SessionEntries() map[any]any {
	return map[any]any{
		"sess-a1": "user:1001",
		"sess-b2": "user:1002",
		"sess-c3": "user:1003",
	}
}

// CounterEntries 返回计数器条目
func CounterEntries() map[any]any {
	return map[any]any{
		"hits":   int64(42),
		"misses": int64(7),
		"errors": int64(0),
	}
}

// ManyEntries 返回 n 条生成的条目，键为 key-0000 形式
func ManyEntries(n int) map[any]any {
	entries := make(map[any]any, n)
	for i := 0; i < n; i++ {
		entries[fmt.Sprintf("key-%04d", i)] = fmt.Sprintf("value-%04d", i)
	}
	return entries
}

// BinaryPayload 返回 n 字节的确定性二进制载荷
func BinaryPayload(n int) []byte {
	payload := make([]byte, n)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	return payload
}

// =============================================================================
// ⚙️ 缓存参数工厂
// =============================================================================

// StringCacheConfig 返回 string→string 的缓存参数
func StringCacheConfig() cache.Config {
	return cache.ConfigFor[string, string]()
}

// UserCacheConfig 返回 int64→User 的缓存参数
func UserCacheConfig() cache.Config {
	return cache.ConfigFor[int64, User]()
}

// ExpiringCacheConfig 返回带过期时间的缓存参数
func ExpiringCacheConfig(ttl time.Duration) cache.Config {
	return cache.DefaultConfig().WithTTL(ttl)
}

// BoundedCacheConfig 返回带容量上限的缓存参数
func BoundedCacheConfig(capacity int) cache.Config {
	return cache.DefaultConfig().WithCapacity(capacity)
}
