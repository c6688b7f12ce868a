package api

import (
	"encoding/json"
	"time"
)

// =============================================================================
// 缓存管理类型
// =============================================================================

// CreateCacheRequest 表示创建缓存的请求。
// @Description 创建缓存请求结构
type CreateCacheRequest struct {
	// 缓存名称（管理器内唯一）
	Name string `json:"name" example:"sessions" binding:"required"`
	// 后端存储（memory、redis、sql；留空按模板或默认值选择）
	Store string `json:"store,omitempty" example:"memory"`
	// 条目存活时长（Go duration 字符串，留空表示不过期）
	TTL string `json:"ttl,omitempty" example:"5m"`
	// 容量上限（0 表示不限制）
	Capacity int `json:"capacity,omitempty" example:"1024"`
	// 键类型提示（string、int、int64、bool 等；留空为 any）
	KeyType string `json:"key_type,omitempty" example:"string"`
	// 值类型提示（string、bytes、any 等；留空为 any）
	ValueType string `json:"value_type,omitempty" example:"any"`
}

// CacheInfo 表示 API 返回的缓存信息。
// @Description 缓存信息结构
type CacheInfo struct {
	// 缓存名称
	Name string `json:"name" example:"sessions"`
	// 声明的键类型
	KeyType string `json:"key_type" example:"string"`
	// 声明的值类型
	ValueType string `json:"value_type" example:"any"`
}

// =============================================================================
// 缓存条目类型
// =============================================================================

// EntryRequest 表示写入缓存条目的请求。
// @Description 缓存条目写入结构
type EntryRequest struct {
	// 条目值（任意 JSON，按缓存声明的值类型解码）
	Value json.RawMessage `json:"value"`
}

// EntryResponse 表示读取缓存条目的响应。
// @Description 缓存条目读取结构
type EntryResponse struct {
	// 缓存名称
	Cache string `json:"cache" example:"sessions"`
	// 条目键（按路径段原文返回）
	Key string `json:"key" example:"user-42"`
	// 条目值
	Value any `json:"value"`
	// 读取时间戳
	RetrievedAt time.Time `json:"retrieved_at,omitempty"`
}
