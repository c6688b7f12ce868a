// Package config 提供 CacheFlow 的配置管理功能。
//
// 包含配置加载、热重载、配置 API 和变更历史管理。
// 支持从文件与环境变量加载配置，校验缓存模板与存储连接参数，
// 并提供运行时热重载能力。
package config
