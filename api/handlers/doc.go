// Copyright (c) CacheFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 CacheFlow HTTP API 的请求处理器实现。

# 概述

handlers 包实现了 CacheFlow 所有 HTTP 端点的请求处理逻辑，
包括缓存管理、条目读写、健康检查以及统一的响应/错误处理。
所有 Handler 均遵循标准 net/http 接口，通过 Swagger 注解生成 API 文档。

# 核心类型

  - CacheHandler     — 缓存 CRUD、条目读写与清空
  - HealthHandler    — 服务健康检查（/health, /healthz, /ready）
  - CacheAdmin       — Handler 依赖的管理面接口，由 provider 运行时实现
  - Response         — 统一 JSON 响应结构（success + data + error + timestamp）
  - ErrorInfo        — 结构化错误信息，含 code、message、details
  - ResponseWriter   — 包装 http.ResponseWriter 以捕获状态码

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteJSON 辅助函数
  - 请求验证：DecodeJSONBody（1 MB 限制 + 严格模式）、ValidateContentType
  - ErrorCode → HTTP 状态码自动映射（4xx/5xx）
  - 条目访问：键按缓存声明的键类型从路径段转换，值按声明的值类型解码 JSON
  - 可扩展健康检查：RegisterCheck 注册自定义 HealthCheck 实现
*/
package handlers
