// Copyright (c) CacheFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 CacheFlow 守护进程入口。

# 概述

cmd/cacheflow 是 CacheFlow 缓存服务的可执行入口，提供 HTTP 管理 API、
数据库迁移、健康检查和版本查询等子命令。程序支持 YAML 配置文件加载、
结构化日志（zap）、Prometheus 指标采集以及配置热重载。

# 核心类型

  - Server          — 主服务器，装配缓存提供者、路由与优雅关闭
  - Middleware      — HTTP 中间件函数签名 func(http.Handler) http.Handler
  - responseWriter  — 包装 http.ResponseWriter 以捕获状态码

# 主要能力

  - 子命令：serve（启动服务）、migrate（数据库迁移）、version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、RequestLogger；
    管理路由的 API 密钥鉴权在路由装配层完成
  - 配置热重载：HotReloadManager 监听文件变更，重载后 Retune 提供者
  - 指标：/metrics 暴露进程专属 Prometheus 注册表
  - 优雅关闭：信号监听 → 停止热更新 → 关闭 HTTP → 关闭提供者 → 刷新遥测
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
