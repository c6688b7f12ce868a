// Copyright (c) CacheFlow Authors.
// Licensed under the MIT License.

/*
包 metrics 提供基于 Prometheus 的全链路指标采集能力，覆盖
缓存、HTTP 与数据库三大维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离，
支持多维度 label 分组，便于 Grafana 等工具进行可视化与告警。
测试场景可通过 NewCollectorWith 注入独立 Registry，避免重复注册。

# 核心类型

  - Collector：指标收集器，持有 Counter、Histogram、Gauge 等
    Prometheus 向量指标，按业务域分组管理。

# 主要能力

  - 缓存指标：命中与未命中计数、操作总数与耗时 Histogram，
    按 cache/store/operation/status 分组；缓存创建与销毁计数，
    按 store 分组。
  - HTTP 指标：请求总数、请求耗时，按 method/path/status 分组，
    状态码归类为 2xx/3xx/4xx/5xx。
  - 数据库指标：活跃/空闲连接数 Gauge，按 database 分组。
*/
package metrics
