// Copyright (c) CacheFlow Authors.
// Licensed under the MIT License.

/*
包 server 提供 HTTP/HTTPS 服务器生命周期管理与守护进程路由装配，
支持非阻塞启动、优雅关闭与系统信号监听。

# 概述

本包通过 Manager 封装 net/http.Server，统一管理监听、服务、
关闭与错误传播流程；通过 Routes/NewMux 装配缓存管理 API、
配置管理 API、健康检查与 Prometheus 指标端点。支持 HTTP 与
TLS 两种启动模式，内置 SIGINT/SIGTERM 信号处理。

# 核心类型

  - Manager：HTTP 服务器管理器，持有 http.Server、net.Listener
    与异步错误通道，提供 Start/StartTLS/Shutdown/WaitForShutdown
    等生命周期方法。
  - Config：服务器配置，包含监听地址、读写超时、空闲超时、
    最大请求头大小与优雅关闭超时；FromServerConfig 可由应用
    配置直接推导。
  - Routes：路由装配输入，汇集各处理器与可选的指标采集器。

# 主要能力

  - 非阻塞启动：Start/StartTLS 在后台 goroutine 中运行服务，
    主线程不阻塞。
  - 优雅关闭：Shutdown 在配置的超时内完成请求排空与连接释放。
  - 信号监听：WaitForShutdown 监听 SIGINT/SIGTERM，收到信号后
    自动触发优雅关闭流程。
  - 错误传播：Errors() 返回异步错误通道，供调用方监控服务异常。
  - 路由装配：NewMux 注册管理 API（统一 API 密钥鉴权）、健康
    检查与指标端点，并按路由模式记录请求指标。
  - 状态查询：IsRunning/Addr/BoundAddr 提供运行状态与监听地址。
*/
package server
