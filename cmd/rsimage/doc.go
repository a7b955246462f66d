// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 rsimage 可执行入口。

# 概述

cmd/rsimage 装配图像生成客户端、会话存储、闸门、额度账本与
Telegram 前端，并在独立端口上提供运维 HTTP 服务。配置来自
YAML 文件与 RSIMAGE_ 前缀的环境变量。

# 核心类型

  - app: 持有全部组件，负责装配与并行运行
  - Middleware: HTTP 中间件函数签名 func(http.Handler) http.Handler
  - responseWriter: 包装 http.ResponseWriter 以捕获状态码

# 主要能力

  - 子命令：serve、validate、version、health
  - 运维路由：/metrics（Prometheus）、/health、/ready
  - 中间件链：Recovery、RequestID、SecurityHeaders、OTelTracing、
    MetricsMiddleware、RequestLogger
  - 配置热重载：reload.enabled 时轮询配置文件，更新闸门的黑名单与策略
  - 优雅关闭：SIGINT/SIGTERM 取消上下文，更新循环与运维服务一并退出
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
