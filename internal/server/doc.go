// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供运维 HTTP 服务器的生命周期管理与内置路由。

# 概述

Manager 封装 net/http.Server，统一管理监听、服务、关闭与错误传播。
机器人本身通过长轮询收取消息，HTTP 端口只承载运维接口。

# 核心类型

  - Manager：持有 http.Server、net.Listener 与异步错误通道，
    提供 Start/Run/Shutdown 等生命周期方法。
  - Config：监听地址、读写超时、空闲超时、最大请求头与关闭超时，
    可由 config.ServerConfig 经 FromServerConfig 生成。
  - NewOpsMux：注册 /health、/ready 与 /metrics（Prometheus）。

# 主要能力

  - 非阻塞启动：Start 在后台 goroutine 中运行服务。
  - 阻塞运行：Run 适合放入 errgroup，ctx 取消后自动优雅关闭。
  - 错误传播：服务异常退出时 Run 返回该错误，由 errgroup 取消其余组件。
*/
package server
