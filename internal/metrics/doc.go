// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖运维 HTTP、
图像生成、请求闸门、用量账本与图片投递五个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离。

# 主要能力

  - HTTP 指标：运维端口的请求总数与耗时，状态码归类为 2xx/3xx/4xx/5xx。
  - 图像生成指标：实现 image.Recorder，记录每次上游尝试、任务轮询与
    整次生成的结果和耗时。
  - 闸门与账本指标：放行/冷却/内容拦截次数、额度拒绝次数、记账次数。
  - 投递指标：按 bytes/url/refetch 三种方式统计成功与失败。
*/
package metrics
