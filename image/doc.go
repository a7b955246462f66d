// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package image 把一次生成请求变成可投递的图像。

# 组成

  - [Client]：编排器。按顺序遍历端点，每个端点最多尝试 retries+1 次，
    失败后线性退避 backoff*(attempt+1)。404 切换端点，5xx 与连接错误重试，
    其他 4xx 立即失败。
  - [Extract]：按固定优先级尝试 8 种响应形态，第一个产出图像的规则胜出。
  - [Poller]：任务型服务的状态机 Pending → Ready / Failed / TimedOut。
  - [BuildBody]：按服务类型构造请求体。
  - [Downloader]：按 URL 下载图像，供轮询结果与投递回退使用。

# 观测

[Recorder] 接收尝试、轮询与整次生成的结果；每次生成、尝试与轮询各有一个 OTel span。
*/
package image
