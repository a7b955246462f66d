// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 rsimage 全局共享的错误类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 image、guard、usage、bot
等上层模块提供统一的错误契约，避免循环依赖。

# 错误码

  - 生成链路: VALIDATION / TRANSIENT_TRANSPORT / NOT_FOUND / UPSTREAM_ERROR /
    UPSTREAM_TASK_FAILURE / POLLING_TIMEOUT / EMPTY_RESPONSE
  - 闸门与账本: COOLDOWN / CONTENT_BLOCKED / QUOTA_EXCEEDED
  - 投递: DELIVERY_FAILED

Error 通过 Retryable 字段标记是否可重试；IsRetryable、GetErrorCode、
IsCode 均基于 errors.As，对 fmt.Errorf("%w") 包装后的错误同样有效。
UserMessage 将任意错误渲染为面向聊天用户的一行文本。
*/
package types
