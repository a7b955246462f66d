// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package bot 实现与聊天平台无关的机器人前端。

# 概述

Handler 接收 Update，依次经过请求闸门（guard）、命令与按钮路由、
额度检查（usage）、图像生成（image）与图片投递，所有用户可见的失败
都以一条回复告知，不会中断更新循环。

# 平台抽象

  - Messenger：发送文本/图片、删除消息、发送聊天动作。
  - Generator：由 *image.Client 实现。
  - Fetcher：由 *image.Downloader 实现，URL 发送失败时重新下载。
  - Recorder：闸门、额度、计费与投递事件，由 metrics.Collector 实现。

bot/telegram 子包提供基于 Telegram Bot API 的 Messenger 与更新循环。

# 计费

Options.ChargeOnDeliveryFailure 为 true 时生成成功即计费一次，即使随后
投递失败；为 false 时仅在投递成功后计费。两种模式下每次成功生成最多计费一次。
*/
package bot
