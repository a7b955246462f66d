// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

// Package telegram 将 bot 前端接入 Telegram Bot API：
// Messenger 实现出站消息，Runner 负责长轮询更新循环与并发分发。
package telegram
