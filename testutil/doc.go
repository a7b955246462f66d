// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 rsimage 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / CancelledContext，自动注册 Cleanup 防止泄漏
  - 时间控制: ManualClock 同时充当时钟与等待器，退避与轮询测试零等待

# 子包

  - testutil/mocks: MockMessenger（聊天投递）、MockGenerator（图像生成）、
    MockFetcher 与 MockRecorder，支持错误注入与调用记录
  - testutil/fixtures: 上游图像服务的响应样例，覆盖全部响应形态
*/
package testutil
