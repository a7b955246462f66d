// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package session 保存每个聊天用户的进程内状态。

一个 Entry 聚合冷却限流器与最近动作时间、用量记录、偏好、账户信息和最近一次任务。
guard、usage 与 bot 共享同一个 Store，通过 Update 在锁内修改条目，通过 Get 读取副本。
状态不落盘，进程重启后全部清空。
*/
package session
