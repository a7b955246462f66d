/*
Package guard 实现请求闸门。

每条入站消息依次经过两个阶段：

 1. 冷却：同一用户两次放行之间至少间隔 security.cooldown_ms。检查通过即记录本次时间。
 2. 内容安全：消息转小写后包含任一黑名单关键词即拒绝，仅在 block_and_warn 策略下生效。

判定不产生网络 I/O，唯一的副作用是写入 session.Store 中的冷却状态。
*/
package guard
